package headless

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	usernameSelector = `input[name='username']`
	passwordSelector = `input[name='password']`
	submitSelector   = `button[type='submit']`
)

// Credentials identify the account used by Login.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// Login signs in through the site's login form and returns the browser's
// cookies so other backends can reuse the session.
func (f *Fetcher) Login(ctx context.Context, creds Credentials) ([]*http.Cookie, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tab == nil {
		return nil, ErrUnavailable
	}

	loginURL := strings.TrimRight(creds.BaseURL, "/") + "/login"
	f.network.reset()
	if err := f.run(ctx, f.cfg.NavigationTimeout,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(usernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(usernameSelector, creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, creds.Password, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("submit login form: %w", err)
	}

	// The click triggers navigation; give the session a moment to land.
	f.pauser.Pause(ctx, time.Second)
	f.waitNetworkIdle(ctx)

	var cookies []*network.Cookie
	if err := f.run(ctx, f.cfg.NavigationTimeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return toHTTPCookies(cookies), nil
}

func toHTTPCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil || c.Name == "" {
			continue
		}
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0).UTC()
		}
		out = append(out, cookie)
	}
	return out
}
