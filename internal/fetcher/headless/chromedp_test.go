package headless

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpMissingBrowser(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := NewChromedp(ctx, Config{
		ChromePath:        filepath.Join(t.TempDir(), "no-such-chrome"),
		NavigationTimeout: 5 * time.Second,
	}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestClosedFetcherIsUnavailable(t *testing.T) {
	t.Parallel()

	f := &Fetcher{}
	assert.Equal(t, "headless", f.Name())
	_, err := f.Fetch(context.Background(), "https://hackerone.com/acme")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = f.Login(context.Background(), Credentials{Username: "u", Password: "p"})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = f.Login(context.Background(), Credentials{})
	require.Error(t, err)
	f.Close()
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := withDefaults(Config{ScrollPasses: -1})
	assert.Equal(t, 60*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 3*time.Second, cfg.SettleMin)
	assert.Equal(t, 8*time.Second, cfg.SettleMax)
	assert.Equal(t, 0, cfg.ScrollPasses)
	assert.Equal(t, 2*time.Second, cfg.ScrollPause)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)

	cfg = withDefaults(Config{SettleMin: 5 * time.Second, SettleMax: time.Second})
	assert.Equal(t, cfg.SettleMin, cfg.SettleMax)
}

func TestUniformStaysInRange(t *testing.T) {
	t.Parallel()

	next := uniform(3*time.Second, 8*time.Second)
	for range 100 {
		d := next()
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 8*time.Second)
	}
	assert.Equal(t, time.Second, uniform(time.Second, time.Second)())
}

func TestNetworkTrackerIdle(t *testing.T) {
	t.Parallel()

	tracker := newNetworkTracker()
	tracker.reset()
	start := time.Now()

	tracker.capture(&network.EventRequestWillBeSent{RequestID: "1"})
	tracker.capture(&network.EventRequestWillBeSent{RequestID: "2"})
	assert.Equal(t, 2, tracker.inflightCount())
	assert.False(t, tracker.idle(start.Add(time.Hour), networkQuiet))

	tracker.capture(&network.EventLoadingFinished{RequestID: "1"})
	tracker.capture(&network.EventLoadingFailed{RequestID: "2"})
	assert.Zero(t, tracker.inflightCount())
	assert.False(t, tracker.idle(time.Now(), networkQuiet), "quiet period has not elapsed")
	assert.True(t, tracker.idle(time.Now().Add(time.Second), networkQuiet))

	tracker.capture("unrelated event")
	assert.Zero(t, tracker.inflightCount())
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 404, URL: "https://cdn/logo.png"},
	})
	status, url := meta.snapshotWithFallbacks("https://req")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://req", url)

	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 403, URL: "https://hackerone.com/acme?type=team"},
	})
	status, url = meta.snapshotWithFallbacks("https://req")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "https://hackerone.com/acme?type=team", url)

	meta.reset()
	status, url = meta.snapshotWithFallbacks("https://req")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://req", url)
}

func TestToHTTPCookies(t *testing.T) {
	t.Parallel()

	got := toHTTPCookies([]*network.Cookie{
		{Name: "__Host-session", Value: "abc", Domain: "hackerone.com", Path: "/", Secure: true, HTTPOnly: true, Session: true},
		{Name: "remember", Value: "1", Domain: ".hackerone.com", Path: "/", Expires: 1893456000},
		{Name: ""},
		nil,
	})
	require.Len(t, got, 2)
	assert.Equal(t, "__Host-session", got[0].Name)
	assert.True(t, got[0].Secure)
	assert.True(t, got[0].HttpOnly)
	assert.True(t, got[0].Expires.IsZero())
	assert.Equal(t, time.Unix(1893456000, 0).UTC(), got[1].Expires)
}
