package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navigationDenylist holds site paths that are never program pages.
var navigationDenylist = map[string]struct{}{
	"/login":    {},
	"/signup":   {},
	"/programs": {},
	"/about":    {},
	"/blog":     {},
	"/contact":  {},
}

var markdownLink = regexp.MustCompile(`\[[^\]]*\]\(\s*([^)\s]+)(?:\s+"[^"]*")?\s*\)`)

type listingHeuristic struct {
	name string
	fn   func(p *page) []string
}

var listingHeuristics = []listingHeuristic{
	{name: "json-programs", fn: programsFromJSON},
	{name: "anchors", fn: programsFromAnchors},
	{name: "markdown-links", fn: programsFromMarkdown},
}

// programsFromJSON maps the first non-empty programs array to URLs, using
// entry.url or the base URL joined with entry.slug.
func programsFromJSON(p *page) []string {
	for _, payload := range p.scripts() {
		programs := firstArray(payload, programListPaths)
		if programs == nil {
			continue
		}
		links := make([]string, 0, len(programs))
		for _, entry := range programs {
			if raw, ok := stringField(entry, "url"); ok {
				if link, ok := p.resolve(raw); ok {
					links = append(links, link)
				}
				continue
			}
			if slug, ok := stringField(entry, "slug"); ok {
				if link, ok := p.resolve("/" + strings.TrimPrefix(slug, "/")); ok {
					links = append(links, link)
				}
			}
		}
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

// programsFromAnchors keeps root-relative hrefs that look like program pages.
func programsFromAnchors(p *page) []string {
	if p.doc == nil {
		return nil
	}
	var links []string
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link, ok := programHref(p, href); ok {
			links = append(links, link)
		}
	})
	return links
}

// programsFromMarkdown applies the anchor rules to markdown links. Absolute
// links on the base host are reduced to their path first.
func programsFromMarkdown(p *page) []string {
	var links []string
	for _, m := range markdownLink.FindAllStringSubmatch(p.body, -1) {
		target := m[1]
		if p.base != nil && strings.HasPrefix(target, p.base.Scheme+"://"+p.base.Host+"/") {
			target = strings.TrimPrefix(target, p.base.Scheme+"://"+p.base.Host)
		}
		if link, ok := programHref(p, target); ok {
			links = append(links, link)
		}
	}
	return links
}

func programHref(p *page, href string) (string, bool) {
	if !strings.HasPrefix(href, "/") || len(href) <= 1 {
		return "", false
	}
	if strings.ContainsAny(href, "?#") {
		return "", false
	}
	if _, denied := navigationDenylist[href]; denied {
		return "", false
	}
	return p.resolve(href)
}
