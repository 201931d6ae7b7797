package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// page is the parsed view of one body shared by all heuristics.
type page struct {
	body string
	doc  *goquery.Document
	base *url.URL

	payloads       []any
	payloadsParsed bool
}

func newPage(body string, base *url.URL) *page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		doc = nil
	}
	return &page{body: body, doc: doc, base: base}
}

// scripts lazily decodes the JSON script blocks.
func (p *page) scripts() []any {
	if !p.payloadsParsed {
		p.payloads = scriptPayloads(p.doc)
		p.payloadsParsed = true
	}
	return p.payloads
}

// resolve turns a root-relative or absolute reference into an absolute URL.
func (p *page) resolve(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if p.base == nil {
		return u.String(), true
	}
	return p.base.ResolveReference(u).String(), true
}
