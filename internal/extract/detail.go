package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var markdownCodeSpan = regexp.MustCompile("`([^`\n]+)`")

type detailHeuristic struct {
	name string
	fn   func(p *page) []string
}

var detailHeuristics = []detailHeuristic{
	{name: "data-qa", fn: codeWithin(`[data-qa="target-domains"]`)},
	{name: "scope-class", fn: codeWithin(".program-scope__target-domains")},
	{name: "all-code", fn: domainsFromAllCode},
	{name: "json-targets", fn: domainsFromJSON},
	{name: "markdown-code", fn: domainsFromMarkdown},
}

// codeWithin collects the text of every code element inside containers
// matching selector.
func codeWithin(selector string) func(p *page) []string {
	return func(p *page) []string {
		if p.doc == nil {
			return nil
		}
		var out []string
		p.doc.Find(selector).Find("code").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
}

func domainsFromAllCode(p *page) []string {
	if p.doc == nil {
		return nil
	}
	var out []string
	p.doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); looksLikeDomain(text) {
			out = append(out, text)
		}
	})
	return out
}

func domainsFromJSON(p *page) []string {
	var out []string
	for _, payload := range p.scripts() {
		for _, target := range firstArray(payload, inScopeTargetPaths) {
			id, ok := stringField(target, "asset_identifier")
			if ok && strings.Contains(id, ".") {
				out = append(out, id)
			}
		}
	}
	return out
}

func domainsFromMarkdown(p *page) []string {
	var out []string
	for _, m := range markdownCodeSpan.FindAllStringSubmatch(p.body, -1) {
		if text := strings.TrimSpace(m[1]); looksLikeDomain(text) {
			out = append(out, text)
		}
	}
	return out
}

// looksLikeDomain filters free-floating code text down to host-like values.
func looksLikeDomain(text string) bool {
	return strings.Contains(text, ".") &&
		len(text) > 3 &&
		!strings.HasPrefix(text, "<") &&
		!strings.HasSuffix(text, ">")
}
