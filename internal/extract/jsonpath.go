package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

// jsonPath addresses a nested value inside decoded JSON objects.
type jsonPath []string

func (p jsonPath) String() string {
	return strings.Join(p, ".")
}

// lookup walks p through nested objects.
func (p jsonPath) lookup(v any) (any, bool) {
	cur := v
	for _, key := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// array returns the non-empty array found at p.
func (p jsonPath) array(v any) []any {
	raw, ok := p.lookup(v)
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	return arr
}

var (
	programListPaths = []jsonPath{
		{"props", "pageProps", "programs"},
		{"programs"},
	}
	inScopeTargetPaths = []jsonPath{
		{"props", "pageProps", "program", "targets", "in_scope"},
		{"program", "targets", "in_scope"},
	}
)

// scriptPayloads decodes every application/json script block. Blocks that do
// not parse are skipped.
func scriptPayloads(doc *goquery.Document) []any {
	if doc == nil {
		return nil
	}
	var payloads []any
	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var data any
		if err := json5.Unmarshal([]byte(text), &data); err != nil {
			return
		}
		payloads = append(payloads, data)
	})
	return payloads
}

// firstArray returns the first non-empty array any of paths finds in payload.
func firstArray(payload any, paths []jsonPath) []any {
	for _, p := range paths {
		if arr := p.array(payload); arr != nil {
			return arr
		}
	}
	return nil
}

func stringField(v any, key string) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}
