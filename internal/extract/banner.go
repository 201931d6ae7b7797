package extract

import "strings"

var jsBannerMarkers = []string{
	"js-disabled",
	"It looks like your JavaScript is disabled",
}

// requiresJavaScript reports whether body is the static placeholder shown to
// clients that do not run scripts.
func requiresJavaScript(body string) bool {
	if body == "" {
		return false
	}
	for _, marker := range jsBannerMarkers {
		if !strings.Contains(body, marker) {
			return false
		}
	}
	return true
}
