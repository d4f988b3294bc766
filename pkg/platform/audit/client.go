package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// clientSummary reduces a raw User-Agent to "browser version (os)" so audit
// details stay readable and bounded. Bots are labelled as such.
func clientSummary(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot " + name
	}
	name, version := ua.Browser()
	summary := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	if ua.Mobile() {
		summary += " mobile"
	}
	return summary
}
