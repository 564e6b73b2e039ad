package transcriber

import (
	"strings"

	"github.com/leonardotrapani/livescribe/internal/language"
)

// normalizeDeepgramLanguage maps bare English to the region Deepgram
// expects and canonicalizes other tags. Unknown values pass through.
func normalizeDeepgramLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.TrimSpace(code)
	}
	if tag.Base == "en" && (tag.Region == "" || tag.Region == "US") {
		return "en-US"
	}
	return tag.String()
}
