package pipeline

import "strings"

const (
	// maxInputRunes hard-caps user text to keep payloads bounded.
	maxInputRunes = 4000

	emptyPlaceholder = "(empty message)"
)

// Sanitize collapses whitespace runs, trims, and caps length. Input is
// never rejected: empty text becomes a placeholder, oversized text is
// truncated.
func Sanitize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return emptyPlaceholder
	}
	runes := []rune(collapsed)
	if len(runes) > maxInputRunes {
		collapsed = string(runes[:maxInputRunes])
	}
	return collapsed
}
