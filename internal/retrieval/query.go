package retrieval

import (
	"strings"
	"unicode"
)

const maxQueryTokens = 10

// fillerPhrases are conversational padding stripped during query
// reformulation. Multi-word phrases are listed before their prefixes.
var fillerPhrases = []string{
	"thank you",
	"could you",
	"can you",
	"would you",
	"please",
	"kindly",
	"hello",
	"thanks",
	"hey",
	"hi",
}

// ReformulateQuery turns raw user text into a retrieval query:
// lower-case, non-alphanumeric characters stripped, filler phrases
// removed, capped at the first 10 tokens.
func ReformulateQuery(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	q := " " + strings.Join(strings.Fields(b.String()), " ") + " "
	for _, phrase := range fillerPhrases {
		q = strings.ReplaceAll(q, " "+phrase+" ", " ")
	}

	tokens := strings.Fields(q)
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " ")
}
