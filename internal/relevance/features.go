// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// stripPolicy removes all markup; abstracts sometimes carry JATS or HTML tags.
var stripPolicy = bluemonday.StrictPolicy()

// Tokens returns the unigram and bigram features of text: markup removed,
// entities unescaped, lowercased and split on runs of non-alphanumeric
// runes. Bigrams are the two unigrams joined by a single space.
func Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	plain := html.UnescapeString(stripPolicy.Sanitize(text))
	words := strings.FieldsFunc(strings.ToLower(plain), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, 2*len(words))
	out = append(out, words...)
	for i := 1; i < len(words); i++ {
		out = append(out, words[i-1]+" "+words[i])
	}
	return out
}
