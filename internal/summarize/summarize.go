package summarize

import "strings"

const maxFragments = 3

// Summarize reduces text to its leading sentence-like fragments.
//
// Text is split on runs of '.', '!' and '?'; blank fragments are dropped,
// the first three survivors are rejoined with ". " and a closing period is
// appended. The closing period is appended even when the source text had no
// terminal punctuation, so empty input yields ".".
func Summarize(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	fragments := make([]string, 0, maxFragments)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		fragments = append(fragments, f)
		if len(fragments) == maxFragments {
			break
		}
	}

	return strings.Join(fragments, ". ") + "."
}
