package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Display cleans recognized text for presentation. Case is preserved unless
// the text is entirely upper or lower case, which recognizers tend to emit,
// in which case it is title-cased.
func Display(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isQuote(r):
			continue
		case r == '|' || r == '_' || r == '•' || r == Dot:
			r = '-'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		case strings.ContainsRune(" -&!?:,.", r):
		default:
			r = ' '
		}
		b.WriteRune(r)
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.ReplaceAll(out, " -", "-")
	out = strings.ReplaceAll(out, "- ", "-")
	if out == "" {
		return ""
	}
	if out == strings.ToUpper(out) || out == strings.ToLower(out) {
		out = cases.Title(language.English).String(out)
	}
	return out
}
