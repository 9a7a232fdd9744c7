// Package names normalizes card titles into comparable forms and derives the
// alternative spellings used when querying the catalog.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// Star is the canonical star separator.
	Star = '☆'
	// Dot is the canonical middle dot separator.
	Dot = '·'
)

// foldAccents strips combining marks. Transformers carry state, so a fresh
// chain is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '`', '´', '“', '”', '„', '‘', '’', '‚', '«', '»', '‹', '›':
		return true
	}
	return false
}

// foldGlyph maps look-alike separators onto Star or Dot.
func foldGlyph(r rune) rune {
	switch r {
	case '★', '✩', '✭', '✮':
		return Star
	case '・', '･', '•', '∙', '⋅':
		return Dot
	}
	return r
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '-', '&', '!', '?', ':', ',', '.', Star, Dot:
		return true
	}
	return false
}

// Normalize returns the lowercase canonical form of s: accents folded,
// quotes stripped, separator glyphs unified, everything outside the
// allow-list replaced by a space, whitespace collapsed and spaced hyphens
// joined. Normalize(Normalize(s)) == Normalize(s).
//
// Hyphens and sentence punctuation survive, so "Blue-Eyes" and "BLUE EYES"
// normalize differently. Compare names with Key, not Normalize.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = foldAccents(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isQuote(r) {
			continue
		}
		r = unicode.ToLower(foldGlyph(r))
		if !allowed(r) {
			r = ' '
		}
		b.WriteRune(r)
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	out = strings.ReplaceAll(out, " -", "-")
	out = strings.ReplaceAll(out, "- ", "-")
	return collapseDots(out)
}

func collapseDots(s string) string {
	if !strings.ContainsRune(s, Dot) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prevDot := false
	for _, r := range s {
		if r == Dot {
			if prevDot {
				continue
			}
			prevDot = true
		} else {
			prevDot = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isSentencePunct reports the punctuation OCR tends to attach to words.
func isSentencePunct(r rune) bool {
	switch r {
	case '!', '?', ',', '.':
		return true
	}
	return false
}

// stripPunct replaces sentence punctuation with spaces and collapses the
// result.
func stripPunct(s string) string {
	s = strings.Map(func(r rune) rune {
		if isSentencePunct(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Key is the comparison form used for similarity scoring: Normalize with the
// joiners (hyphen, star, dot) and sentence punctuation read as word breaks,
// so "Blue-Eyes" and "BLUE EYES" produce the same key, as do "Dark Magician."
// and "dark magician".
func Key(s string) string {
	n := Normalize(s)
	n = strings.Map(func(r rune) rune {
		switch r {
		case '-', Star, Dot:
			return ' '
		}
		return r
	}, n)
	return stripPunct(n)
}

// AlnumLen counts the ASCII letters and digits left after normalization.
func AlnumLen(s string) int {
	n := 0
	for _, r := range Normalize(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			n++
		}
	}
	return n
}

// Query prepares raw text for a fuzzy catalog search: normalized, sentence
// punctuation dropped, colons spaced the way catalog titles are. It returns
// "" when the text has fewer than minAlnum letters and digits or no letter
// at all.
func Query(raw string, minAlnum int) string {
	q := stripPunct(Normalize(raw))
	if AlnumLen(q) < minAlnum || !strings.ContainsFunc(q, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		return ""
	}
	if strings.Contains(q, ":") {
		parts := strings.Split(q, ":")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		q = strings.TrimSpace(strings.Join(parts, ": "))
	}
	return q
}
