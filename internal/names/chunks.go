package names

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunks bounds how many chunk queries a fallback search issues.
const DefaultMaxChunks = 12

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// Tokens splits the normalized form of s on spaces and hyphens, trims
// punctuation from both ends of each token and drops tokens that cannot
// carry a match: those without a letter or digit, a bare "&", and single
// letters.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	out := fields[:0]
	for _, tok := range fields {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !isAlnum(r) })
		hasAlpha, hasDigit := false, false
		for _, r := range tok {
			switch {
			case r >= 'a' && r <= 'z':
				hasAlpha = true
			case r >= '0' && r <= '9':
				hasDigit = true
			}
		}
		if !hasAlpha && !hasDigit {
			continue
		}
		if utf8.RuneCountInString(tok) < 2 && !hasDigit {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Chunks returns the distinct contiguous three- and two-token windows of s,
// longest first, at most limit of them. A non-positive limit means
// DefaultMaxChunks.
func Chunks(s string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxChunks
	}
	toks := Tokens(s)
	if len(toks) < 2 {
		return nil
	}

	type chunk struct {
		text  string
		words int
	}
	seen := make(map[string]struct{})
	var chunks []chunk
	for _, n := range []int{3, 2} {
		for i := 0; i+n <= len(toks); i++ {
			c := strings.Join(toks[i:i+n], " ")
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			chunks = append(chunks, chunk{text: c, words: n})
		}
	}

	slices.SortStableFunc(chunks, func(a, b chunk) int {
		if a.words != b.words {
			return b.words - a.words
		}
		return utf8.RuneCountInString(b.text) - utf8.RuneCountInString(a.text)
	})

	out := make([]string, 0, min(limit, len(chunks)))
	for _, c := range chunks {
		if len(out) == limit {
			break
		}
		out = append(out, c.text)
	}
	return out
}

var joiners = []string{"-", string(Star), "・", string(Dot), " "}

// Variants lists spellings worth trying against an exact-name lookup: the
// name as given, with ★ folded to ☆, and with the first or last word gap
// swapped for each joiner the catalog uses between title words.
func Variants(name string) []string {
	exact := strings.TrimSpace(name)
	if exact == "" {
		return nil
	}
	base := strings.ReplaceAll(exact, "★", string(Star))

	var out []string
	add := func(v string) {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	add(base)
	add(exact)

	parts := strings.Fields(base)
	if len(parts) < 2 {
		return out
	}
	last := len(parts) - 2
	for _, j := range joiners {
		add(joinAt(parts, 0, j))
		add(joinAt(parts, last, j))
	}
	return out
}

// joinAt joins parts with spaces except between parts[i] and parts[i+1].
func joinAt(parts []string, i int, joiner string) string {
	var b strings.Builder
	for k, p := range parts {
		if k > 0 {
			if k == i+1 {
				b.WriteString(joiner)
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(p)
	}
	return b.String()
}
