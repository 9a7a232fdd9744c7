package catalog

import (
	"slices"
	"strings"
)

// Set is a set code and its display name.
type Set struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// RarityInfo pairs a rarity with its short code.
type RarityInfo struct {
	Rarity string `json:"rarity" yaml:"rarity"`
	Code   string `json:"code,omitempty" yaml:"code,omitempty"`
}

// Summary groups a card's printings by set for selection.
type Summary struct {
	CardID int64  `json:"card_id" yaml:"card_id"`
	Name   string `json:"name" yaml:"name"`
	// Sets is sorted by code in natural order (LOB-9 before LOB-10).
	Sets []Set `json:"sets" yaml:"sets"`
	// Rarities lists the distinct rarities per set code, sorted.
	Rarities map[string][]string `json:"rarities" yaml:"rarities"`
	// RarityCodes keeps the first rarity code seen for each rarity per set code.
	RarityCodes map[string][]RarityInfo `json:"rarity_codes" yaml:"rarity_codes"`
	// Prices lists the distinct prices per set code in catalog order.
	Prices map[string][]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
}

// Empty reports whether the summary lists no sets.
func (s Summary) Empty() bool { return len(s.Sets) == 0 }

// Summarize groups c's printings. The first name seen for a set code wins.
func Summarize(c Candidate) Summary {
	s := Summary{
		CardID:      c.ID,
		Name:        c.Name,
		Rarities:    map[string][]string{},
		RarityCodes: map[string][]RarityInfo{},
		Prices:      map[string][]float64{},
	}
	seen := map[string]bool{}
	for _, p := range c.Printings {
		if p.SetCode == "" || p.SetName == "" {
			continue
		}
		if !seen[p.SetCode] {
			seen[p.SetCode] = true
			s.Sets = append(s.Sets, Set{Code: p.SetCode, Name: p.SetName})
		}
		if p.Rarity != "" && !slices.Contains(s.Rarities[p.SetCode], p.Rarity) {
			s.Rarities[p.SetCode] = append(s.Rarities[p.SetCode], p.Rarity)
			s.RarityCodes[p.SetCode] = append(s.RarityCodes[p.SetCode], RarityInfo{Rarity: p.Rarity, Code: p.RarityCode})
		}
		if p.Price != nil && !slices.Contains(s.Prices[p.SetCode], *p.Price) {
			s.Prices[p.SetCode] = append(s.Prices[p.SetCode], *p.Price)
		}
	}

	slices.SortFunc(s.Sets, func(a, b Set) int { return naturalCompare(a.Code, b.Code) })
	for _, r := range s.Rarities {
		slices.Sort(r)
	}
	return s
}

// naturalCompare orders strings treating digit runs as numbers.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		da, db := isDigit(a[0]), isDigit(b[0])
		switch {
		case da && db:
			na, ra := splitDigits(a)
			nb, rb := splitDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) - len(tb)
			}
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
			a, b = ra, rb
		default:
			ca, cb := a[0], b[0]
			if ca != cb {
				return int(ca) - int(cb)
			}
			a, b = a[1:], b[1:]
		}
	}
	return len(a) - len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
