// Package catalog looks up card names in an external card database and
// summarizes the printings of a card.
package catalog

import (
	"context"
	"strconv"
	"strings"
)

// Printing is one release of a card.
type Printing struct {
	SetCode    string `json:"set_code" yaml:"set_code"`
	SetName    string `json:"set_name" yaml:"set_name"`
	Rarity     string `json:"rarity,omitempty" yaml:"rarity,omitempty"`
	RarityCode string `json:"rarity_code,omitempty" yaml:"rarity_code,omitempty"`
	// Price is nil when the catalog reports none or an unparsable value.
	Price *float64 `json:"price,omitempty" yaml:"price,omitempty"`
}

// Candidate is a card the catalog returned for a query.
type Candidate struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Printings []Printing `json:"printings,omitempty" yaml:"printings,omitempty"`
}

// Searcher queries a card catalog. An empty result is a valid answer; errors
// are reserved for an unreachable or misbehaving catalog.
type Searcher interface {
	// Search returns cards whose name loosely matches query.
	Search(ctx context.Context, query string) ([]Candidate, error)
	// Lookup returns cards whose name is exactly name.
	Lookup(ctx context.Context, name string) ([]Candidate, error)
}

// Purger is implemented by searchers that keep cached results.
type Purger interface {
	Purge()
}

// wireResponse is the cardinfo payload. Every field is optional on the wire;
// toCandidates applies defaults once so the rest of the code sees plain values.
type wireResponse struct {
	Data  []wireCard `json:"data" yaml:"data"`
	Error *string    `json:"error,omitempty" yaml:"error,omitempty"`
}

type wireCard struct {
	ID       *int64    `json:"id" yaml:"id"`
	Name     *string   `json:"name" yaml:"name"`
	CardSets []wireSet `json:"card_sets" yaml:"card_sets"`
}

type wireSet struct {
	SetName       *string    `json:"set_name" yaml:"set_name"`
	SetCode       *string    `json:"set_code" yaml:"set_code"`
	SetRarity     *string    `json:"set_rarity" yaml:"set_rarity"`
	SetRarityCode *string    `json:"set_rarity_code" yaml:"set_rarity_code"`
	SetPrice      *wirePrice `json:"set_price" yaml:"set_price"`
}

// wirePrice accepts prices sent either as strings or as numbers.
type wirePrice string

func (p *wirePrice) UnmarshalJSON(b []byte) error {
	*p = wirePrice(strings.Trim(string(b), `"`))
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func (p *wirePrice) value() *float64 {
	if p == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(*p)), 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}

// toCandidates drops cards without a name and printings without a set code
// or set name.
func (r *wireResponse) toCandidates() []Candidate {
	out := make([]Candidate, 0, len(r.Data))
	for _, wc := range r.Data {
		name := str(wc.Name)
		if name == "" {
			continue
		}
		c := Candidate{Name: name}
		if wc.ID != nil {
			c.ID = *wc.ID
		}
		for _, ws := range wc.CardSets {
			p := Printing{
				SetCode:    str(ws.SetCode),
				SetName:    str(ws.SetName),
				Rarity:     str(ws.SetRarity),
				RarityCode: str(ws.SetRarityCode),
				Price:      ws.SetPrice.value(),
			}
			if p.SetCode == "" || p.SetName == "" {
				continue
			}
			c.Printings = append(c.Printings, p)
		}
		out = append(out, c)
	}
	return out
}
