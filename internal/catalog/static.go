package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/names"
	"gopkg.in/yaml.v3"
)

// Static is an in-memory Searcher over a fixed card list. Search matches
// cards whose name key contains the query key; Lookup matches names exactly,
// ignoring case.
type Static struct {
	cards []Candidate
	keys  []string
}

// NewStatic creates a searcher over cards.
func NewStatic(cards ...Candidate) *Static {
	s := &Static{cards: cards, keys: make([]string, len(cards))}
	for i, c := range cards {
		s.keys[i] = names.Key(c.Name)
	}
	return s
}

// Cards returns the cards the searcher holds.
func (s *Static) Cards() []Candidate { return s.cards }

// Search returns every card whose name key contains the key of query.
func (s *Static) Search(ctx context.Context, query string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := names.Key(query)
	if q == "" {
		return nil, nil
	}
	var out []Candidate
	for i, k := range s.keys {
		if strings.Contains(k, q) {
			out = append(out, s.cards[i])
		}
	}
	return out, nil
}

// Lookup returns the cards named name.
func (s *Static) Lookup(ctx context.Context, name string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	var out []Candidate
	for _, c := range s.cards {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// LoadSnapshot reads a catalog snapshot in the cardinfo response layout
// ({"data": [...]}), as JSON or YAML.
func LoadSnapshot(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes snapshot bytes, JSON when they start with '{' and
// YAML otherwise.
func ParseSnapshot(data []byte) (*Static, error) {
	var (
		payload wireResponse
		err     error
	)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &payload)
	} else {
		err = yaml.Unmarshal(data, &payload)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	return NewStatic(payload.toCandidates()...), nil
}
