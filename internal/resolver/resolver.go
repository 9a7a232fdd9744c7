// Package resolver maps noisy recognized text onto a canonical card name.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/names"
	"github.com/MeKo-Tech/cardscan/internal/similarity"
)

// Source tells which query produced a result.
type Source string

const (
	SourceNone   Source = ""
	SourceManual Source = "manual"
	SourceQuery  Source = "query"
	SourceChunk  Source = "chunk"
)

// Rejection reasons.
const (
	ReasonEmpty        = "empty"
	ReasonTooShort     = "too_short"
	ReasonNoCandidates = "no_candidates"
	ReasonLowScore     = "low_score"
)

// Result is the outcome of a resolution. Name is set only when Accepted.
type Result struct {
	Accepted bool    `json:"accepted"`
	Name     string  `json:"name,omitempty"`
	Score    float64 `json:"score"`
	// Query is the text that was resolved.
	Query string `json:"query"`
	// MatchedBy is the catalog query that returned the best candidate.
	MatchedBy string             `json:"matched_by,omitempty"`
	Source    Source             `json:"source,omitempty"`
	Candidate *catalog.Candidate `json:"candidate,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// Accepted builds an accepted result.
func Accepted(query string, c catalog.Candidate, score float64, src Source, matchedBy string) Result {
	return Result{
		Accepted:  true,
		Name:      c.Name,
		Score:     score,
		Query:     query,
		MatchedBy: matchedBy,
		Source:    src,
		Candidate: &c,
	}
}

// Rejected builds a rejected result. best, when non-nil, is the closest
// candidate that still fell short.
func Rejected(query, reason string, best *catalog.Candidate, score float64) Result {
	return Result{Query: query, Reason: reason, Candidate: best, Score: score}
}

// Config tunes a Resolver.
type Config struct {
	// Threshold is the minimum similarity a candidate needs to be accepted.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	// MinAlnum is the minimum count of letters and digits worth searching for.
	MinAlnum int `mapstructure:"min_alnum" yaml:"min_alnum" json:"min_alnum"`
	// MaxChunks bounds the fallback chunk queries per resolution.
	MaxChunks int                 `mapstructure:"max_chunks" yaml:"max_chunks" json:"max_chunks"`
	Cache     catalog.CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`
}

// DefaultThreshold is the default acceptance threshold.
const DefaultThreshold = 0.70

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		MinAlnum:  3,
		MaxChunks: names.DefaultMaxChunks,
		Cache:     catalog.DefaultCacheConfig(),
	}
}

// Validate checks the tuning ranges.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("resolver: threshold must be in (0, 1], got %v", c.Threshold)
	}
	if c.MinAlnum < 1 {
		return errors.New("resolver: min_alnum must be at least 1")
	}
	if c.MaxChunks < 0 {
		return errors.New("resolver: max_chunks must not be negative")
	}
	return nil
}

// Resolver scores catalog candidates against recognized text. It caches
// catalog answers and remembers every card it has seen by name so printings
// can be listed without another search. Safe for concurrent use.
type Resolver struct {
	cfg    Config
	search catalog.Searcher
	logger *slog.Logger

	mu     sync.RWMutex
	byName map[string]catalog.Candidate
}

// New creates a resolver over s, caching its answers. Invalid tuning falls
// back to DefaultConfig.
func New(s catalog.Searcher, cfg Config) *Resolver {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxChunks == 0 {
		cfg.MaxChunks = names.DefaultMaxChunks
	}

	r := &Resolver{cfg: cfg, search: s, logger: slog.Default(), byName: map[string]catalog.Candidate{}}
	if cached, err := catalog.NewCache(s, cfg.Cache); err != nil {
		r.logger.Warn("Catalog cache disabled", "error", err)
	} else {
		r.search = cached
	}
	return r
}

// WithLogger sets the logger used for catalog diagnostics.
func (r *Resolver) WithLogger(l *slog.Logger) *Resolver {
	if l != nil {
		r.logger = l
	}
	return r
}

// Threshold returns the acceptance threshold in use.
func (r *Resolver) Threshold() float64 { return r.cfg.Threshold }

// ResolveWithOverride returns manual outright when it is non-empty and
// resolves scanned otherwise.
func (r *Resolver) ResolveWithOverride(ctx context.Context, manual, scanned string) Result {
	if m := strings.TrimSpace(manual); m != "" {
		return Result{Accepted: true, Name: m, Score: 1, Query: m, Source: SourceManual}
	}
	return r.Resolve(ctx, scanned)
}

// Resolve searches the catalog for raw and accepts the best scoring
// candidate when its similarity reaches the threshold. When the full query
// falls short, contiguous word chunks of it are searched, longest first,
// and every candidate is scored against the full query. Catalog failures
// count as empty answers.
func (r *Resolver) Resolve(ctx context.Context, raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Rejected(raw, ReasonEmpty, nil, 0)
	}
	query := names.Query(raw, r.cfg.MinAlnum)
	if query == "" {
		return Rejected(raw, ReasonTooShort, nil, 0)
	}
	key := names.Key(raw)

	var (
		best      *catalog.Candidate
		bestScore float64
		bestBy    string
		bestSrc   Source
		seenAny   bool
	)
	consider := func(q string, src Source, cands []catalog.Candidate) {
		for i := range cands {
			seenAny = true
			s := similarity.Score(key, names.Key(cands[i].Name))
			if best == nil || s > bestScore {
				c := cands[i]
				best, bestScore, bestBy, bestSrc = &c, s, q, src
			}
		}
	}

	consider(query, SourceQuery, r.fetch(ctx, query))
	if best != nil && bestScore >= r.cfg.Threshold {
		return Accepted(raw, *best, bestScore, bestSrc, bestBy)
	}

	for _, chunk := range names.Chunks(raw, r.cfg.MaxChunks) {
		if chunk == query || ctx.Err() != nil {
			continue
		}
		consider(chunk, SourceChunk, r.fetch(ctx, chunk))
		if best != nil && bestScore >= r.cfg.Threshold {
			return Accepted(raw, *best, bestScore, bestSrc, bestBy)
		}
	}

	if !seenAny {
		return Rejected(raw, ReasonNoCandidates, nil, 0)
	}
	return Rejected(raw, ReasonLowScore, best, bestScore)
}

// fetch searches the catalog and indexes the answer by name. Errors are
// logged and yield no candidates.
func (r *Resolver) fetch(ctx context.Context, q string) []catalog.Candidate {
	cands, err := r.search.Search(ctx, q)
	if err != nil {
		r.logger.Debug("Catalog search failed", "query", q, "error", err)
		return nil
	}
	r.index(cands)
	return cands
}

func (r *Resolver) index(cands []catalog.Candidate) {
	if len(cands) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cands {
		key := strings.ToLower(c.Name)
		if _, ok := r.byName[key]; !ok && key != "" {
			r.byName[key] = c
		}
	}
}

// Printings lists the sets and rarities of the card named name. Cards seen
// by earlier searches are answered from memory; otherwise the exact-name
// spellings of names.Variants are looked up, and finally word chunks are
// searched and the closest match is used. ok is false when nothing with
// printings was found.
func (r *Resolver) Printings(ctx context.Context, name string) (catalog.Summary, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Summary{}, false
	}

	r.mu.RLock()
	hit, ok := r.byName[strings.ToLower(name)]
	r.mu.RUnlock()
	if ok && len(hit.Printings) > 0 {
		return catalog.Summarize(hit), true
	}

	for _, v := range names.Variants(name) {
		cards, err := r.search.Lookup(ctx, v)
		if err != nil {
			r.logger.Debug("Catalog lookup failed", "name", v, "error", err)
			continue
		}
		for _, c := range cards {
			if len(c.Printings) > 0 {
				r.remember(c)
				return catalog.Summarize(c), true
			}
		}
	}

	key := names.Key(name)
	for _, chunk := range names.Chunks(name, r.cfg.MaxChunks) {
		cands, err := r.search.Search(ctx, chunk)
		if err != nil {
			r.logger.Debug("Catalog search failed", "query", chunk, "error", err)
			continue
		}
		var (
			best      *catalog.Candidate
			bestScore float64
		)
		for i := range cands {
			s := similarity.Score(key, names.Key(cands[i].Name))
			if best == nil || s > bestScore {
				best, bestScore = &cands[i], s
			}
		}
		if best != nil && len(best.Printings) > 0 {
			r.remember(*best)
			return catalog.Summarize(*best), true
		}
	}
	return catalog.Summary{}, false
}

// remember indexes c under name, replacing a printing-less entry.
func (r *Resolver) remember(c catalog.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(c.Name)] = c
}

// Reset forgets cached catalog answers and the by-name index.
func (r *Resolver) Reset() {
	if p, ok := r.search.(catalog.Purger); ok {
		p.Purge()
	}
	r.mu.Lock()
	r.byName = map[string]catalog.Candidate{}
	r.mu.Unlock()
}
