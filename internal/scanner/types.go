// Package scanner runs the acquisition loop: it samples frames, waits for
// the title band to hold still, reads it once and resolves the text to a
// canonical card name.
package scanner

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
)

// State is the session state reported with every event.
type State string

const (
	Idle      State = "idle"
	Armed     State = "armed"
	Moving    State = "moving"
	LowLight  State = "lowlight"
	Steady    State = "steady"
	Scanning  State = "scanning"
	Committed State = "committed"
	Rejected  State = "rejected"
	Paused    State = "paused"
)

// Commit is emitted once per accepted read.
type Commit struct {
	RecognizedText string             `json:"recognized_text"`
	CanonicalName  string             `json:"canonical_name"`
	Region         detector.Region    `json:"region"`
	Score          float64            `json:"score"`
	Accuracy       int                `json:"accuracy"`
	Candidate      *catalog.Candidate `json:"candidate,omitempty"`
	At             time.Time          `json:"at"`
}

// Event describes one tick or state change.
type Event struct {
	State    State           `json:"state"`
	Stable   time.Duration   `json:"-"`
	Region   detector.Region `json:"region"`
	Delta    float64         `json:"-"`
	Contrast float64         `json:"contrast"`
	// Note carries a short human-readable detail such as the rejected text.
	Note   string  `json:"note,omitempty"`
	Commit *Commit `json:"commit,omitempty"`
	// Busy is set while an extraction is in flight.
	Busy bool      `json:"busy"`
	At   time.Time `json:"at"`
}

// MarshalJSON reports Stable in milliseconds and omits an infinite delta
// (no previous sample).
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		StableMS int64    `json:"stable_ms"`
		Delta    *float64 `json:"delta,omitempty"`
	}{plain: plain(e), StableMS: e.Stable.Milliseconds()}
	if !math.IsInf(e.Delta, 0) && !math.IsNaN(e.Delta) {
		d := e.Delta
		out.Delta = &d
	}
	return json.Marshal(out)
}

// Observer receives session events. Observers run on the session's
// goroutines and must not block.
type Observer func(Event)

// Resolver is the part of resolver.Resolver a session uses.
type Resolver interface {
	Resolve(ctx context.Context, raw string) resolver.Result
	Reset()
}
