package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/similarity"
	"github.com/MeKo-Tech/cardscan/internal/stability"
)

// Config tunes a session.
type Config struct {
	// Interval is the sampling period. It also becomes the tracker's sample
	// interval, so stable time counts real ticks.
	Interval time.Duration
	// Cooldown is how long a rejected read rests before re-arming.
	Cooldown  time.Duration
	Stability stability.Config
}

// DefaultConfig returns a 500ms sampler with an 800ms cooldown.
func DefaultConfig() Config {
	st := stability.DefaultConfig()
	return Config{Interval: st.SampleInterval, Cooldown: 800 * time.Millisecond, Stability: st}
}

// Deps are the collaborators a session drives.
type Deps struct {
	Source    frame.Source
	Detector  *detector.Detector
	Extractor *recognizer.Extractor
	Resolver  Resolver
	Logger    *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Session owns one acquisition loop. All state changes go through its
// methods; separate sessions share nothing.
type Session struct {
	cfg     Config
	src     frame.Source
	det     *detector.Detector
	ext     *recognizer.Extractor
	res     Resolver
	logger  *slog.Logger
	now     func() time.Time
	tickMu  sync.Mutex
	work    sync.WaitGroup
	mu      sync.Mutex
	tracker *stability.Tracker
	state   State
	paused  bool
	busy    bool
	// epoch advances on pause, resume and reset; in-flight results from an
	// older epoch are dropped.
	epoch         uint64
	cooldownUntil time.Time
	observers     []Observer
}

// New creates an idle session.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Source == nil {
		return nil, errors.New("scanner: frame source is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("scanner: extractor is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("scanner: resolver is required")
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Stability.MovementThreshold <= 0 && cfg.Stability.StableWindow <= 0 {
		cfg.Stability = def.Stability
	}
	cfg.Stability.SampleInterval = cfg.Interval
	if deps.Detector == nil {
		deps.Detector = detector.New(detector.DefaultConfig())
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Session{
		cfg:     cfg,
		src:     deps.Source,
		det:     deps.Detector,
		ext:     deps.Extractor,
		res:     deps.Resolver,
		logger:  deps.Logger,
		now:     deps.Clock,
		tracker: stability.NewTracker(cfg.Stability),
		state:   Idle,
	}, nil
}

// Subscribe registers an observer for every subsequent event.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether an extraction is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Pause stops new reads from being triggered. In-flight work completes but
// its result is dropped. Pausing a paused session does nothing.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.paused && s.state == Paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.state = Paused
	s.epoch++
	ev := s.eventLocked(Event{State: Paused})
	s.mu.Unlock()
	s.logger.Info("Scanning paused")
	s.emit(ev)
}

// Resume re-arms a paused or committed session and clears accumulated
// stability. Resuming a running session does nothing.
func (s *Session) Resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.state = Armed
	s.epoch++
	s.cooldownUntil = time.Time{}
	s.tracker.Reset()
	ev := s.eventLocked(Event{State: Armed})
	s.mu.Unlock()
	s.logger.Info("Scanning resumed")
	s.emit(ev)
}

// Reset returns the session to idle, clears stability and forgets cached
// catalog answers.
func (s *Session) Reset() {
	s.mu.Lock()
	s.paused = false
	s.state = Idle
	s.epoch++
	s.cooldownUntil = time.Time{}
	s.tracker.Reset()
	ev := s.eventLocked(Event{State: Idle})
	s.mu.Unlock()
	s.res.Reset()
	s.logger.Info("Scanner reset")
	s.emit(ev)
}

// Run samples on a fixed period until ctx is done. Reads run on a separate
// goroutine, one at a time; ticks keep running while one is in flight. Run
// waits for in-flight work before returning ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer s.work.Wait()

	s.logger.Info("Scanner started", "interval", s.cfg.Interval, "cooldown", s.cfg.Cooldown)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, true)
		}
	}
}

// Step performs one sample synchronously, including any read it triggers,
// and returns the last event it emitted.
func (s *Session) Step(ctx context.Context) Event {
	return s.tick(ctx, false)
}

// job is a read the tick decided to start.
type job struct {
	epoch  uint64
	frame  *frame.Frame
	region detector.Region
}

func (s *Session) tick(ctx context.Context, async bool) Event {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if ev, done := s.restingLocked(); done {
		s.mu.Unlock()
		tickCounter.WithLabelValues(string(ev.State)).Inc()
		s.emit(ev)
		return ev
	}
	s.mu.Unlock()

	f, err := s.src.Next(ctx)
	if err != nil || f == nil {
		if err != nil {
			s.logger.Debug("Frame unavailable", "error", err)
		}
		s.mu.Lock()
		ev := s.eventLocked(Event{State: s.state, Note: "no frame"})
		s.mu.Unlock()
		tickCounter.WithLabelValues(string(ev.State)).Inc()
		s.emit(ev)
		return ev
	}

	region := s.det.Detect(f, s.det.SearchWindow(f))

	s.mu.Lock()
	// Pause or reset may have landed while the frame was being analysed.
	if ev, done := s.restingLocked(); done {
		s.mu.Unlock()
		tickCounter.WithLabelValues(string(ev.State)).Inc()
		s.emit(ev)
		return ev
	}
	reading := s.tracker.Observe(f, region)
	ev := Event{
		State:    State(reading.State),
		Stable:   reading.Stable,
		Region:   region,
		Delta:    reading.Delta,
		Contrast: reading.Contrast,
	}
	var start *job
	// An empty band is treated like poor light: nothing to read, so the
	// card has not been held steady yet.
	if region.TooEmpty && ev.State != Moving {
		s.tracker.ResetStable()
		ev.State = LowLight
		ev.Stable = 0
		ev.Note = "band too empty"
	}
	if ev.State == Scanning {
		switch {
		case s.busy:
			ev.Note = "read in flight"
		default:
			s.busy = true
			start = &job{epoch: s.epoch, frame: f, region: region}
		}
	}
	s.state = ev.State
	ev = s.eventLocked(ev)
	s.mu.Unlock()

	tickCounter.WithLabelValues(string(ev.State)).Inc()
	s.emit(ev)
	if start == nil {
		return ev
	}

	if async {
		s.work.Add(1)
		go func() {
			defer s.work.Done()
			s.finish(start, s.read(ctx, start))
		}()
		return ev
	}
	return s.finish(start, s.read(ctx, start))
}

// restingLocked handles paused, committed and cooling-down sessions. It
// returns done=true when the tick must not sample.
func (s *Session) restingLocked() (Event, bool) {
	if s.paused {
		return s.eventLocked(Event{State: s.state}), true
	}
	if s.state == Rejected {
		if s.now().Before(s.cooldownUntil) {
			return s.eventLocked(Event{State: Rejected, Note: "cooling down"}), true
		}
		s.state = Armed
	}
	return Event{}, false
}

// outcome is the result of one read.
type outcome struct {
	text   string
	found  bool
	result resolver.Result
}

func (s *Session) read(ctx context.Context, j *job) outcome {
	start := time.Now()
	attempt, ok := s.ext.Extract(ctx, j.region.Crop(j.frame))
	extractionDuration.Observe(time.Since(start).Seconds())
	if !ok {
		extractionsTotal.WithLabelValues("no_text").Inc()
		return outcome{}
	}
	extractionsTotal.WithLabelValues("text").Inc()

	res := s.res.Resolve(ctx, attempt.Text)
	if res.Accepted {
		resolutionsTotal.WithLabelValues("accepted").Inc()
	} else {
		resolutionsTotal.WithLabelValues("rejected").Inc()
	}
	return outcome{text: attempt.Text, found: true, result: res}
}

func (s *Session) finish(j *job, out outcome) Event {
	s.mu.Lock()
	s.busy = false
	if j.epoch != s.epoch {
		ev := s.eventLocked(Event{State: s.state, Note: "stale read dropped"})
		s.mu.Unlock()
		s.logger.Debug("Dropping read from an earlier epoch", "text", out.text)
		return ev
	}

	s.tracker.Reset()
	ev := Event{Region: j.region}
	switch {
	case out.found && out.result.Accepted:
		s.state = Committed
		s.paused = true
		ev.State = Committed
		ev.Commit = &Commit{
			RecognizedText: out.text,
			CanonicalName:  out.result.Name,
			Region:         j.region,
			Score:          out.result.Score,
			Accuracy:       similarity.Accuracy(out.text, out.result.Name),
			Candidate:      out.result.Candidate,
			At:             s.now(),
		}
	default:
		s.state = Rejected
		s.cooldownUntil = s.now().Add(s.cfg.Cooldown)
		ev.State = Rejected
		ev.Note = "no text"
		if out.found {
			ev.Note = fmt.Sprintf("rejected %q (%s)", out.text, out.result.Reason)
		}
	}
	ev = s.eventLocked(ev)
	s.mu.Unlock()

	if ev.Commit != nil {
		commitsTotal.Inc()
		s.logger.Info("Card committed",
			"text", ev.Commit.RecognizedText,
			"name", ev.Commit.CanonicalName,
			"score", ev.Commit.Score)
	} else {
		s.logger.Debug("Read rejected", "note", ev.Note)
	}
	s.emit(ev)
	return ev
}

// eventLocked stamps ev with the time and busy flag.
func (s *Session) eventLocked(ev Event) Event {
	ev.Busy = s.busy
	ev.At = s.now()
	return ev
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	obs := make([]Observer, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()
	for _, o := range obs {
		o(ev)
	}
}
