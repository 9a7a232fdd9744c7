package support

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
)

// TestContext holds the state shared by the steps of one scenario.
type TestContext struct {
	TempDir string

	// Catalog and resolution state
	Catalog     *catalog.Static
	Resolver    *resolver.Resolver
	LastResult  resolver.Result
	LastSummary catalog.Summary
	LastFound   bool

	// Recognizer double
	recognizedText  string
	RecognizerCalls atomic.Int32

	// Session state
	Source  *frame.LatestSource
	Session *scanner.Session
	Events  []scanner.Event
	Commits []scanner.Commit

	mu  sync.Mutex
	now time.Time
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "cardscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir: tempDir,
		Catalog: catalog.NewStatic(),
		now:     time.Unix(1_700_000_000, 0),
	}, nil
}

// Cleanup removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// Clock is the scenario's manual clock.
func (testCtx *TestContext) Clock() time.Time {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	return testCtx.now
}

// Advance moves the manual clock forward.
func (testCtx *TestContext) Advance(d time.Duration) {
	testCtx.mu.Lock()
	testCtx.now = testCtx.now.Add(d)
	testCtx.mu.Unlock()
}

func (testCtx *TestContext) setRecognizedText(s string) {
	testCtx.mu.Lock()
	testCtx.recognizedText = s
	testCtx.mu.Unlock()
}

// recognize stands in for the OCR backend and reads the configured text
// from every image.
func (testCtx *TestContext) recognize(context.Context, image.Image, recognizer.Options) (recognizer.Result, error) {
	testCtx.RecognizerCalls.Add(1)
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	return recognizer.Result{Text: testCtx.recognizedText, Confidence: 90}, nil
}

// resolverFor returns the scenario resolver, creating it over the current
// catalog on first use.
func (testCtx *TestContext) resolverFor() *resolver.Resolver {
	if testCtx.Resolver == nil {
		testCtx.Resolver = resolver.New(testCtx.Catalog, resolver.DefaultConfig())
	}
	return testCtx.Resolver
}

func (testCtx *TestContext) record(ev scanner.Event) {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	testCtx.Events = append(testCtx.Events, ev)
	if ev.Commit != nil {
		testCtx.Commits = append(testCtx.Commits, *ev.Commit)
	}
}

func (testCtx *TestContext) lastEvent() (scanner.Event, error) {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	if len(testCtx.Events) == 0 {
		return scanner.Event{}, fmt.Errorf("no events recorded")
	}
	return testCtx.Events[len(testCtx.Events)-1], nil
}
