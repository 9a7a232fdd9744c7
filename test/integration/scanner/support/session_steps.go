package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) theRecognizerReads(text string) error {
	testCtx.setRecognizedText(text)
	return nil
}

func (testCtx *TestContext) aScanningSession() error {
	testCtx.Source = frame.NewLatestSource()
	s, err := scanner.New(scanner.DefaultConfig(), scanner.Deps{
		Source:    testCtx.Source,
		Extractor: recognizer.NewExtractor(recognizer.Func(testCtx.recognize), recognizer.DefaultExtractorConfig()),
		Resolver:  testCtx.resolverFor(),
		Clock:     testCtx.Clock,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.Subscribe(testCtx.record)
	testCtx.Session = s
	return nil
}

func (testCtx *TestContext) session() (*scanner.Session, error) {
	if testCtx.Session == nil {
		return nil, fmt.Errorf("no scanning session was started")
	}
	return testCtx.Session, nil
}

func (testCtx *TestContext) theCameraShowsTheCard(title string) error {
	if testCtx.Source == nil {
		return fmt.Errorf("no scanning session was started")
	}
	testCtx.Source.Push(testutil.CardFrame(testutil.DefaultCardConfig(title)))
	return nil
}

func (testCtx *TestContext) theCameraShowsABlankFrame() error {
	if testCtx.Source == nil {
		return fmt.Errorf("no scanning session was started")
	}
	testCtx.Source.Push(testutil.FlatFrame(420, 600, testutil.DefaultCardConfig("").Card))
	return nil
}

func (testCtx *TestContext) samplesAreTaken(n int) error {
	s, err := testCtx.session()
	if err != nil {
		return err
	}
	for range n {
		s.Step(context.Background())
	}
	return nil
}

func (testCtx *TestContext) aSampleIsTaken() error {
	return testCtx.samplesAreTaken(1)
}

func (testCtx *TestContext) timePasses(ms int) error {
	testCtx.Advance(time.Duration(ms) * time.Millisecond)
	return nil
}

func (testCtx *TestContext) iPauseTheSession() error {
	s, err := testCtx.session()
	if err != nil {
		return err
	}
	s.Pause()
	return nil
}

func (testCtx *TestContext) iResumeTheSession() error {
	s, err := testCtx.session()
	if err != nil {
		return err
	}
	s.Resume()
	return nil
}

func (testCtx *TestContext) iResetTheSession() error {
	s, err := testCtx.session()
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

func (testCtx *TestContext) theSessionStateIs(want string) error {
	s, err := testCtx.session()
	if err != nil {
		return err
	}
	if got := string(s.State()); got != want {
		return fmt.Errorf("session state is %q, expected %q", got, want)
	}
	return nil
}

func (testCtx *TestContext) theSessionNeverScanned() error {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	for i, ev := range testCtx.Events {
		if ev.State == scanner.Scanning {
			return fmt.Errorf("event %d was scanning", i)
		}
	}
	return nil
}

func (testCtx *TestContext) commitsWereMade(n int) error {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	if got := len(testCtx.Commits); got != n {
		return fmt.Errorf("%d commits were made, expected %d", got, n)
	}
	return nil
}

func (testCtx *TestContext) theLastCommitIs(name string, accuracy int) error {
	testCtx.mu.Lock()
	defer testCtx.mu.Unlock()
	if len(testCtx.Commits) == 0 {
		return fmt.Errorf("no commit was made")
	}
	c := testCtx.Commits[len(testCtx.Commits)-1]
	if c.CanonicalName != name {
		return fmt.Errorf("last commit is %q, expected %q", c.CanonicalName, name)
	}
	if c.Accuracy != accuracy {
		return fmt.Errorf("last commit accuracy is %d, expected %d", c.Accuracy, accuracy)
	}
	return nil
}

func (testCtx *TestContext) theRecognizerWasCalled(n int) error {
	if got := int(testCtx.RecognizerCalls.Load()); got != n {
		return fmt.Errorf("recognizer was called %d times, expected %d", got, n)
	}
	return nil
}

func (testCtx *TestContext) theRecognizerWasNotCalled() error {
	return testCtx.theRecognizerWasCalled(0)
}

func (testCtx *TestContext) theLastEventNoteContains(want string) error {
	ev, err := testCtx.lastEvent()
	if err != nil {
		return err
	}
	if !strings.Contains(ev.Note, want) {
		return fmt.Errorf("last event note %q does not contain %q", ev.Note, want)
	}
	return nil
}

// RegisterSessionSteps registers the scanning session steps.
func (testCtx *TestContext) RegisterSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the recognizer reads "([^"]*)"$`, testCtx.theRecognizerReads)
	sc.Step(`^a scanning session$`, testCtx.aScanningSession)
	sc.Step(`^the camera shows the card "([^"]*)"$`, testCtx.theCameraShowsTheCard)
	sc.Step(`^the camera shows a blank frame$`, testCtx.theCameraShowsABlankFrame)
	sc.Step(`^(\d+) samples are taken$`, testCtx.samplesAreTaken)
	sc.Step(`^a sample is taken$`, testCtx.aSampleIsTaken)
	sc.Step(`^(\d+)ms pass$`, testCtx.timePasses)
	sc.Step(`^I pause the session$`, testCtx.iPauseTheSession)
	sc.Step(`^I resume the session$`, testCtx.iResumeTheSession)
	sc.Step(`^I reset the session$`, testCtx.iResetTheSession)
	sc.Step(`^the session state is "([^"]*)"$`, testCtx.theSessionStateIs)
	sc.Step(`^the session never started a read$`, testCtx.theSessionNeverScanned)
	sc.Step(`^(\d+) commits? (?:was|were) made$`, testCtx.commitsWereMade)
	sc.Step(`^the last commit is "([^"]*)" with accuracy (\d+)$`, testCtx.theLastCommitIs)
	sc.Step(`^the recognizer was called (\d+) times?$`, testCtx.theRecognizerWasCalled)
	sc.Step(`^the recognizer was not called$`, testCtx.theRecognizerWasNotCalled)
	sc.Step(`^the last event note contains "([^"]*)"$`, testCtx.theLastEventNoteContains)
}
