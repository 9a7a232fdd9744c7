package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

func (testCtx *TestContext) iResolve(text string) error {
	testCtx.LastResult = testCtx.resolverFor().Resolve(context.Background(), text)
	return nil
}

func (testCtx *TestContext) iResolveWithManualOverride(text, manual string) error {
	testCtx.LastResult = testCtx.resolverFor().ResolveWithOverride(context.Background(), manual, text)
	return nil
}

func (testCtx *TestContext) theResolutionIsAccepted(name, source string) error {
	res := testCtx.LastResult
	if !res.Accepted {
		return fmt.Errorf("resolution of %q was rejected (%s)", res.Query, res.Reason)
	}
	if res.Name != name {
		return fmt.Errorf("resolved to %q, expected %q", res.Name, name)
	}
	if string(res.Source) != source {
		return fmt.Errorf("resolved via %q, expected %q", res.Source, source)
	}
	return nil
}

func (testCtx *TestContext) theResolutionIsRejected(reason string) error {
	res := testCtx.LastResult
	if res.Accepted {
		return fmt.Errorf("resolution was accepted as %q", res.Name)
	}
	if res.Reason != reason {
		return fmt.Errorf("rejected with reason %q, expected %q", res.Reason, reason)
	}
	return nil
}

func (testCtx *TestContext) theMatchingQueryWas(q string) error {
	if got := testCtx.LastResult.MatchedBy; got != q {
		return fmt.Errorf("matched by %q, expected %q", got, q)
	}
	return nil
}

func (testCtx *TestContext) iLookUpThePrintingsOf(name string) error {
	testCtx.LastSummary, testCtx.LastFound = testCtx.resolverFor().Printings(context.Background(), name)
	return nil
}

func (testCtx *TestContext) thePrintingsListTheSets(list string) error {
	if !testCtx.LastFound {
		return fmt.Errorf("no printings were found")
	}
	var got []string
	for _, s := range testCtx.LastSummary.Sets {
		got = append(got, s.Code)
	}
	want := strings.Split(list, ",")
	for i := range want {
		want[i] = strings.TrimSpace(want[i])
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("printings list %v, expected %v", got, want)
	}
	return nil
}

func (testCtx *TestContext) noPrintingsAreFound() error {
	if testCtx.LastFound {
		return fmt.Errorf("printings were found for %q", testCtx.LastSummary.Name)
	}
	return nil
}

// RegisterResolverSteps registers the name resolution steps.
func (testCtx *TestContext) RegisterResolverSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I resolve "([^"]*)"$`, testCtx.iResolve)
	sc.Step(`^I resolve "([^"]*)" with manual override "([^"]*)"$`, testCtx.iResolveWithManualOverride)
	sc.Step(`^the resolution is accepted as "([^"]*)" via "([^"]*)"$`, testCtx.theResolutionIsAccepted)
	sc.Step(`^the resolution is rejected with reason "([^"]*)"$`, testCtx.theResolutionIsRejected)
	sc.Step(`^the matching query was "([^"]*)"$`, testCtx.theMatchingQueryWas)
	sc.Step(`^I look up the printings of "([^"]*)"$`, testCtx.iLookUpThePrintingsOf)
	sc.Step(`^the printings list the sets "([^"]*)"$`, testCtx.thePrintingsListTheSets)
	sc.Step(`^no printings are found$`, testCtx.noPrintingsAreFound)
}
