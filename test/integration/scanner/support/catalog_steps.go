package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/cucumber/godog"
)

// theCardCatalog writes the snapshot to disk and loads it the way the CLI
// does with --snapshot.
func (testCtx *TestContext) theCardCatalog(doc *godog.DocString) error {
	path := filepath.Join(testCtx.TempDir, "cards.yaml")
	if err := os.WriteFile(path, []byte(doc.Content), 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	cat, err := catalog.LoadSnapshot(path)
	if err != nil {
		return err
	}
	testCtx.Catalog = cat
	testCtx.Resolver = nil
	return nil
}

func (testCtx *TestContext) theCatalogHoldsCards(n int) error {
	if got := len(testCtx.Catalog.Cards()); got != n {
		return fmt.Errorf("catalog holds %d cards, expected %d", got, n)
	}
	return nil
}

// RegisterCatalogSteps registers the catalog steps.
func (testCtx *TestContext) RegisterCatalogSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the card catalog:$`, testCtx.theCardCatalog)
	sc.Step(`^the catalog holds (\d+) cards?$`, testCtx.theCatalogHoldsCards)
}
