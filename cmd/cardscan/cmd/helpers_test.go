package cmd

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testSnapshot = `data:
  - id: 46986414
    name: Dark Magician
    card_sets:
      - set_name: Legend of Blue Eyes White Dragon
        set_code: LOB-005
        set_rarity: Ultra Rare
        set_rarity_code: (UR)
        set_price: "4.50"
      - set_name: Starter Deck Yugi
        set_code: SDY-006
        set_rarity: Ultra Rare
  - id: 40640057
    name: Kuriboh
`

// fakeBackend reads the same text from every image.
type fakeBackend struct{ text string }

func (f *fakeBackend) Recognize(context.Context, image.Image, recognizer.Options) (recognizer.Result, error) {
	return recognizer.Result{Text: f.text, Confidence: 88}, nil
}

func (f *fakeBackend) Close() error { return nil }

func useFakeBackend(t *testing.T, text string) {
	t.Helper()
	prev := newBackend
	newBackend = func(recognizer.Options) (recognizer.Backend, error) {
		return &fakeBackend{text: text}, nil
	}
	t.Cleanup(func() { newBackend = prev })
}

// isolate runs the test in an empty directory with no config file in reach.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cards.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0o600))
	return path
}

func writeCardFrame(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, testutil.CardFrame(testutil.DefaultCardConfig("Dark Magician")), path)
	return path
}

// executeCommand runs the root command with args and returns what it printed
// on stdout. Flags left over from earlier runs are cleared first.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
