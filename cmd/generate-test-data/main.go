package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/MeKo-Tech/cardscan/internal/utils"
	"gopkg.in/yaml.v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		titles       = flag.String("titles", "Dark Magician,Kuriboh", "Comma-separated card titles to render")
		steady       = flag.Int("steady", 4, "Identical frames per card")
		gap          = flag.Int("gap", 2, "Blank frames between cards")
		outDir       = flag.String("out", "testdata/frames", "Output directory for the frame sequence")
		snapshotPath = flag.String("snapshot", "testdata/cards.yaml", "Catalog snapshot to write; empty skips it")
		verbose      = flag.Bool("v", false, "Verbose output")
		help         = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic camera frames and a matching catalog snapshot.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                                 # Two cards into testdata/frames\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -titles \"Pot of Greed\" -steady 8 # One card held longer\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nReplay the result with:\n  cardscan scan testdata/frames --snapshot testdata/cards.yaml --max-commits 0\n")
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	cards := splitTitles(*titles)
	if len(cards) == 0 {
		slog.Error("No titles given")
		os.Exit(1)
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Options", "root", root, "titles", cards, "steady", *steady, "gap", *gap)
	}

	n, err := generateFrames(*outDir, sequence(cards, *steady, *gap))
	if err != nil {
		slog.Error("Failed to generate frames", "error", err)
		os.Exit(1)
	}
	slog.Info("Generated frame sequence", "dir", *outDir, "frames", n)

	if *snapshotPath != "" {
		if err := generateSnapshot(*snapshotPath, cards); err != nil {
			slog.Error("Failed to generate snapshot", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated catalog snapshot", "path", *snapshotPath, "cards", len(cards))
	}
}

func splitTitles(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// sequence lays out steady frames of each card separated by blank frames,
// so the scanner sees motion between cards.
func sequence(titles []string, steady, gap int) []image.Image {
	steady = max(steady, 1)
	blank := testutil.FlatFrame(420, 600, testutil.DefaultCardConfig("").Background)

	var frames []image.Image
	for i, title := range titles {
		if i > 0 {
			for range gap {
				frames = append(frames, blank)
			}
		}
		card := testutil.CardFrame(testutil.DefaultCardConfig(title))
		for range steady {
			frames = append(frames, card)
		}
	}
	return frames
}

func generateFrames(dir string, frames []image.Image) (int, error) {
	if err := testutil.EnsureDir(dir); err != nil {
		return 0, fmt.Errorf("failed to create frames directory: %w", err)
	}
	for i, img := range frames {
		path := filepath.Join(dir, fmt.Sprintf("%03d.png", i))
		if err := utils.SavePNG(img, path); err != nil {
			return i, fmt.Errorf("failed to save frame %d: %w", i, err)
		}
	}
	return len(frames), nil
}

type snapshotCard struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// generateSnapshot writes a catalog snapshot in the card API's response
// shape, one card per title with made-up ids.
func generateSnapshot(path string, titles []string) error {
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	doc := struct {
		Data []snapshotCard `yaml:"data"`
	}{}
	for i, t := range titles {
		doc.Data = append(doc.Data, snapshotCard{ID: int64(1000 + i), Name: t})
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
