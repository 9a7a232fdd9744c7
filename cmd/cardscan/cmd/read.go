package cmd

import (
	"encoding/json"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/similarity"
	"github.com/spf13/cobra"
)

// ReadResult is printed by the read command.
type ReadResult struct {
	File       string          `json:"file"`
	Region     detector.Region `json:"region"`
	Text       string          `json:"text"`
	RawText    string          `json:"raw_text,omitempty"`
	Variant    string          `json:"variant,omitempty"`
	Confidence float64         `json:"confidence"`
	Accuracy   int             `json:"accuracy"`
	Resolution resolver.Result `json:"resolution"`
	ElapsedMs  int64           `json:"elapsed_ms"`
}

// readCmd represents the read command.
var readCmd = &cobra.Command{
	Use:   "read <image>",
	Short: "Read and resolve the title of a single frame",
	Long: `Detect the title band of a single frame, read it through the
enhancement ladder and resolve the text against the catalog, without waiting
for stability. --manual skips reading and resolves the given name instead.

Examples:
  cardscan read frame.png
  cardscan read frame.png --snapshot cards.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig()
	if err != nil {
		return err
	}

	f, err := frame.Load(args[0])
	if err != nil {
		return err
	}

	extractor, backend, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	res, err := newResolver(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	start := time.Now()
	out := ReadResult{File: args[0], Region: newDetector(cfg).DetectFrame(f)}
	manual, _ := cmd.Flags().GetString("manual")

	if attempt, ok := extractor.Extract(ctx, out.Region.Crop(f)); ok {
		out.Text = attempt.Text
		out.RawText = attempt.RawText
		out.Variant = attempt.Variant.String()
		out.Confidence = attempt.Confidence
	}
	if out.Text == "" && manual == "" {
		out.Resolution = resolver.Rejected("", resolver.ReasonEmpty, nil, 0)
	} else {
		out.Resolution = res.ResolveWithOverride(ctx, manual, out.Text)
	}
	if out.Resolution.Accepted && out.Text != "" {
		out.Accuracy = similarity.Accuracy(out.Text, out.Resolution.Name)
	}
	out.ElapsedMs = time.Since(start).Milliseconds()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().String("manual", "", "card name that overrides the text read from the frame")
}
