package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan <frames-dir>",
	Short: "Run a scanning session over a directory of frames",
	Long: `Run a scanning session that samples the images of a directory in name
order as if they came from a camera. Every committed card is printed as one
JSON line.

After each commit the session resumes, so a card that stays in view is
committed again. The session stops after --max-commits commits, after
--max-ticks samples, or when interrupted.

Examples:
  cardscan scan ./frames
  cardscan scan ./frames --loop --max-commits 3
  cardscan scan ./frames --events --interval 250ms`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig()
	if err != nil {
		return err
	}

	loop, _ := cmd.Flags().GetBool("loop")
	maxCommits, _ := cmd.Flags().GetInt("max-commits")
	events, _ := cmd.Flags().GetBool("events")
	maxTicks, _ := cmd.Flags().GetInt("max-ticks")

	src, err := frame.NewDirSource(args[0], loop)
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

	session, err := scanner.New(cfg.ToScannerConfig(), scanner.Deps{
		Source:    src,
		Detector:  newDetector(cfg),
		Extractor: extractor,
		Resolver:  res,
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		commits int
		ticks   int
		werr    error
	)
	enc := json.NewEncoder(cmd.OutOrStdout())
	session.Subscribe(func(ev scanner.Event) {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		switch {
		case ev.Commit != nil:
			commits++
			if err := enc.Encode(ev.Commit); err != nil && werr == nil {
				werr = err
			}
			if maxCommits > 0 && commits >= maxCommits {
				cancel()
				return
			}
			// Keep scanning the remaining frames.
			go session.Resume()
		case events:
			if err := enc.Encode(ev); err != nil && werr == nil {
				werr = err
			}
		}
		if maxTicks > 0 && ticks >= maxTicks {
			cancel()
		}
	})

	slog.Info("Scanning frames", "dir", args[0], "frames", len(src.Paths), "loop", loop)
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	slog.Info("Scan finished", "commits", commits, "ticks", ticks)
	return werr
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("loop", false, "restart from the first frame after the last one")
	scanCmd.Flags().Int("max-commits", 1, "stop after this many commits (0 = unlimited)")
	scanCmd.Flags().Int("max-ticks", 0, "stop after this many samples (0 = unlimited)")
	scanCmd.Flags().Bool("events", false, "print every session event, not just commits")
	scanCmd.Flags().String("interval", "", "sampling interval (e.g. 500ms)")
	scanCmd.Flags().String("cooldown", "", "rest after a rejected read (e.g. 800ms)")

	_ = viper.BindPFlag("scanner.interval", scanCmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("scanner.cooldown", scanCmd.Flags().Lookup("cooldown"))
}
