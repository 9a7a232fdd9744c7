package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/MeKo-Tech/cardscan/internal/version"
	"github.com/spf13/cobra"
)

// newBackend opens the text recognition engine linked into the binary.
var newBackend = func(opts recognizer.Options) (recognizer.Backend, error) {
	return recognizer.New(opts)
}

// commandContext returns the command's context, which is nil when RunE is
// called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// commandConfig returns the validated configuration for a command run.
func commandConfig() (*config.Config, error) {
	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newDetector(cfg *config.Config) *detector.Detector {
	return detector.New(cfg.ToDetectorConfig())
}

// newExtractor opens the recognition backend. The caller closes the backend.
func newExtractor(cfg *config.Config) (*recognizer.Extractor, recognizer.Backend, error) {
	backend, err := newBackend(cfg.ToRecognizerOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recognizer: %w", err)
	}
	ec := cfg.ToExtractorConfig()
	ec.OnAttempt = scanner.ObserveAttempt
	return recognizer.NewExtractor(backend, ec).WithLogger(slog.Default()), backend, nil
}

// newSearcher returns the offline snapshot when one is configured and the
// HTTP catalog otherwise.
func newSearcher(cfg *config.Config) (catalog.Searcher, error) {
	if cfg.Catalog.Snapshot != "" {
		s, err := catalog.LoadSnapshot(cfg.Catalog.Snapshot)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded catalog snapshot", "path", cfg.Catalog.Snapshot, "cards", len(s.Cards()))
		return s, nil
	}

	httpCfg := cfg.ToHTTPConfig()
	if httpCfg.UserAgent == catalog.DefaultHTTPConfig().UserAgent {
		httpCfg.UserAgent = version.UserAgent()
	}
	slog.Debug("Using HTTP catalog", "base_url", httpCfg.BaseURL, "timeout", httpCfg.Timeout)
	return catalog.NewHTTPClient(httpCfg, nil), nil
}

func newResolver(cfg *config.Config) (*resolver.Resolver, error) {
	s, err := newSearcher(cfg)
	if err != nil {
		return nil, err
	}
	return resolver.New(s, cfg.Resolver).WithLogger(slog.Default()), nil
}
