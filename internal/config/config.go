package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/recognizer"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
	"github.com/MeKo-Tech/cardscan/internal/scanner"
	"github.com/MeKo-Tech/cardscan/internal/server"
	"github.com/MeKo-Tech/cardscan/internal/stability"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	scan := scanner.DefaultConfig()
	ext := recognizer.DefaultExtractorConfig()
	httpCfg := catalog.DefaultHTTPConfig()

	return Config{
		LogLevel:  "info",
		Verbose:   false,
		Detector:  defaultDetectorConfig(),
		Stability: defaultStabilityConfig(),
		Scanner: ScannerConfig{
			Interval: scan.Interval.String(),
			Cooldown: scan.Cooldown.String(),
		},
		Extractor: ExtractorConfig{
			Ladder:         ext.Ladder,
			Whitelist:      ext.Options.Whitelist,
			Language:       ext.Options.Language,
			SingleLine:     ext.Options.SingleLine,
			MinTextLen:     ext.MinTextLen,
			AttemptTimeout: ext.AttemptTimeout.String(),
		},
		Resolver: resolver.DefaultConfig(),
		Catalog: CatalogConfig{
			BaseURL:   httpCfg.BaseURL,
			Timeout:   httpCfg.Timeout.String(),
			UserAgent: httpCfg.UserAgent,
			Breaker:   httpCfg.Breaker,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// defaultDetectorConfig returns default detector configuration.
func defaultDetectorConfig() DetectorConfig {
	cfg := detector.DefaultConfig()
	return DetectorConfig{
		BandHeights:   cfg.BandHeights,
		SearchTop:     cfg.SearchTop,
		SearchBottom:  cfg.SearchBottom,
		VertStep:      cfg.VertStep,
		MinVertStepPx: cfg.MinVertStepPx,
		HorizInset:    cfg.HorizInset,
		HorizOffsetPx: cfg.HorizOffsetPx,
		ExtraLeftPx:   cfg.ExtraLeftPx,
		MinBandEnergy: cfg.MinBandEnergy,
		ColTrimFactor: cfg.ColTrimFactor,
		RowTrimFactor: cfg.RowTrimFactor,
		MinWidthPct:   cfg.MinWidthPct,
		MinHeightPct:  cfg.MinHeightPct,
	}
}

// defaultStabilityConfig returns default stability configuration.
func defaultStabilityConfig() StabilityConfig {
	cfg := stability.DefaultConfig()
	return StabilityConfig{
		StableWindow:      cfg.StableWindow.String(),
		MovementThreshold: cfg.MovementThreshold,
		MinContrast:       cfg.MinContrast,
		VectorCols:        cfg.VectorCols,
		VectorRows:        cfg.VectorRows,
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if err := c.ToDetectorConfig().Validate(); err != nil {
		return err
	}

	for key, value := range map[string]string{
		"stability.stable_window":   c.Stability.StableWindow,
		"scanner.interval":          c.Scanner.Interval,
		"scanner.cooldown":          c.Scanner.Cooldown,
		"extractor.attempt_timeout": c.Extractor.AttemptTimeout,
		"catalog.timeout":           c.Catalog.Timeout,
	} {
		if _, err := parseDuration(value, key); err != nil {
			return err
		}
	}
	if d, _ := parseDuration(c.Scanner.Interval, "scanner.interval"); d <= 0 {
		return fmt.Errorf("invalid scanner.interval: %s (must be positive)", c.Scanner.Interval)
	}
	if c.Stability.MovementThreshold <= 0 {
		return fmt.Errorf("invalid stability.movement_threshold: %.2f (must be positive)", c.Stability.MovementThreshold)
	}
	if c.Stability.MinContrast < 0 {
		return fmt.Errorf("invalid stability.min_contrast: %.2f (must not be negative)", c.Stability.MinContrast)
	}

	if err := c.Extractor.Ladder.Validate(); err != nil {
		return err
	}
	if c.Extractor.MinTextLen < 1 {
		return fmt.Errorf("invalid extractor.min_text_len: %d (must be positive)", c.Extractor.MinTextLen)
	}

	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if c.Catalog.Snapshot == "" && c.Catalog.BaseURL == "" {
		return errors.New("catalog: either base_url or snapshot must be set")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	return nil
}

// ToDetectorConfig converts to detector.Config.
func (c *Config) ToDetectorConfig() detector.Config {
	d := c.Detector
	return detector.Config{
		BandHeights:   d.BandHeights,
		SearchTop:     d.SearchTop,
		SearchBottom:  d.SearchBottom,
		VertStep:      d.VertStep,
		MinVertStepPx: d.MinVertStepPx,
		HorizInset:    d.HorizInset,
		HorizOffsetPx: d.HorizOffsetPx,
		ExtraLeftPx:   d.ExtraLeftPx,
		MinBandEnergy: d.MinBandEnergy,
		ColTrimFactor: d.ColTrimFactor,
		RowTrimFactor: d.RowTrimFactor,
		MinWidthPct:   d.MinWidthPct,
		MinHeightPct:  d.MinHeightPct,
	}
}

// ToScannerConfig converts to scanner.Config. The stability sample interval
// follows the session interval.
func (c *Config) ToScannerConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Interval = durationOr(c.Scanner.Interval, cfg.Interval)
	cfg.Cooldown = durationOr(c.Scanner.Cooldown, cfg.Cooldown)
	cfg.Stability = c.toStabilityConfig()
	cfg.Stability.SampleInterval = cfg.Interval
	return cfg
}

// toStabilityConfig converts to stability.Config.
func (c *Config) toStabilityConfig() stability.Config {
	cfg := stability.DefaultConfig()
	cfg.StableWindow = durationOr(c.Stability.StableWindow, cfg.StableWindow)
	cfg.MovementThreshold = c.Stability.MovementThreshold
	cfg.MinContrast = c.Stability.MinContrast
	if c.Stability.VectorCols > 0 && c.Stability.VectorRows > 0 {
		cfg.VectorCols = c.Stability.VectorCols
		cfg.VectorRows = c.Stability.VectorRows
	}
	return cfg
}

// ToExtractorConfig converts to recognizer.ExtractorConfig.
func (c *Config) ToExtractorConfig() recognizer.ExtractorConfig {
	cfg := recognizer.DefaultExtractorConfig()
	cfg.Ladder = c.Extractor.Ladder
	cfg.Options = c.ToRecognizerOptions()
	cfg.MinTextLen = c.Extractor.MinTextLen
	cfg.AttemptTimeout = durationOr(c.Extractor.AttemptTimeout, cfg.AttemptTimeout)
	return cfg
}

// ToRecognizerOptions converts to recognizer.Options.
func (c *Config) ToRecognizerOptions() recognizer.Options {
	return recognizer.Options{
		Whitelist:  c.Extractor.Whitelist,
		SingleLine: c.Extractor.SingleLine,
		Language:   c.Extractor.Language,
	}
}

// ToHTTPConfig converts to catalog.HTTPConfig.
func (c *Config) ToHTTPConfig() catalog.HTTPConfig {
	cfg := catalog.DefaultHTTPConfig()
	if c.Catalog.BaseURL != "" {
		cfg.BaseURL = c.Catalog.BaseURL
	}
	if c.Catalog.UserAgent != "" {
		cfg.UserAgent = c.Catalog.UserAgent
	}
	cfg.Timeout = durationOr(c.Catalog.Timeout, cfg.Timeout)
	cfg.Breaker = c.Catalog.Breaker
	return cfg
}

// ToServerConfig converts to server.Config.
func (c *Config) ToServerConfig() server.Config {
	rl := c.Server.RateLimit
	return server.Config{
		Host:              c.Server.Host,
		Port:              c.Server.Port,
		CORSOrigin:        c.Server.CORSOrigin,
		MaxUploadMB:       int64(c.Server.MaxUploadMB),
		TimeoutSec:        c.Server.TimeoutSec,
		RequestsPerMinute: rl.RequestsPerMinute,
		RequestsPerDay:    rl.RequestsPerDay,
		MaxDataPerDay:     rl.MaxDataPerDayMB * 1024 * 1024,
	}
}

// Helper functions

// parseDuration parses a Go duration string, naming key in the error.
func parseDuration(value, key string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q (%w)", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: %s (must not be negative)", key, value)
	}
	return d, nil
}

// durationOr parses value, falling back to def when it is empty or invalid.
func durationOr(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
