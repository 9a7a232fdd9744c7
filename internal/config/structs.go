//nolint:lll
package config

import (
	"github.com/MeKo-Tech/cardscan/internal/catalog"
	"github.com/MeKo-Tech/cardscan/internal/preprocess"
	"github.com/MeKo-Tech/cardscan/internal/resolver"
)

// Config represents the complete configuration for the cardscan application.
// It covers every command (scan, detect, resolve, printings, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Title band detection
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Stability gating
	Stability StabilityConfig `mapstructure:"stability" yaml:"stability" json:"stability"`

	// Session timing
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Text extraction
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor" json:"extractor"`

	// Fuzzy resolution
	Resolver resolver.Config `mapstructure:"resolver" yaml:"resolver" json:"resolver"`

	// Card catalog
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// DetectorConfig contains title band detection settings.
type DetectorConfig struct {
	BandHeights   []float64 `mapstructure:"band_heights" yaml:"band_heights" json:"band_heights"`
	SearchTop     float64   `mapstructure:"search_top" yaml:"search_top" json:"search_top"`
	SearchBottom  float64   `mapstructure:"search_bottom" yaml:"search_bottom" json:"search_bottom"`
	VertStep      float64   `mapstructure:"vert_step" yaml:"vert_step" json:"vert_step"`
	MinVertStepPx int       `mapstructure:"min_vert_step_px" yaml:"min_vert_step_px" json:"min_vert_step_px"`
	HorizInset    float64   `mapstructure:"horiz_inset" yaml:"horiz_inset" json:"horiz_inset"`
	HorizOffsetPx int       `mapstructure:"horiz_offset_px" yaml:"horiz_offset_px" json:"horiz_offset_px"`
	ExtraLeftPx   int       `mapstructure:"extra_left_px" yaml:"extra_left_px" json:"extra_left_px"`
	MinBandEnergy float64   `mapstructure:"min_band_energy" yaml:"min_band_energy" json:"min_band_energy"`
	ColTrimFactor float64   `mapstructure:"col_trim_factor" yaml:"col_trim_factor" json:"col_trim_factor"`
	RowTrimFactor float64   `mapstructure:"row_trim_factor" yaml:"row_trim_factor" json:"row_trim_factor"`
	MinWidthPct   float64   `mapstructure:"min_width_pct" yaml:"min_width_pct" json:"min_width_pct"`
	MinHeightPct  float64   `mapstructure:"min_height_pct" yaml:"min_height_pct" json:"min_height_pct"`
}

// StabilityConfig contains motion and contrast gating settings.
type StabilityConfig struct {
	StableWindow      string  `mapstructure:"stable_window" yaml:"stable_window" json:"stable_window"`
	MovementThreshold float64 `mapstructure:"movement_threshold" yaml:"movement_threshold" json:"movement_threshold"`
	MinContrast       float64 `mapstructure:"min_contrast" yaml:"min_contrast" json:"min_contrast"`
	VectorCols        int     `mapstructure:"vector_cols" yaml:"vector_cols" json:"vector_cols"`
	VectorRows        int     `mapstructure:"vector_rows" yaml:"vector_rows" json:"vector_rows"`
}

// ScannerConfig contains session timing settings.
type ScannerConfig struct {
	Interval string `mapstructure:"interval" yaml:"interval" json:"interval"`
	Cooldown string `mapstructure:"cooldown" yaml:"cooldown" json:"cooldown"`
}

// ExtractorConfig contains preprocessing and recognition settings.
type ExtractorConfig struct {
	Ladder         preprocess.Ladder `mapstructure:"ladder" yaml:"ladder" json:"ladder"`
	Whitelist      string            `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Language       string            `mapstructure:"language" yaml:"language" json:"language"`
	SingleLine     bool              `mapstructure:"single_line" yaml:"single_line" json:"single_line"`
	MinTextLen     int               `mapstructure:"min_text_len" yaml:"min_text_len" json:"min_text_len"`
	AttemptTimeout string            `mapstructure:"attempt_timeout" yaml:"attempt_timeout" json:"attempt_timeout"`
}

// CatalogConfig contains card catalog settings. A non-empty Snapshot
// replaces the remote API with a local card list.
type CatalogConfig struct {
	Snapshot  string                `mapstructure:"snapshot" yaml:"snapshot" json:"snapshot"`
	BaseURL   string                `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Timeout   string                `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	UserAgent string                `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	Breaker   catalog.BreakerConfig `mapstructure:"breaker" yaml:"breaker" json:"breaker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Upload rate limiting; zero disables a limit.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client upload limits.
type RateLimitConfig struct {
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerDay    int   `mapstructure:"requests_per_day" yaml:"requests_per_day" json:"requests_per_day"`
	MaxDataPerDayMB   int64 `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
