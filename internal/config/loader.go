package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "cardscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "CARDSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader over an isolated viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration and any error encountered.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final Validate call. The
// config commands use it to show or repair a broken file.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing file is fine when searching; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	// Current directory
	l.v.AddConfigPath(".")

	// User's home directory
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	// System-wide configuration
	l.v.AddConfigPath("/etc/cardscan")

	// XDG config directory
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "cardscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "cardscan"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	// Set the prefix for environment variables
	l.v.SetEnvPrefix(EnvPrefix)

	// Enable automatic environment variable binding
	l.v.AutomaticEnv()

	// Replace dots and dashes with underscores in env var names
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
// Durations are registered as strings so generated files stay readable.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Detector defaults
	d := defaults.Detector
	l.v.SetDefault("detector.band_heights", d.BandHeights)
	l.v.SetDefault("detector.search_top", d.SearchTop)
	l.v.SetDefault("detector.search_bottom", d.SearchBottom)
	l.v.SetDefault("detector.vert_step", d.VertStep)
	l.v.SetDefault("detector.min_vert_step_px", d.MinVertStepPx)
	l.v.SetDefault("detector.horiz_inset", d.HorizInset)
	l.v.SetDefault("detector.horiz_offset_px", d.HorizOffsetPx)
	l.v.SetDefault("detector.extra_left_px", d.ExtraLeftPx)
	l.v.SetDefault("detector.min_band_energy", d.MinBandEnergy)
	l.v.SetDefault("detector.col_trim_factor", d.ColTrimFactor)
	l.v.SetDefault("detector.row_trim_factor", d.RowTrimFactor)
	l.v.SetDefault("detector.min_width_pct", d.MinWidthPct)
	l.v.SetDefault("detector.min_height_pct", d.MinHeightPct)

	// Stability and session defaults
	l.v.SetDefault("stability.stable_window", defaults.Stability.StableWindow)
	l.v.SetDefault("stability.movement_threshold", defaults.Stability.MovementThreshold)
	l.v.SetDefault("stability.min_contrast", defaults.Stability.MinContrast)
	l.v.SetDefault("stability.vector_cols", defaults.Stability.VectorCols)
	l.v.SetDefault("stability.vector_rows", defaults.Stability.VectorRows)
	l.v.SetDefault("scanner.interval", defaults.Scanner.Interval)
	l.v.SetDefault("scanner.cooldown", defaults.Scanner.Cooldown)

	// Extractor defaults
	l.v.SetDefault("extractor.ladder.fast", defaults.Extractor.Ladder.Fast)
	l.v.SetDefault("extractor.ladder.fallback", defaults.Extractor.Ladder.Fallback)
	l.v.SetDefault("extractor.whitelist", defaults.Extractor.Whitelist)
	l.v.SetDefault("extractor.language", defaults.Extractor.Language)
	l.v.SetDefault("extractor.single_line", defaults.Extractor.SingleLine)
	l.v.SetDefault("extractor.min_text_len", defaults.Extractor.MinTextLen)
	l.v.SetDefault("extractor.attempt_timeout", defaults.Extractor.AttemptTimeout)

	// Resolver defaults
	l.v.SetDefault("resolver.threshold", defaults.Resolver.Threshold)
	l.v.SetDefault("resolver.min_alnum", defaults.Resolver.MinAlnum)
	l.v.SetDefault("resolver.max_chunks", defaults.Resolver.MaxChunks)
	l.v.SetDefault("resolver.cache.ttl", defaults.Resolver.Cache.TTL.String())
	l.v.SetDefault("resolver.cache.capacity", defaults.Resolver.Cache.Capacity)

	// Catalog defaults
	l.v.SetDefault("catalog.snapshot", defaults.Catalog.Snapshot)
	l.v.SetDefault("catalog.base_url", defaults.Catalog.BaseURL)
	l.v.SetDefault("catalog.timeout", defaults.Catalog.Timeout)
	l.v.SetDefault("catalog.user_agent", defaults.Catalog.UserAgent)
	l.v.SetDefault("catalog.breaker.threshold", defaults.Catalog.Breaker.Threshold)
	l.v.SetDefault("catalog.breaker.reset_timeout", defaults.Catalog.Breaker.ResetTimeout.String())
	l.v.SetDefault("catalog.breaker.half_open_successes", defaults.Catalog.Breaker.HalfOpenSuccesses)

	// Server defaults
	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.requests_per_minute", defaults.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_day", defaults.Server.RateLimit.RequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", defaults.Server.RateLimit.MaxDataPerDayMB)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWith(viper.New())
	loader.setDefaults()

	// If no filename provided, use default
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "cardscan"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "cardscan"))
	}

	paths = append(paths, "/etc/cardscan")

	return paths
}

// PrintConfigInfo prints information about configuration loading for debugging.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", l.GetConfigFileUsed())
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}
