// Package config loads isoscan settings from defaults, config files,
// environment variables and flags through viper.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/filter"
	"github.com/ChrisMcGann/isoscan/pkg/fragment"
)

// EnvPrefix prefixes every environment variable read by isoscan.
const EnvPrefix = "ISOSCAN"

// Config represents the application configuration
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	Color     bool   `mapstructure:"color" yaml:"color"`

	Filter   FilterConfig   `mapstructure:"filter" yaml:"filter"`
	Match    MatchConfig    `mapstructure:"match" yaml:"match"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Library  LibraryConfig  `mapstructure:"library" yaml:"library"`
}

// FilterConfig selects peak filtering and noise removal.
type FilterConfig struct {
	Method             string  `mapstructure:"method" yaml:"method"`
	SignalToNoiseRatio float64 `mapstructure:"signal_to_noise_ratio" yaml:"signal_to_noise_ratio"`
	WindowPpm          float64 `mapstructure:"window_ppm" yaml:"window_ppm"`
	SlopeThreshold     float64 `mapstructure:"slope_threshold" yaml:"slope_threshold"`
	TopN               int     `mapstructure:"top_n" yaml:"top_n"`
	IntensityCutoff    float64 `mapstructure:"intensity_cutoff" yaml:"intensity_cutoff"`
}

// MatchConfig controls isotope envelope matching.
type MatchConfig struct {
	Tolerance                  string  `mapstructure:"tolerance" yaml:"tolerance"`
	RelativeIntensityThreshold float64 `mapstructure:"relative_intensity_threshold" yaml:"relative_intensity_threshold"`
	MaxIsotopes                int     `mapstructure:"max_isotopes" yaml:"max_isotopes"`
	MaxCharge                  int     `mapstructure:"max_charge" yaml:"max_charge"`
}

// PipelineConfig sizes the processing pipeline.
type PipelineConfig struct {
	Threads   int `mapstructure:"threads" yaml:"threads"`
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`
}

// LibraryConfig points at optional library annotation files.
type LibraryConfig struct {
	ModFile           string `mapstructure:"mod_file" yaml:"mod_file"`
	MassOffsetFile    string `mapstructure:"mass_offset_file" yaml:"mass_offset_file"`
	CompoundClassFile string `mapstructure:"compound_class_file" yaml:"compound_class_file"`
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("color", true)

	v.SetDefault("filter.method", string(filter.MethodNone))
	v.SetDefault("filter.signal_to_noise_ratio", filter.DefaultSignalToNoiseRatio)
	v.SetDefault("filter.window_ppm", filter.DefaultWindowPpm)
	v.SetDefault("filter.slope_threshold", filter.DefaultFilteredSlopeThreshold)
	v.SetDefault("filter.top_n", 0)
	v.SetDefault("filter.intensity_cutoff", 0.0)

	v.SetDefault("match.tolerance", "10ppm")
	v.SetDefault("match.relative_intensity_threshold", core.DefaultRelativeIntensityThreshold)
	v.SetDefault("match.max_isotopes", core.DefaultMaxIsotopes)
	v.SetDefault("match.max_charge", 0)

	v.SetDefault("pipeline.threads", runtime.NumCPU())
	v.SetDefault("pipeline.chunk_size", 10000)

	v.SetDefault("library.mod_file", "")
	v.SetDefault("library.mass_offset_file", "")
	v.SetDefault("library.compound_class_file", "")
}

// New returns a viper instance with defaults and ISOSCAN_ environment
// variables wired, e.g. ISOSCAN_FILTER_METHOD for filter.method.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	// defaults always decode
	_ = v.Unmarshal(cfg)
	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := filter.ParseMethod(c.Filter.Method); err != nil {
		return fmt.Errorf("filter.method: %w", err)
	}
	if c.Filter.SignalToNoiseRatio <= 0 {
		return fmt.Errorf("filter.signal_to_noise_ratio must be positive")
	}
	if c.Filter.WindowPpm <= 0 {
		return fmt.Errorf("filter.window_ppm must be positive")
	}
	if c.Filter.TopN < 0 {
		return fmt.Errorf("filter.top_n cannot be negative")
	}
	if c.Filter.IntensityCutoff < 0 || c.Filter.IntensityCutoff > 100 {
		return fmt.Errorf("filter.intensity_cutoff must be between 0 and 100")
	}
	if _, err := core.ParseTolerance(c.Match.Tolerance); err != nil {
		return fmt.Errorf("match.tolerance: %w", err)
	}
	if c.Match.RelativeIntensityThreshold < 0 || c.Match.RelativeIntensityThreshold > 1 {
		return fmt.Errorf("match.relative_intensity_threshold must be between 0 and 1")
	}
	if c.Match.MaxIsotopes < 0 || c.Match.MaxCharge < 0 {
		return fmt.Errorf("match.max_isotopes and match.max_charge cannot be negative")
	}
	if c.Pipeline.Threads < 1 {
		return fmt.Errorf("pipeline.threads must be at least 1")
	}
	if c.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("pipeline.chunk_size must be at least 1")
	}
	return nil
}

// FilterConfig converts the filter section to a filter.Config.
func (c *Config) FilterConfig() (filter.Config, error) {
	method, err := filter.ParseMethod(c.Filter.Method)
	if err != nil {
		return filter.Config{}, err
	}
	return filter.Config{
		Method:             method,
		SignalToNoiseRatio: c.Filter.SignalToNoiseRatio,
		WindowPpm:          c.Filter.WindowPpm,
		SlopeThreshold:     c.Filter.SlopeThreshold,
		TopN:               c.Filter.TopN,
		IntensityCutoff:    c.Filter.IntensityCutoff,
	}, nil
}

// FragmentOptions converts the match section to fragment.Options.
func (c *Config) FragmentOptions() (fragment.Options, error) {
	tol, err := core.ParseTolerance(c.Match.Tolerance)
	if err != nil {
		return fragment.Options{}, err
	}
	return fragment.Options{
		Tolerance:                  tol,
		RelativeIntensityThreshold: c.Match.RelativeIntensityThreshold,
		MaxIsotopes:                c.Match.MaxIsotopes,
		MaxCharge:                  c.Match.MaxCharge,
	}, nil
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
