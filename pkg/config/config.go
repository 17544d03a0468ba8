// Package config loads gumsitter settings from .gumsitter.yaml and
// GUMSITTER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrInvalidLogLevel  = errors.New("invalid logging level")
	ErrInvalidLogFormat = errors.New("invalid logging format")
	ErrInvalidBodyLimit = errors.New("server max body bytes must be positive")
	ErrInvalidCacheSize = errors.New("cache max bytes must not be negative")
	ErrInvalidSampling  = errors.New("telemetry sample ratio must be within [0, 1]")
)

const (
	configName = ".gumsitter"
	envPrefix  = "GUMSITTER"
)

// Config holds all gumsitter settings.
type Config struct {
	Rules     RulesConfig     `mapstructure:"rules"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// RulesConfig selects the rewrite rules.
type RulesConfig struct {
	// File replaces the embedded rules document when set.
	File string `mapstructure:"file"`
	// Raw disables rewriting altogether.
	Raw bool `mapstructure:"raw"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Format     string `mapstructure:"format"`
	JSONIndent string `mapstructure:"json_indent"`
	Color      bool   `mapstructure:"color"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`

	// Environment is exported as deployment.environment and logged as env.
	Environment string  `mapstructure:"environment"`
	// SampleRatio is the root trace sampling ratio; zero defers to
	// OTEL_TRACES_SAMPLER.
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// CacheConfig bounds the tree cache of the serve and mcp commands.
type CacheConfig struct {
	// MaxBytes is the accounted memory budget; zero disables the cache.
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// LoadConfig reads configPath, or .gumsitter.yaml from the working
// directory or $HOME when configPath is empty. A missing implicit file is
// not an error. Environment variables such as GUMSITTER_OUTPUT_FORMAT
// override file values.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// applyDefaults registers every key so that environment overrides work
// without a config file.
func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("rules.file", DefaultRulesFile)
	viperCfg.SetDefault("rules.raw", DefaultRulesRaw)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.color", DefaultOutputColor)
	viperCfg.SetDefault("output.json_indent", DefaultJSONIndent)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.environment", DefaultEnvironment)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "60s")
	viperCfg.SetDefault("server.max_body_bytes", DefaultServerMaxBodyBytes)

	viperCfg.SetDefault("cache.max_bytes", DefaultCacheMaxBytes)
}

// Validate rejects values no command could use.
func (c *Config) Validate() error {
	_, err := tree.ParseFormat(c.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBodyLimit, c.Server.MaxBodyBytes)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampling, c.Telemetry.SampleRatio)
	}

	if c.Cache.MaxBytes < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Cache.MaxBytes)
	}

	return nil
}
