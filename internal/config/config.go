// Package config handles jobbook settings using Viper. Values are layered:
// command flags, then JOBBOOK_* environment variables, then the config
// file, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/jobbook/internal/trace"
)

// EnvPrefix prefixes every environment override, e.g. JOBBOOK_LOG_LEVEL.
const EnvPrefix = "JOBBOOK"

// Config holds the effective settings.
type Config struct {
	Log       LogConfig       `mapstructure:"log" json:"log" yaml:"log"`
	Output    OutputConfig    `mapstructure:"output" json:"output" yaml:"output"`
	Run       RunConfig       `mapstructure:"run" json:"run" yaml:"run"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format  string `mapstructure:"format" json:"format" yaml:"format"`
	NoColor bool   `mapstructure:"no_color" json:"no_color" yaml:"no_color"`
}

// RunConfig holds defaults for the run command.
type RunConfig struct {
	Capture         bool   `mapstructure:"capture" json:"capture" yaml:"capture"`
	TraceDir        string `mapstructure:"trace_dir" json:"trace_dir" yaml:"trace_dir"`
	MetricsTextfile string `mapstructure:"metrics_textfile" json:"metrics_textfile,omitempty" yaml:"metrics_textfile,omitempty"`
	MetricsAddr     string `mapstructure:"metrics_addr" json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// TelemetryConfig holds OTLP export settings.
type TelemetryConfig struct {
	Endpoint   string  `mapstructure:"endpoint" json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
}

// FlagBinding maps a config key to the flag that overrides it.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads settings. configPath forces a config file; empty searches
// ./.jobbook.yaml and then $HOME/.jobbook/config.yaml. Flags in bindings
// that were set on the command line win over everything else.
func Load(configPath string, bindings ...FlagBinding) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.Flag.Name, err)
		}
	}

	file, err := readConfigFile(v, configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file
	cfg.Run.TraceDir = expandHome(cfg.Run.TraceDir)
	cfg.Run.MetricsTextfile = expandHome(cfg.Run.MetricsTextfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, configPath string) (string, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", configPath, err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName(".jobbook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed(), nil
	} else if !isNotFound(err) {
		return "", fmt.Errorf("read config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	path := filepath.Join(home, ".jobbook", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config %s: %w", path, err)
	}
	return v.ConfigFileUsed(), nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.format", "text")
	v.SetDefault("output.no_color", false)
	v.SetDefault("run.capture", false)
	v.SetDefault("run.trace_dir", trace.DefaultDir())
	v.SetDefault("run.metrics_textfile", "")
	v.SetDefault("run.metrics_addr", "")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var problems []string
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q: want text, json or yaml", c.Output.Format))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q: want text or json", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		problems = append(problems, fmt.Sprintf("telemetry.sample_rate %v: want 0..1", c.Telemetry.SampleRate))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
