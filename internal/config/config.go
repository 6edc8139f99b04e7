// Package config loads the environment-derived settings of a run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the tunables that do not come from the command line.
type Settings struct {
	LogLevel     string `mapstructure:"log_level"`     // debug, info, warn, error
	Interactive  string `mapstructure:"interactive"`   // auto, on, off
	ProgressStep int    `mapstructure:"progress_step"` // percent between progress updates
	MaxPixels    int64  `mapstructure:"max_pixels"`    // memory budget per image, in pixels
	MinDimension int    `mapstructure:"min_dimension"` // below this, quality warning
	MaxDimension int    `mapstructure:"max_dimension"` // above this, cost warning
	JPEGQuality  int    `mapstructure:"jpeg_quality"`
	Engine       Engine `mapstructure:"engine"`
}

// Engine selects the colorization engine.
type Engine struct {
	Kind    string   `mapstructure:"kind"` // gradient or exec
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Palette []string `mapstructure:"palette"`
}

const envPrefix = "TINT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("interactive", "auto")
	v.SetDefault("progress_step", 10)
	v.SetDefault("max_pixels", 100_000_000)
	v.SetDefault("min_dimension", 10)
	v.SetDefault("max_dimension", 4096)
	v.SetDefault("jpeg_quality", 95)
	v.SetDefault("engine.kind", "gradient")
	v.SetDefault("engine.command", "")
	v.SetDefault("engine.args", []string{})
	v.SetDefault("engine.palette", []string{})
}

// Load reads settings from TINT_* environment variables and an optional YAML
// file. The file is TINT_CONFIG when set, else <user config dir>/tint/config.yaml.
// A missing default file is not an error; a file named by TINT_CONFIG must exist.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(dir, "tint"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", s.LogLevel)
	}
	switch strings.ToLower(s.Interactive) {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("invalid interactive %q: must be auto, on or off", s.Interactive)
	}
	if s.ProgressStep < 1 || s.ProgressStep > 100 {
		return fmt.Errorf("progress_step must be in range 1-100")
	}
	if s.MaxPixels < 0 {
		return fmt.Errorf("max_pixels must not be negative")
	}
	if s.MinDimension < 0 || (s.MaxDimension > 0 && s.MaxDimension < s.MinDimension) {
		return fmt.Errorf("min_dimension/max_dimension out of order")
	}
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in range 1-100")
	}
	return nil
}
