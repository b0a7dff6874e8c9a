// Package config loads the curve board configuration from YAML and applies
// the boundary rules the editing core relies on.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"CurveBoard/internal/editcurve"
	"CurveBoard/internal/state"
)

const (
	DefaultThreshold  = 0.1
	MaxThreshold      = 100.0
	DefaultResolution = 32
	MaxResolution     = 256
	DefaultListen     = ":8888"
	DefaultService    = "_curveboard._tcp"
)

// Config is the complete configuration file.
type Config struct {
	LogLevel string       `yaml:"log_level"` // debug, info, warn, error
	Curve    CurveConfig  `yaml:"curve"`
	Notify   NotifyConfig `yaml:"notify"`
	Export   ExportConfig `yaml:"export"`

	// curve keys present in the file; those win over document settings
	curveKeys map[string]bool
}

// CurveConfig holds the edit curve knobs.
type CurveConfig struct {
	Threshold  float64 `yaml:"threshold"`  // max deviation from the drawn stroke
	Resolution int     `yaml:"resolution"` // samples per curve segment
	MultiEdit  bool    `yaml:"multi_edit"`
}

// NotifyConfig controls the websocket change feed.
type NotifyConfig struct {
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Advertise bool   `yaml:"advertise"` // announce the feed over mDNS
	Service   string `yaml:"service"`
	Instance  string `yaml:"instance,omitempty"`
}

// ExportConfig controls PDF output.
type ExportConfig struct {
	PageSize string  `yaml:"page_size"` // A4, A3, Letter
	Margin   float64 `yaml:"margin_mm"`
}

// Default returns a configuration that passes Validate unchanged.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Curve: CurveConfig{
			Threshold:  DefaultThreshold,
			Resolution: DefaultResolution,
		},
		Notify: NotifyConfig{
			Listen:  DefaultListen,
			Path:    "/events",
			Service: DefaultService,
		},
		Export: ExportConfig{
			PageSize: "A4",
			Margin:   10,
		},
	}
}

// Load reads path and validates the result. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	var keys struct {
		Curve map[string]yaml.Node `yaml:"curve"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for k := range keys.Curve {
		if cfg.curveKeys == nil {
			cfg.curveKeys = make(map[string]bool)
		}
		cfg.curveKeys[k] = true
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Editing returns the per-invocation configuration for the operators. The
// document's stored settings are the base; curve keys set in the config
// file override them. The merged values go through the same boundary rules
// as Validate.
func (c *Config) Editing(s state.Settings) (editcurve.Config, error) {
	base := editcurve.ConfigFromSettings(s)
	cc := CurveConfig{
		Threshold:  base.Threshold,
		Resolution: base.Resolution,
		MultiEdit:  base.MultiEdit,
	}
	if c.curveKeys["threshold"] {
		cc.Threshold = c.Curve.Threshold
	}
	if c.curveKeys["resolution"] {
		cc.Resolution = c.Curve.Resolution
	}
	if c.curveKeys["multi_edit"] {
		cc.MultiEdit = c.Curve.MultiEdit
	}
	if err := validateCurve(&cc); err != nil {
		return editcurve.Config{}, err
	}
	return editcurve.Config{
		Threshold:  cc.Threshold,
		Resolution: cc.Resolution,
		MultiEdit:  cc.MultiEdit,
	}, nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
