package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate fixes up values the core cannot take and rejects the ones it
// cannot fix. Thresholds outside (0, 100] and resolutions below 1 never get
// past this point.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "", "info":
		cfg.LogLevel = "info"
	case "debug", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, cfg.LogLevel)
	}

	if err := validateCurve(&cfg.Curve); err != nil {
		return err
	}

	if cfg.Notify.Listen == "" {
		cfg.Notify.Listen = DefaultListen
	}
	if cfg.Notify.Path == "" {
		cfg.Notify.Path = "/events"
	}
	if !strings.HasPrefix(cfg.Notify.Path, "/") {
		return fmt.Errorf("%w: notify.path must start with /", ErrInvalidConfig)
	}
	if cfg.Notify.Service == "" {
		cfg.Notify.Service = DefaultService
	}

	switch cfg.Export.PageSize {
	case "":
		cfg.Export.PageSize = "A4"
	case "A3", "A4", "A5", "Letter", "Legal":
	default:
		return fmt.Errorf("%w: export.page_size %q", ErrInvalidConfig, cfg.Export.PageSize)
	}
	if cfg.Export.Margin < 0 {
		cfg.Export.Margin = 0
	}
	return nil
}

func validateCurve(c *CurveConfig) error {
	t := c.Threshold
	switch {
	case math.IsNaN(t) || math.IsInf(t, -1) || t <= 0:
		c.Threshold = DefaultThreshold
	case t > MaxThreshold:
		c.Threshold = MaxThreshold
	}

	switch r := c.Resolution; {
	case r == 0:
		c.Resolution = DefaultResolution
	case r < 0:
		return fmt.Errorf("%w: curve.resolution must be >= 1, got %d", ErrInvalidConfig, r)
	case r > MaxResolution:
		c.Resolution = MaxResolution
	}
	return nil
}
