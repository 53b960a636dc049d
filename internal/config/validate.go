package config

import (
	"errors"
	"fmt"
	"strings"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/internal/logging"
	"go2tv.app/scapsrc/scapsrc"
)

// Validate checks the config and returns all problems found, joined.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Backend {
	case BackendPortal:
	case BackendPattern:
		if c.Pattern.Width == 0 || c.Pattern.Height == 0 {
			errs = append(errs, fmt.Errorf("pattern size %dx%d must not be empty", c.Pattern.Width, c.Pattern.Height))
		}
		if _, ok := capture.ParsePixelTag(c.Pattern.Format); !ok {
			errs = append(errs, fmt.Errorf("pattern.format %q is not a known pixel format", c.Pattern.Format))
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendPortal, BackendPattern, c.Backend))
	}

	if c.NumBuffers < 0 {
		errs = append(errs, fmt.Errorf("num_buffers %d must not be negative", c.NumBuffers))
	}
	if _, err := scapsrc.ParseCaps(c.AcceptCaps); err != nil {
		errs = append(errs, fmt.Errorf("accept_caps: %w", err))
	}
	if c.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("stats_interval %s must not be negative", c.StatsInterval))
	}

	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}
