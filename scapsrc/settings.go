package scapsrc

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

const (
	PropFPS                    = "fps"
	PropShowCursor             = "show-cursor"
	PropPerformInternalPreroll = "perform-internal-preroll"
)

const (
	DefaultFPS                    = 25
	DefaultShowCursor             = true
	DefaultPerformInternalPreroll = false
)

// canonicalProperty maps a property name to its hyphenated form, so
// "show_cursor" and "show-cursor" name the same property.
func canonicalProperty(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// Settings are the element properties. They are read once per Ready→Paused
// transition, when the capture backend is built.
type Settings struct {
	FPS                    uint32
	ShowCursor             bool
	PerformInternalPreroll bool
}

func DefaultSettings() Settings {
	return Settings{
		FPS:                    DefaultFPS,
		ShowCursor:             DefaultShowCursor,
		PerformInternalPreroll: DefaultPerformInternalPreroll,
	}
}

func (s Settings) Validate() error {
	if s.FPS < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidValue, PropFPS, s.FPS)
	}
	return nil
}

func (s Settings) get(name string) (any, error) {
	switch canonicalProperty(name) {
	case PropFPS:
		return s.FPS, nil
	case PropShowCursor:
		return s.ShowCursor, nil
	case PropPerformInternalPreroll:
		return s.PerformInternalPreroll, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
}

// set converts value to the property type and stores it, returning the
// previous value.
func (s *Settings) set(name string, value any) (any, error) {
	old, err := s.get(name)
	if err != nil {
		return nil, err
	}

	switch canonicalProperty(name) {
	case PropFPS:
		fps, err := toFPS(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
		}
		next := *s
		next.FPS = fps
		if err := next.Validate(); err != nil {
			return nil, err
		}
		s.FPS = fps
	case PropShowCursor:
		v, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
		}
		s.ShowCursor = v
	case PropPerformInternalPreroll:
		v, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
		}
		s.PerformInternalPreroll = v
	}
	return old, nil
}

// toFPS converts value to a frame rate. Values that would wrap or lose a
// fraction are rejected.
func toFPS(value any) (uint32, error) {
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%v is not a whole number", value)
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("%v is out of range", value)
	}
	return uint32(v), nil
}
