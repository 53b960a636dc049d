package capture

import (
	"fmt"
	"time"
)

const (
	defaultFrameTimeout = 8 * time.Second
	maxFPS              = 1000
)

// ValidateOptions checks options and fills in defaults.
func ValidateOptions(options Options) (Options, error) {
	if options.FPS < 1 {
		return options, fmt.Errorf("%w: FPS must be >= 1", ErrInvalidOptions)
	}
	if options.FPS > maxFPS {
		return options, fmt.Errorf("%w: FPS must be <= %d", ErrInvalidOptions, maxFPS)
	}
	if options.Target == nil {
		options.Target = FirstTarget
	}
	if options.FrameTimeout == 0 {
		options.FrameTimeout = defaultFrameTimeout
	}
	options.Logger = loggerOrDefault(options.Logger)
	return options, nil
}

func FrameInterval(fps uint32) time.Duration {
	if fps == 0 {
		return time.Second
	}
	return time.Second / time.Duration(fps)
}

// SelectTarget runs the selector and checks it returned one of the offered
// targets.
func SelectTarget(selector TargetSelector, targets []Target) (Target, error) {
	if len(targets) == 0 {
		return Target{}, ErrNoStreams
	}
	chosen := selector(targets)
	for _, t := range targets {
		if t.ID == chosen.ID {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: selector returned unknown target %d", ErrInvalidOptions, chosen.ID)
}
