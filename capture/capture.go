package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	ErrNotImplemented = errors.New("screen capture backend is not implemented on this platform")
	ErrCancelled      = errors.New("screen capture request was cancelled")
	ErrNoStreams      = errors.New("screen capture returned no streams")
	ErrInvalidOptions = errors.New("invalid screen capture options")
	ErrClosed         = errors.New("screen capture backend is closed")
	ErrFrameTimeout   = errors.New("timed out waiting for a frame")
)

// TargetKind tells a monitor apart from a single window.
type TargetKind uint32

const (
	TargetMonitor TargetKind = 1
	TargetWindow  TargetKind = 2
	TargetVirtual TargetKind = 4
)

func (k TargetKind) String() string {
	switch k {
	case TargetMonitor:
		return "monitor"
	case TargetWindow:
		return "window"
	case TargetVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Target is something a backend can capture.
type Target struct {
	ID     uint32
	Name   string
	Kind   TargetKind
	Width  int32
	Height int32
}

// TargetSelector picks the capture target out of the ones a backend offers.
// It is called synchronously from Build.
type TargetSelector func(targets []Target) Target

// FirstTarget is the default selector.
func FirstTarget(targets []Target) Target {
	if len(targets) == 0 {
		return Target{}
	}
	return targets[0]
}

// Options configures a backend build.
type Options struct {
	// FPS is the requested capture rate. Must be >= 1.
	FPS uint32
	// ShowCursor asks the backend to embed the pointer into frames.
	ShowCursor bool
	// Target selects the capture target. Nil means FirstTarget.
	Target TargetSelector
	// OutputType is a hint for the pixel layout the backend should produce.
	// Backends are free to deliver something else.
	OutputType PixelTag
	// FrameTimeout bounds NextFrame. Zero means the backend default,
	// negative means wait forever.
	FrameTimeout time.Duration
	// Logger receives backend diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Backend is a running (or startable) capture session.
//
// Start and Stop are idempotent. NextFrame blocks until a frame is available,
// the context is done, or the backend is stopped, in which case it returns
// ErrClosed.
type Backend interface {
	Start() error
	Stop() error
	NextFrame(ctx context.Context) (*RawFrame, error)
}

// Builder creates backends.
type Builder interface {
	Build(options Options) (Backend, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(options Options) (Backend, error)

func (f BuilderFunc) Build(options Options) (Backend, error) {
	return f(options)
}
