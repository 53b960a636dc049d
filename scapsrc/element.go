// Package scapsrc implements a live screen capture source element.
//
// The element pulls raw frames from a capture.Backend, translates them to one
// of a handful of packed RGB layouts, negotiates the format with downstream
// whenever it changes and stamps zero-based presentation timestamps.
//
// Three locks guard the element state: settingsMu (properties), stateMu (the
// lifecycle phase and the backend it owns) and formatMu (negotiated format
// and timestamp baseline). When more than one is held they are taken in that
// order. No lock is held while calling the Negotiator from Create.
package scapsrc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go2tv.app/scapsrc/capture"
)

// Options configures a new Element.
type Options struct {
	// Name identifies the element in logs. Empty means scapsrc-<random>.
	Name string
	// Builder creates a capture backend on every Ready→Paused transition.
	Builder capture.Builder
	// Negotiator receives format changes. Nil accepts everything.
	Negotiator Negotiator
	// Descriptor restricts the output layouts and property set. Nil means
	// DefaultDescriptor.
	Descriptor *Descriptor
	// Target picks the capture target during backend construction. Nil
	// means the first one offered.
	Target capture.TargetSelector
	// FrameTimeout bounds every frame pull. Zero means the backend default.
	FrameTimeout time.Duration
	// Settings are the initial properties. Nil means DefaultSettings.
	Settings *Settings
	Logger   *slog.Logger
}

type formatState struct {
	// cycle is the start cycle the state belongs to, 0 when stopped.
	cycle       uint64
	current     VideoFormat
	negotiated  bool
	baseline    uint64
	hasBaseline bool
	lastPTS     uint64
	offset      uint64
}

// Element is a live source. All methods are safe for concurrent use.
type Element struct {
	name         string
	log          *slog.Logger
	builder      capture.Builder
	descriptor   *Descriptor
	target       capture.TargetSelector
	frameTimeout time.Duration

	settingsMu sync.Mutex
	settings   Settings

	stateMu sync.Mutex
	phase   phase
	cycle   uint64

	formatMu   sync.Mutex
	negotiator Negotiator
	format     formatState

	// Mirrors of stateMu-guarded values, readable while a transition blocks.
	current   atomic.Int32
	liveCycle atomic.Uint64

	frames       atomic.Uint64
	negotiations atomic.Uint64
	cycles       atomic.Uint64
	lastPTS      atomic.Int64
}

func New(options Options) (*Element, error) {
	if options.Builder == nil {
		return nil, fmt.Errorf("%w: no capture backend builder", ErrInit)
	}

	settings := DefaultSettings()
	if options.Settings != nil {
		settings = *options.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	descriptor := options.Descriptor
	if descriptor == nil {
		descriptor = DefaultDescriptor()
	}
	if len(descriptor.Layouts) == 0 {
		return nil, fmt.Errorf("%w: descriptor lists no layouts", ErrInit)
	}

	name := options.Name
	if name == "" {
		name = "scapsrc-" + uuid.NewString()[:8]
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Element{
		name:         name,
		log:          log.With("element", name),
		builder:      options.Builder,
		descriptor:   descriptor,
		target:       options.Target,
		frameTimeout: options.FrameTimeout,
		settings:     settings,
		phase:        idlePhase{s: StateNull},
		negotiator:   options.Negotiator,
	}, nil
}

func (e *Element) Name() string {
	return e.name
}

func (e *Element) Descriptor() *Descriptor {
	return e.descriptor
}

// State returns the current lifecycle state without waiting for a
// transition in progress.
func (e *Element) State() State {
	return State(e.current.Load())
}

// SetState walks the lifecycle one edge at a time until target is reached.
// A shutdown error on the way down is reported but does not stop the walk.
func (e *Element) SetState(target State) error {
	var errs []error
	for {
		cur := e.State()
		if cur == target {
			return errors.Join(errs...)
		}
		if err := e.ChangeState(nextChange(cur, target)); err != nil {
			errs = append(errs, err)
			if !errors.Is(err, ErrShutdown) || e.State() == cur {
				return errors.Join(errs...)
			}
		}
	}
}

// ChangeState performs a single lifecycle transition.
func (e *Element) ChangeState(change StateChange) error {
	settings := e.Settings()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	from := e.phase.state()
	var err error
	switch change {
	case NullToReady:
		if from != StateNull {
			err = invalidTransition(change, from)
			break
		}
		e.setPhase(idlePhase{s: StateReady})
	case ReadyToPaused:
		if from != StateReady {
			err = invalidTransition(change, from)
			break
		}
		err = e.start(settings)
	case PausedToPlaying:
		err = e.play()
	case PlayingToPaused:
		active, ok := e.phase.(*activePhase)
		if !ok || !active.playing {
			err = invalidTransition(change, from)
			break
		}
		// The backend keeps running, frames pile up in its queue.
		active.playing = false
		e.setPhase(active)
	case PausedToReady:
		err = e.stop()
	case ReadyToNull:
		if from != StateReady {
			err = invalidTransition(change, from)
			break
		}
		e.setPhase(idlePhase{s: StateNull})
	default:
		err = invalidTransition(change, from)
	}

	to := e.phase.state()
	if err != nil {
		e.log.Warn("scapsrc: state change failed", "change", change.String(), "state", to.String(), "error", err)
	} else {
		e.log.Debug("scapsrc: state changed", "from", from.String(), "to", to.String())
	}
	return err
}

func invalidTransition(change StateChange, from State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, change, from)
}

func (e *Element) setPhase(p phase) {
	e.phase = p
	e.current.Store(int32(p.state()))
}

// start builds a backend for a new cycle and optionally prerolls it.
func (e *Element) start(settings Settings) error {
	e.cycle++
	cycle := e.cycle
	e.resetFormat(cycle)

	backend, err := e.builder.Build(capture.Options{
		FPS:          settings.FPS,
		ShowCursor:   settings.ShowCursor,
		Target:       e.target,
		OutputType:   capture.TagBGR0,
		FrameTimeout: e.frameTimeout,
		Logger:       e.log,
	})
	if err != nil {
		e.resetFormat(0)
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	active := &activePhase{
		backend: backend,
		cycle:   cycle,
		fps:     settings.FPS,
	}
	e.liveCycle.Store(cycle)

	if settings.PerformInternalPreroll {
		if err := e.preroll(active); err != nil {
			e.liveCycle.Store(0)
			e.resetFormat(0)
			if stopErr := backend.Stop(); stopErr != nil {
				e.log.Warn("scapsrc: failed to stop backend after preroll", "error", stopErr)
			}
			return fmt.Errorf("%w: preroll: %w", ErrInit, err)
		}
	}

	e.cycles.Add(1)
	e.lastPTS.Store(0)
	e.setPhase(active)
	e.log.Info("scapsrc: capture backend ready",
		"cycle", cycle,
		"fps", settings.FPS,
		"show_cursor", settings.ShowCursor,
		"preroll", settings.PerformInternalPreroll,
	)
	return nil
}

// preroll starts the backend early and pulls one frame so the format is
// known before the first Create. The frame becomes output frame 0.
func (e *Element) preroll(active *activePhase) error {
	if err := active.backend.Start(); err != nil {
		return err
	}
	active.started = true

	raw, err := active.backend.NextFrame(context.Background())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendRead, err)
	}
	frame, err := e.translate(raw, active.fps)
	if err != nil {
		return err
	}
	if err := e.negotiate(active.cycle, frame.format); err != nil {
		return err
	}

	e.formatMu.Lock()
	e.format.baseline = frame.timestamp
	e.format.hasBaseline = true
	e.formatMu.Unlock()

	active.pending = &frame
	e.log.Debug("scapsrc: prerolled", "format", frame.format.String())
	return nil
}

func (e *Element) play() error {
	active, ok := e.phase.(*activePhase)
	if !ok {
		return fmt.Errorf("%w: no capture backend in state %s", ErrInit, e.phase.state())
	}
	if active.playing {
		return invalidTransition(PausedToPlaying, StatePlaying)
	}
	if !active.started {
		if err := active.backend.Start(); err != nil {
			return fmt.Errorf("%w: %w", ErrInit, err)
		}
		active.started = true
	}
	active.playing = true
	e.setPhase(active)
	return nil
}

// stop tears the backend down. Without a backend it only reports
// ErrShutdown. The element ends up in Ready even when the backend fails to
// stop.
func (e *Element) stop() error {
	active, ok := e.phase.(*activePhase)
	if !ok {
		return fmt.Errorf("%w: no capture backend to stop in state %s", ErrShutdown, e.phase.state())
	}
	if active.playing {
		return invalidTransition(PausedToReady, StatePlaying)
	}

	e.liveCycle.Store(0)
	e.resetFormat(0)
	e.setPhase(idlePhase{s: StateReady})

	if err := active.backend.Stop(); err != nil {
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}
	e.log.Info("scapsrc: capture backend stopped", "cycle", active.cycle, "frames", e.frames.Load())
	return nil
}

func (e *Element) resetFormat(cycle uint64) {
	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	e.format = formatState{cycle: cycle}
}

func (e *Element) translate(raw *capture.RawFrame, fps uint32) (translatedFrame, error) {
	frame, err := translate(raw)
	if err != nil {
		return translatedFrame{}, err
	}
	if !e.descriptor.Supports(frame.format.Layout) {
		return translatedFrame{}, fmt.Errorf("%w: layout %s not offered", ErrUnsupportedFormat, frame.format.Layout)
	}
	frame.format.Framerate = Fraction{Num: int(fps), Den: 1}
	return frame, nil
}

// Create produces the next buffer. It blocks until the backend delivers a
// frame, ctx is done or the backend's frame timeout expires.
func (e *Element) Create(ctx context.Context) (*Buffer, error) {
	e.stateMu.Lock()
	active, ok := e.phase.(*activePhase)
	if !ok {
		state := e.phase.state()
		e.stateMu.Unlock()
		return nil, fmt.Errorf("%w: no capture backend in state %s", ErrNotNegotiated, state)
	}
	backend, cycle, fps := active.backend, active.cycle, active.fps
	pending := active.pending
	active.pending = nil
	e.stateMu.Unlock()

	var frame translatedFrame
	if pending != nil {
		frame = *pending
	} else {
		raw, err := backend.NextFrame(ctx)
		if err != nil {
			if e.liveCycle.Load() != cycle {
				return nil, fmt.Errorf("%w: %w", ErrFlushing, err)
			}
			e.log.Error("scapsrc: failed to get next frame", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrBackendRead, err)
		}
		frame, err = e.translate(raw, fps)
		if err != nil {
			e.log.Error("scapsrc: unsupported frame received", "error", err)
			return nil, err
		}
	}

	if e.needsNegotiation(frame.format) {
		if err := e.negotiate(cycle, frame.format); err != nil {
			return nil, err
		}
	}

	e.formatMu.Lock()
	if e.format.cycle != cycle {
		e.formatMu.Unlock()
		return nil, fmt.Errorf("%w: stopped while producing", ErrFlushing)
	}
	if !e.format.hasBaseline {
		e.format.baseline = frame.timestamp
		e.format.hasBaseline = true
	}
	var pts uint64
	if frame.timestamp > e.format.baseline {
		pts = frame.timestamp - e.format.baseline
	}
	// Backend clocks are not guaranteed monotonic across resizes.
	if pts < e.format.lastPTS {
		pts = e.format.lastPTS
	}
	e.format.lastPTS = pts
	offset := e.format.offset
	e.format.offset++
	e.formatMu.Unlock()

	e.frames.Add(1)
	e.lastPTS.Store(int64(pts))

	return &Buffer{
		Data:     frame.data,
		PTS:      time.Duration(pts),
		Duration: capture.FrameInterval(fps),
		Offset:   offset,
		Format:   frame.format,
	}, nil
}

// QueryCaps answers a caps query: the negotiated format once there is one,
// the template caps otherwise.
func (e *Element) QueryCaps() Caps {
	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	if e.format.negotiated {
		return FixedCaps(e.format.current)
	}
	return e.descriptor.TemplateCaps()
}

func (e *Element) NegotiatedFormat() (VideoFormat, bool) {
	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	return e.format.current, e.format.negotiated
}

// Stats is a snapshot of the element counters.
type Stats struct {
	State        State
	Frames       uint64
	Negotiations uint64
	Cycles       uint64
	LastPTS      time.Duration
	Caps         string
}

func (e *Element) Stats() Stats {
	return Stats{
		State:        e.State(),
		Frames:       e.frames.Load(),
		Negotiations: e.negotiations.Load(),
		Cycles:       e.cycles.Load(),
		LastPTS:      time.Duration(e.lastPTS.Load()),
		Caps:         e.QueryCaps().String(),
	}
}
