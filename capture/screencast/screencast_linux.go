//go:build linux

package screencast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/internal/pipewire"
	"go2tv.app/scapsrc/internal/portal"
)

// The portal shows a chooser dialog, so a build may wait on the user.
const portalTimeout = 2 * time.Minute

type backend struct {
	log     *slog.Logger
	sess    *portal.Session
	stream  *pipewire.Stream
	queue   *capture.FrameQueue
	target  capture.Target
	timeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
	fatal     atomic.Pointer[error]

	lastSlowLog atomic.Int64
}

func build(options capture.Options) (capture.Backend, error) {
	options, err := capture.ValidateOptions(options)
	if err != nil {
		return nil, err
	}
	if !pipewire.IsAvailable() {
		return nil, pipewire.ErrLibraryNotLoaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), portalTimeout)
	defer cancel()

	conn, err := portal.Connect()
	if err != nil {
		return nil, err
	}

	sess, err := conn.CreateSession(ctx)
	if err != nil {
		return nil, portalError(err)
	}

	// Close session on setup failure.
	cleanupSession := true
	defer func() {
		if cleanupSession {
			_ = sess.Close()
		}
	}()

	err = sess.SelectSources(ctx, portal.SelectSourcesOptions{
		Types:      portal.SourceTypeMonitor | portal.SourceTypeWindow,
		CursorMode: cursorMode(ctx, conn, options.ShowCursor, options.Logger),
		Multiple:   true,
	})
	if err != nil {
		return nil, portalError(err)
	}

	streams, err := sess.Start(ctx, "")
	if err != nil {
		return nil, portalError(err)
	}
	if len(streams) == 0 {
		return nil, capture.ErrNoStreams
	}

	target, err := capture.SelectTarget(options.Target, targetsFromStreams(streams))
	if err != nil {
		return nil, err
	}
	if target.Width <= 0 || target.Height <= 0 {
		return nil, fmt.Errorf("invalid stream size %dx%d", target.Width, target.Height)
	}

	fd, err := sess.OpenPipeWireRemote(ctx)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	b := &backend{
		log:     options.Logger.With("backend", "screencast", "target", target.Name),
		sess:    sess,
		queue:   capture.NewFrameQueue("screencast", 0, options.Logger),
		target:  target,
		timeout: options.FrameTimeout,
	}

	b.stream, err = pipewire.NewStream(fd, target.ID, pipewire.Config{
		Width:     uint32(target.Width),
		Height:    uint32(target.Height),
		Framerate: options.FPS,
		Preferred: formatFromTag(options.OutputType),
		OnFrame:   b.onFrame,
		OnError:   b.onError,
	})
	if err != nil {
		return nil, err
	}

	b.log.Info("capture: screencast backend built",
		"node", target.ID,
		"size", fmt.Sprintf("%dx%d", target.Width, target.Height),
		"fps", options.FPS,
		"show_cursor", options.ShowCursor,
	)

	cleanupSession = false
	return b, nil
}

func cursorMode(ctx context.Context, conn *portal.Conn, show bool, log *slog.Logger) uint32 {
	want := portal.CursorModeHidden
	if show {
		want = portal.CursorModeEmbedded
	}
	available, err := conn.AvailableCursorModes(ctx)
	if err != nil || available&want == 0 {
		log.Warn("capture: portal does not offer the requested cursor mode, using its default",
			"requested", want,
			"available", available,
			"error", err,
		)
		return 0
	}
	return want
}

func portalError(err error) error {
	if errors.Is(err, portal.ErrCancelled) {
		return fmt.Errorf("%w: %w", capture.ErrCancelled, err)
	}
	return err
}

func (b *backend) onFrame(f pipewire.Frame) {
	width, height := f.Width, f.Height
	if width == 0 || height == 0 {
		width, height = uint32(b.target.Width), uint32(b.target.Height)
	}
	start := time.Now()
	b.queue.Push(&capture.RawFrame{
		Width:     width,
		Height:    height,
		Tag:       tagFromFormat(f.Format),
		Data:      f.Data,
		Timestamp: capture.Now(),
	})
	if d := time.Since(start); d > 10*time.Millisecond && capture.ShouldLogEvery(&b.lastSlowLog, time.Second) {
		b.log.Debug("capture: slow frame hand-off", "duration", d, "bytes", len(f.Data))
	}
}

func (b *backend) onError(err error) {
	b.fatal.CompareAndSwap(nil, &err)
	b.log.Error("capture: screencast stream failed", "error", err)
	b.queue.Close()
}

func (b *backend) Start() error {
	b.startOnce.Do(b.stream.Start)
	return nil
}

func (b *backend) Stop() error {
	b.stopOnce.Do(func() {
		b.queue.Close()
		streamErr := b.stream.Close()
		sessErr := b.sess.Close()
		b.stopErr = errors.Join(streamErr, sessErr)
		b.log.Info("capture: screencast backend stopped", "dropped", b.queue.Dropped())
	})
	return b.stopErr
}

func (b *backend) NextFrame(ctx context.Context) (*capture.RawFrame, error) {
	f, err := b.queue.Pop(ctx, b.timeout)
	if err != nil && errors.Is(err, capture.ErrClosed) {
		if fatal := b.fatal.Load(); fatal != nil {
			return nil, fmt.Errorf("%w: %w", capture.ErrClosed, *fatal)
		}
	}
	return f, err
}
