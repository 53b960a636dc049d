// Package pipeline drives a source element into a sink the way a host
// media graph would: it links them for negotiation, walks the element to
// Playing, pulls buffers until done and tears everything down again.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"go2tv.app/scapsrc/scapsrc"
)

type Options struct {
	// NumBuffers stops the pipeline after that many buffers. Zero runs
	// until the context is done.
	NumBuffers int
	// StatsInterval is how often element stats are logged. Zero disables.
	StatsInterval time.Duration
	Logger        *slog.Logger
}

type Runner struct {
	src  *scapsrc.Element
	sink Sink
	opts Options
	log  *slog.Logger
}

// New links src to sink.
func New(src *scapsrc.Element, sink Sink, opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	src.SetNegotiator(sink)
	return &Runner{
		src:  src,
		sink: sink,
		opts: opts,
		log:  log.With("pipeline", src.Name()),
	}
}

// Run blocks until NumBuffers were rendered, ctx is done or the stream fails.
// The element is back in Null and the sink closed when it returns. A
// cancelled ctx is a normal end of stream and not reported.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	if err := r.src.SetState(scapsrc.StatePlaying); err != nil {
		return errors.Join(err, r.teardown())
	}
	r.log.Info("pipeline: playing", "caps", r.src.QueryCaps().String())

	g, gctx := errgroup.WithContext(ctx)
	pulled := make(chan struct{})

	g.Go(func() error {
		defer close(pulled)
		return r.pull(gctx)
	})
	if r.opts.StatsInterval > 0 {
		g.Go(func() error {
			r.reportStats(gctx, pulled)
			return nil
		})
	}

	err := g.Wait()
	stats := r.src.Stats()
	r.log.Info("pipeline: finished",
		"frames", stats.Frames,
		"negotiations", stats.Negotiations,
		"duration", time.Since(start).Round(time.Millisecond),
		"error", err,
	)
	return errors.Join(err, r.teardown())
}

func (r *Runner) pull(ctx context.Context) error {
	for n := 0; r.opts.NumBuffers == 0 || n < r.opts.NumBuffers; n++ {
		if ctx.Err() != nil {
			return nil
		}
		buf, err := r.src.Create(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Error("pipeline: source failed", "kind", scapsrc.KindOf(err).String(), "error", err)
			return err
		}
		if err := r.sink.Render(buf); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) reportStats(ctx context.Context, pulled <-chan struct{}) {
	ticker := time.NewTicker(r.opts.StatsInterval)
	defer ticker.Stop()

	var lastFrames uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-pulled:
			return
		case <-ticker.C:
			stats := r.src.Stats()
			rate := float64(stats.Frames-lastFrames) / r.opts.StatsInterval.Seconds()
			lastFrames = stats.Frames
			r.log.Info("pipeline: stats",
				"state", stats.State.String(),
				"frames", stats.Frames,
				"fps", rate,
				"pts", stats.LastPTS,
				"caps", stats.Caps,
			)
		}
	}
}

func (r *Runner) teardown() error {
	return errors.Join(r.src.SetState(scapsrc.StateNull), r.sink.Close())
}
