package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/scapsrc"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPatternElement(t *testing.T, builder capture.PatternBuilder) *scapsrc.Element {
	t.Helper()
	settings := scapsrc.Settings{FPS: 200, ShowCursor: true}
	e, err := scapsrc.New(scapsrc.Options{
		Builder:  builder,
		Settings: &settings,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	return e
}

func TestRunner_NumBuffers(t *testing.T) {
	src := newPatternElement(t, capture.PatternBuilder{Width: 16, Height: 8})
	sink := NewFakeSink(scapsrc.Caps{})

	err := New(src, sink, Options{NumBuffers: 5, StatsInterval: time.Millisecond, Logger: discardLogger()}).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sink.Frames())
	assert.Equal(t, 5*16*8*4, sink.Bytes())
	require.Len(t, sink.Caps(), 1)
	assert.Equal(t, "video/x-raw, format=BGRx, width=16, height=8, framerate=200/1", sink.Caps()[0].String())

	pts := sink.PTS()
	assert.Zero(t, pts[0])
	assert.IsNonDecreasing(t, pts)
	assert.Equal(t, scapsrc.StateNull, src.State())
}

func TestRunner_CapsRefused(t *testing.T) {
	src := newPatternElement(t, capture.PatternBuilder{Width: 16, Height: 8})
	accept, err := scapsrc.ParseCaps("video/x-raw, format=RGB")
	require.NoError(t, err)
	sink := NewFakeSink(accept)

	err = New(src, sink, Options{NumBuffers: 5, Logger: discardLogger()}).Run(context.Background())
	require.ErrorIs(t, err, scapsrc.ErrNegotiation)
	require.ErrorIs(t, err, ErrCapsRefused)
	assert.Zero(t, sink.Frames())
	assert.Equal(t, scapsrc.StateNull, src.State())
}

func TestRunner_CancelIsEndOfStream(t *testing.T) {
	src := newPatternElement(t, capture.PatternBuilder{Width: 4, Height: 4})
	sink := NewFakeSink(scapsrc.Caps{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New(src, sink, Options{Logger: discardLogger()}).Run(ctx)
	}()

	require.Eventually(t, func() bool { return sink.Frames() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, scapsrc.StateNull, src.State())
}

func TestRunner_BuildFailure(t *testing.T) {
	failing := capture.BuilderFunc(func(capture.Options) (capture.Backend, error) {
		return nil, capture.ErrNotImplemented
	})
	src, err := scapsrc.New(scapsrc.Options{Builder: failing, Logger: discardLogger()})
	require.NoError(t, err)
	sink := NewFakeSink(scapsrc.Caps{})

	err = New(src, sink, Options{NumBuffers: 1, Logger: discardLogger()}).Run(context.Background())
	require.ErrorIs(t, err, scapsrc.ErrInit)
	require.ErrorIs(t, err, capture.ErrNotImplemented)
	assert.Equal(t, scapsrc.StateNull, src.State())
}

func TestFileSink_WritesPackedFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.raw")
	sink, err := NewFileSink(path, scapsrc.Caps{}, discardLogger())
	require.NoError(t, err)

	src := newPatternElement(t, capture.PatternBuilder{Width: 6, Height: 2, Tag: capture.TagRGB})
	require.NoError(t, New(src, sink, Options{NumBuffers: 3, Logger: discardLogger()}).Run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 3*6*2*3)
}

func TestFileSink_RejectsUnfixedCaps(t *testing.T) {
	sink, err := NewFileSink(filepath.Join(t.TempDir(), "out.raw"), scapsrc.Caps{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	require.ErrorIs(t, sink.SetCaps(scapsrc.DefaultDescriptor().TemplateCaps()), ErrCapsRefused)
	require.Error(t, sink.Render(&scapsrc.Buffer{Data: []byte{1, 2, 3}}))
}

func TestFileSink_RejectsOversizedFormat(t *testing.T) {
	sink, err := NewFileSink(filepath.Join(t.TempDir(), "out.raw"), scapsrc.Caps{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	huge := scapsrc.VideoFormat{Layout: scapsrc.LayoutBGRX, Width: 1 << 31, Height: 1<<31 - 1<<29, Framerate: scapsrc.Fraction{Num: 25, Den: 1}}
	require.ErrorIs(t, sink.SetCaps(scapsrc.FixedCaps(huge)), ErrCapsRefused)
	assert.NotPanics(t, func() {
		assert.Error(t, sink.Render(&scapsrc.Buffer{Format: huge}))
	})
}
