package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go2tv.app/scapsrc/scapsrc"
)

var ErrCapsRefused = errors.New("caps refused by sink")

// Sink is the consumer end of a pipeline. SetCaps is called before the first
// buffer of every new format, Render once per buffer.
type Sink interface {
	scapsrc.Negotiator
	Render(buf *scapsrc.Buffer) error
	Close() error
}

// capsFilter accepts formats matching a caps description.
type capsFilter struct {
	accept scapsrc.Caps
}

func (f capsFilter) check(caps scapsrc.Caps) (scapsrc.VideoFormat, error) {
	format, ok := caps.Format()
	if !ok {
		return scapsrc.VideoFormat{}, fmt.Errorf("%w: %s is not fixed", ErrCapsRefused, caps)
	}
	if !f.accept.Accepts(format) {
		return scapsrc.VideoFormat{}, fmt.Errorf("%w: %s does not match %s", ErrCapsRefused, caps, f.accept)
	}
	return format, nil
}

// FakeSink counts what it receives and throws the data away.
type FakeSink struct {
	filter capsFilter

	mu      sync.Mutex
	caps    []scapsrc.Caps
	frames  int
	bytes   int
	lastPTS []int64
	closed  bool
}

// NewFakeSink returns a sink accepting formats matching accept. The zero Caps
// accepts everything.
func NewFakeSink(accept scapsrc.Caps) *FakeSink {
	return &FakeSink{filter: capsFilter{accept: accept}}
}

func (s *FakeSink) SetCaps(caps scapsrc.Caps) error {
	if _, err := s.filter.check(caps); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = append(s.caps, caps)
	return nil
}

func (s *FakeSink) Render(buf *scapsrc.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	s.frames++
	s.bytes += len(buf.Data)
	s.lastPTS = append(s.lastPTS, int64(buf.PTS))
	return nil
}

func (s *FakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FakeSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *FakeSink) Bytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Caps returns every caps accepted so far, in order.
func (s *FakeSink) Caps() []scapsrc.Caps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scapsrc.Caps(nil), s.caps...)
}

// PTS returns the timestamps of every rendered buffer, in nanoseconds.
func (s *FakeSink) PTS() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.lastPTS...)
}

// FileSink appends raw frames to a file, one tightly packed frame after the
// other. Every format change is logged so the dump can be split later.
type FileSink struct {
	filter capsFilter
	log    *slog.Logger

	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	format scapsrc.VideoFormat
	frames int
}

func NewFileSink(path string, accept scapsrc.Caps, log *slog.Logger) (*FileSink, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}
	return &FileSink{
		filter: capsFilter{accept: accept},
		log:    log.With("sink", path),
		file:   f,
		w:      bufio.NewWriterSize(f, 1<<20),
	}, nil
}

func (s *FileSink) SetCaps(caps scapsrc.Caps) error {
	format, err := s.filter.check(caps)
	if err != nil {
		return err
	}
	size, ok := format.FrameSize()
	if !ok {
		return fmt.Errorf("%w: %s frame is too large", ErrCapsRefused, format)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = format
	s.log.Info("pipeline: file sink format", "caps", caps.String(), "frame_size", size, "at_frame", s.frames)
	return nil
}

func (s *FileSink) Render(buf *scapsrc.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return os.ErrClosed
	}
	size, ok := s.format.FrameSize()
	if !ok || size == 0 || len(buf.Data) < size {
		return fmt.Errorf("file sink: buffer of %d bytes does not hold a %s frame", len(buf.Data), s.format)
	}
	if _, err := s.w.Write(buf.Data[:size]); err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	s.frames++
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	s.file = nil
	return errors.Join(flushErr, closeErr)
}
