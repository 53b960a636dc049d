package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var clockEpoch = time.Now()

// Now reads the capture clock shared by the in-process backends, in
// nanoseconds.
func Now() uint64 {
	return uint64(time.Since(clockEpoch))
}

// PatternBuilder builds synthetic backends that paint a moving test pattern.
// They need no display server, which makes them the backend of choice for
// tests and headless runs.
type PatternBuilder struct {
	Width  uint32
	Height uint32
	// Tag overrides Options.OutputType when set.
	Tag PixelTag
	// Built, when set, receives every backend this builder creates.
	Built func(*PatternBackend)
}

func (b PatternBuilder) Build(options Options) (Backend, error) {
	options, err := ValidateOptions(options)
	if err != nil {
		return nil, err
	}

	width, height := b.Width, b.Height
	if width == 0 || height == 0 {
		width, height = 1280, 720
	}
	tag := b.Tag
	if tag == TagUnknown {
		tag = options.OutputType
	}
	if tag == TagUnknown {
		tag = TagBGRx
	}

	target, err := SelectTarget(options.Target, []Target{{
		ID:     1,
		Name:   "pattern",
		Kind:   TargetVirtual,
		Width:  int32(width),
		Height: int32(height),
	}})
	if err != nil {
		return nil, err
	}

	p := &PatternBackend{
		log:      options.Logger.With("backend", "pattern", "target", target.Name),
		interval: FrameInterval(options.FPS),
		timeout:  options.FrameTimeout,
		width:    width,
		height:   height,
		tag:      tag,
		queue:    NewFrameQueue("pattern", defaultFrameQueue, options.Logger),
		stop:     make(chan struct{}),
	}
	p.log.Debug("capture: pattern backend built",
		"size", fmt.Sprintf("%dx%d", width, height),
		"format", tag.String(),
		"fps", options.FPS,
	)
	if b.Built != nil {
		b.Built(p)
	}
	return p, nil
}

// PatternBackend is the Backend built by PatternBuilder.
type PatternBackend struct {
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	width   uint32
	height  uint32
	tag     PixelTag
	seq     uint64
	started bool
	stopped bool

	queue *FrameQueue
	stop  chan struct{}
	wg    sync.WaitGroup
}

// Resize changes the size of the frames produced from now on, the way a
// display mode change would.
func (p *PatternBackend) Resize(width, height uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width, p.height = width, height
}

// SetTag changes the pixel layout of the frames produced from now on.
func (p *PatternBackend) SetTag(tag PixelTag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tag = tag
}

func (p *PatternBackend) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrClosed
	}
	if p.started {
		return nil
	}
	p.started = true

	p.wg.Add(1)
	go p.loop()
	p.log.Debug("capture: pattern backend started")
	return nil
}

func (p *PatternBackend) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()
	p.queue.Close()
	p.log.Debug("capture: pattern backend stopped", "dropped", p.queue.Dropped())
	return nil
}

func (p *PatternBackend) NextFrame(ctx context.Context) (*RawFrame, error) {
	return p.queue.Pop(ctx, p.timeout)
}

func (p *PatternBackend) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.queue.Push(p.paint())
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.queue.Push(p.paint())
		}
	}
}

func (p *PatternBackend) paint() *RawFrame {
	p.mu.Lock()
	width, height, tag := p.width, p.height, p.tag
	seq := p.seq
	p.seq++
	p.mu.Unlock()

	return &RawFrame{
		Width:     width,
		Height:    height,
		Tag:       tag,
		Data:      paintBars(width, height, tag, seq),
		Timestamp: Now(),
	}
}

// paintBars draws vertical bars that scroll one column per frame.
func paintBars(width, height uint32, tag PixelTag, seq uint64) []byte {
	bpp := tag.BytesPerPixel()
	if bpp == 0 {
		// Planar layouts only need the right size; contents are irrelevant.
		return make([]byte, int(width)*int(height)*3/2)
	}

	stride := int(width) * bpp
	buf := make([]byte, stride*int(height))
	if width == 0 || height == 0 {
		return buf
	}

	row := buf[:stride]
	for x := 0; x < int(width); x++ {
		v := byte((uint64(x) + seq) * 255 / uint64(width))
		px := row[x*bpp : (x+1)*bpp]
		for i := range px {
			px[i] = v
		}
	}
	for y := 1; y < int(height); y++ {
		copy(buf[y*stride:(y+1)*stride], row)
	}
	return buf
}
