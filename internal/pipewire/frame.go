package pipewire

// Format is the negotiated raw video format of a stream.
type Format int

const (
	FormatUnknown Format = iota
	FormatRGB
	FormatRGBx
	FormatXBGR
	FormatBGRx
	FormatBGRA
	FormatRGBA
	FormatBGR
	FormatI420
	FormatNV12
)

func (f Format) bytesPerPixel() int {
	switch f {
	case FormatRGB, FormatBGR:
		return 3
	case FormatRGBx, FormatXBGR, FormatBGRx, FormatBGRA, FormatRGBA:
		return 4
	default:
		return 0
	}
}

// Frame is a copy of one dequeued buffer, tightly packed.
type Frame struct {
	Data   []byte
	Width  uint32
	Height uint32
	Format Format
}

type FrameFunc func(Frame)

type Config struct {
	// Width and Height are the size hint offered during format negotiation.
	Width  uint32
	Height uint32
	// Framerate is the preferred rate in frames per second.
	Framerate uint32
	// Preferred is offered as the default format.
	Preferred Format
	// OnFrame is called on the PipeWire loop thread for every buffer. It
	// must not block.
	OnFrame FrameFunc
	// OnError reports stream errors and disconnects.
	OnError func(error)
}

// pack copies src into a new slice without row padding. PipeWire buffers are
// reused once the callback returns, so the copy is always needed.
func pack(src []byte, stride, width, height, bpp int) []byte {
	row := width * bpp
	if bpp == 0 || stride <= row || height <= 0 {
		out := make([]byte, len(src))
		copy(out, src)
		return out
	}

	out := make([]byte, row*height)
	for y := 0; y < height; y++ {
		start := y * stride
		if start+row > len(src) {
			break
		}
		copy(out[y*row:(y+1)*row], src[start:start+row])
	}
	return out
}
