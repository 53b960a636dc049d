package capture

// PixelTag is the backend-native pixel layout of a frame.
type PixelTag int

const (
	TagUnknown PixelTag = iota
	TagRGB
	TagRGBx
	TagXBGR
	TagBGRx
	TagBGR0
	TagBGRA
	TagRGBA
	TagBGR
	TagYUV420
	TagNV12
)

func (t PixelTag) String() string {
	switch t {
	case TagRGB:
		return "RGB"
	case TagRGBx:
		return "RGBx"
	case TagXBGR:
		return "xBGR"
	case TagBGRx:
		return "BGRx"
	case TagBGR0:
		return "BGR0"
	case TagBGRA:
		return "BGRA"
	case TagRGBA:
		return "RGBA"
	case TagBGR:
		return "BGR"
	case TagYUV420:
		return "YUV420"
	case TagNV12:
		return "NV12"
	default:
		return "unknown"
	}
}

// ParsePixelTag is the inverse of PixelTag.String. It is case sensitive
// because xBGR and XBGR name the same thing only by convention.
func ParsePixelTag(s string) (PixelTag, bool) {
	for t := TagRGB; t <= TagNV12; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return TagUnknown, false
}

// BytesPerPixel returns the packed pixel size, or 0 for planar and unknown tags.
func (t PixelTag) BytesPerPixel() int {
	switch t {
	case TagRGB, TagBGR:
		return 3
	case TagRGBx, TagXBGR, TagBGRx, TagBGR0, TagBGRA, TagRGBA:
		return 4
	default:
		return 0
	}
}

// RawFrame is one frame as the backend produced it. Timestamp is the capture
// time in nanoseconds on a backend-defined monotonic clock.
type RawFrame struct {
	Width     uint32
	Height    uint32
	Tag       PixelTag
	Data      []byte
	Timestamp uint64
}
