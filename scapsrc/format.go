package scapsrc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PixelLayout is one of the packed RGB layouts the element can output.
type PixelLayout int

const (
	LayoutUnknown PixelLayout = iota
	LayoutRGB24
	LayoutRGBX
	LayoutXBGR
	LayoutBGRX
	LayoutBGRA
)

var layoutNames = map[PixelLayout]string{
	LayoutRGB24: "RGB",
	LayoutRGBX:  "RGBx",
	LayoutXBGR:  "xBGR",
	LayoutBGRX:  "BGRx",
	LayoutBGRA:  "BGRA",
}

// SupportedLayouts lists every output layout in caps order.
func SupportedLayouts() []PixelLayout {
	return []PixelLayout{LayoutRGB24, LayoutRGBX, LayoutXBGR, LayoutBGRX, LayoutBGRA}
}

func (l PixelLayout) String() string {
	if s, ok := layoutNames[l]; ok {
		return s
	}
	return "unknown"
}

func ParsePixelLayout(s string) (PixelLayout, error) {
	for l, name := range layoutNames {
		if strings.EqualFold(name, s) {
			return l, nil
		}
	}
	return LayoutUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (l PixelLayout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *PixelLayout) UnmarshalText(text []byte) error {
	parsed, err := ParsePixelLayout(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l PixelLayout) BytesPerPixel() int {
	switch l {
	case LayoutRGB24:
		return 3
	case LayoutRGBX, LayoutXBGR, LayoutBGRX, LayoutBGRA:
		return 4
	default:
		return 0
	}
}

// Fraction is a rational frame rate. The zero value means unspecified.
type Fraction struct {
	Num int
	Den int
}

func (f Fraction) IsZero() bool {
	return f.Num == 0 && f.Den == 0
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

func parseFraction(s string) (Fraction, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		den = "1"
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d <= 0 {
		return Fraction{}, fmt.Errorf("invalid fraction %q", s)
	}
	return Fraction{Num: n, Den: d}, nil
}

// VideoFormat is a fully specified raw video format.
type VideoFormat struct {
	Layout    PixelLayout
	Width     uint32
	Height    uint32
	Framerate Fraction
}

// FrameSize is the size in bytes of one tightly packed frame. ok is false
// when the size does not fit in an int.
func (f VideoFormat) FrameSize() (size int, ok bool) {
	n := uint64(f.Layout.BytesPerPixel()) * uint64(f.Width)
	if f.Height != 0 && n > math.MaxInt/uint64(f.Height) {
		return 0, false
	}
	n *= uint64(f.Height)
	return int(n), true
}

// sameFrames reports whether frames of both formats are laid out the same.
// The frame rate does not take part: it never comes from the backend.
func (f VideoFormat) sameFrames(o VideoFormat) bool {
	return f.Layout == o.Layout && f.Width == o.Width && f.Height == o.Height
}

func (f VideoFormat) String() string {
	return fmt.Sprintf("%s %dx%d", f.Layout, f.Width, f.Height)
}
