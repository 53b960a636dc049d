package scapsrc

import (
	"fmt"

	"go2tv.app/scapsrc/capture"
)

type translatedFrame struct {
	format    VideoFormat
	data      []byte
	timestamp uint64
}

// layoutForTag maps a backend pixel tag to an output layout. BGR0 is BGRx
// under another name.
func layoutForTag(tag capture.PixelTag) PixelLayout {
	switch tag {
	case capture.TagRGB:
		return LayoutRGB24
	case capture.TagRGBx:
		return LayoutRGBX
	case capture.TagXBGR:
		return LayoutXBGR
	case capture.TagBGRx, capture.TagBGR0:
		return LayoutBGRX
	case capture.TagBGRA:
		return LayoutBGRA
	default:
		return LayoutUnknown
	}
}

func translate(raw *capture.RawFrame) (translatedFrame, error) {
	if raw == nil {
		return translatedFrame{}, fmt.Errorf("%w: backend returned no frame", ErrBackendRead)
	}

	layout := layoutForTag(raw.Tag)
	if layout == LayoutUnknown {
		return translatedFrame{}, fmt.Errorf("%w: backend pixel format %s", ErrUnsupportedFormat, raw.Tag)
	}

	format := VideoFormat{Layout: layout, Width: raw.Width, Height: raw.Height}
	if raw.Width == 0 || raw.Height == 0 {
		return translatedFrame{}, fmt.Errorf("%w: empty %s frame", ErrUnsupportedFormat, format)
	}
	size, ok := format.FrameSize()
	if !ok {
		return translatedFrame{}, fmt.Errorf("%w: %s frame is too large", ErrUnsupportedFormat, format)
	}
	if len(raw.Data) < size {
		return translatedFrame{}, fmt.Errorf("%w: %s frame has %d bytes, want %d",
			ErrUnsupportedFormat, format, len(raw.Data), size)
	}

	return translatedFrame{
		format:    format,
		data:      raw.Data,
		timestamp: raw.Timestamp,
	}, nil
}
