package scapsrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go2tv.app/scapsrc/capture"
)

func TestLayoutForTag(t *testing.T) {
	tests := map[capture.PixelTag]PixelLayout{
		capture.TagRGB:    LayoutRGB24,
		capture.TagRGBx:   LayoutRGBX,
		capture.TagXBGR:   LayoutXBGR,
		capture.TagBGRx:   LayoutBGRX,
		capture.TagBGR0:   LayoutBGRX,
		capture.TagBGRA:   LayoutBGRA,
		capture.TagRGBA:   LayoutUnknown,
		capture.TagBGR:    LayoutUnknown,
		capture.TagYUV420: LayoutUnknown,
		capture.TagNV12:   LayoutUnknown,
	}
	for tag, want := range tests {
		assert.Equal(t, want, layoutForTag(tag), tag.String())
	}
}

func TestTranslate(t *testing.T) {
	raw := &capture.RawFrame{Width: 3, Height: 2, Tag: capture.TagRGB, Data: make([]byte, 18), Timestamp: 77}

	frame, err := translate(raw)
	require.NoError(t, err)
	assert.Equal(t, VideoFormat{Layout: LayoutRGB24, Width: 3, Height: 2}, frame.format)
	assert.Equal(t, uint64(77), frame.timestamp)
	assert.Len(t, frame.data, 18)
}

func TestTranslate_Rejects(t *testing.T) {
	_, err := translate(&capture.RawFrame{Width: 2, Height: 2, Tag: capture.TagYUV420, Data: make([]byte, 6)})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = translate(&capture.RawFrame{Width: 2, Height: 2, Tag: capture.TagBGRA, Data: make([]byte, 15)})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = translate(&capture.RawFrame{Tag: capture.TagBGRA})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = translate(&capture.RawFrame{Width: 1 << 31, Height: 1<<31 - 1<<29, Tag: capture.TagBGRx})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = translate(nil)
	assert.ErrorIs(t, err, ErrBackendRead)
}
