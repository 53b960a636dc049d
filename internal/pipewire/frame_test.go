package pipewire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPack_RemovesRowPadding(t *testing.T) {
	// 2x2 RGB with a stride of 8: two padding bytes per row.
	src := []byte{
		1, 2, 3, 4, 5, 6, 0xee, 0xee,
		7, 8, 9, 10, 11, 12, 0xee, 0xee,
	}
	got := pack(src, 8, 2, 2, FormatRGB.bytesPerPixel())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, got)
}

func TestPack_CopiesTightBuffers(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	got := pack(src, 4, 1, 2, FormatBGRx.bytesPerPixel())
	assert.Equal(t, src, got)

	src[0] = 99
	assert.Equal(t, byte(1), got[0], "the result must not alias the PipeWire buffer")
}

func TestPack_PlanarAndShortBuffers(t *testing.T) {
	nv12 := make([]byte, 6)
	assert.Len(t, pack(nv12, 2, 2, 2, FormatNV12.bytesPerPixel()), 6)

	// Truncated last row is left zeroed rather than read out of bounds.
	short := []byte{1, 2, 3, 4, 0, 0, 0, 0, 5, 6}
	got := pack(short, 8, 1, 2, FormatBGRA.bytesPerPixel())
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, got)
}
