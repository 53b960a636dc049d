package screencast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/internal/pipewire"
	"go2tv.app/scapsrc/internal/portal"
)

func TestTargetsFromStreams(t *testing.T) {
	targets := targetsFromStreams([]portal.Stream{
		{NodeID: 42, Size: [2]int32{1920, 1080}, SourceType: portal.SourceTypeMonitor, ID: "HDMI-1"},
		{NodeID: 43, Size: [2]int32{800, 600}, SourceType: portal.SourceTypeWindow},
	})

	require.Len(t, targets, 2)
	assert.Equal(t, capture.Target{ID: 42, Name: "HDMI-1", Kind: capture.TargetMonitor, Width: 1920, Height: 1080}, targets[0])
	assert.Equal(t, "node-43", targets[1].Name)
	assert.Equal(t, capture.TargetWindow, targets[1].Kind)
}

func TestFormatMappingRoundTrip(t *testing.T) {
	for _, tag := range []capture.PixelTag{
		capture.TagRGB,
		capture.TagRGBx,
		capture.TagXBGR,
		capture.TagBGRx,
		capture.TagBGRA,
	} {
		assert.Equal(t, tag, tagFromFormat(formatFromTag(tag)), tag.String())
	}

	assert.Equal(t, pipewire.FormatBGRx, formatFromTag(capture.TagBGR0))
	assert.Equal(t, pipewire.FormatBGRx, formatFromTag(capture.TagUnknown))
	assert.Equal(t, capture.TagNV12, tagFromFormat(pipewire.FormatNV12))
	assert.Equal(t, capture.TagUnknown, tagFromFormat(pipewire.FormatUnknown))
}
