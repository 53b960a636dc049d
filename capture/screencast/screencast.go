// Package screencast captures the desktop through the xdg-desktop-portal
// ScreenCast interface and reads frames from the PipeWire node it grants.
package screencast

import (
	"fmt"

	"go2tv.app/scapsrc/capture"
	"go2tv.app/scapsrc/internal/pipewire"
	"go2tv.app/scapsrc/internal/portal"
)

// Builder returns a capture.Builder backed by the desktop portal.
func Builder() capture.Builder {
	return capture.BuilderFunc(build)
}

func tagFromFormat(f pipewire.Format) capture.PixelTag {
	switch f {
	case pipewire.FormatRGB:
		return capture.TagRGB
	case pipewire.FormatRGBx:
		return capture.TagRGBx
	case pipewire.FormatXBGR:
		return capture.TagXBGR
	case pipewire.FormatBGRx:
		return capture.TagBGRx
	case pipewire.FormatBGRA:
		return capture.TagBGRA
	case pipewire.FormatRGBA:
		return capture.TagRGBA
	case pipewire.FormatBGR:
		return capture.TagBGR
	case pipewire.FormatI420:
		return capture.TagYUV420
	case pipewire.FormatNV12:
		return capture.TagNV12
	default:
		return capture.TagUnknown
	}
}

func formatFromTag(t capture.PixelTag) pipewire.Format {
	switch t {
	case capture.TagRGB:
		return pipewire.FormatRGB
	case capture.TagRGBx:
		return pipewire.FormatRGBx
	case capture.TagXBGR:
		return pipewire.FormatXBGR
	case capture.TagBGRx, capture.TagBGR0:
		return pipewire.FormatBGRx
	case capture.TagBGRA:
		return pipewire.FormatBGRA
	default:
		return pipewire.FormatBGRx
	}
}

func kindFromSourceType(t uint32) capture.TargetKind {
	switch t {
	case portal.SourceTypeMonitor:
		return capture.TargetMonitor
	case portal.SourceTypeWindow:
		return capture.TargetWindow
	case portal.SourceTypeVirtual:
		return capture.TargetVirtual
	default:
		return capture.TargetMonitor
	}
}

func targetsFromStreams(streams []portal.Stream) []capture.Target {
	targets := make([]capture.Target, 0, len(streams))
	for _, s := range streams {
		name := s.ID
		if name == "" {
			name = fmt.Sprintf("node-%d", s.NodeID)
		}
		targets = append(targets, capture.Target{
			ID:     s.NodeID,
			Name:   name,
			Kind:   kindFromSourceType(s.SourceType),
			Width:  s.Size[0],
			Height: s.Size[1],
		})
	}
	return targets
}
