//go:build !linux

package screencast

import "go2tv.app/scapsrc/capture"

func build(capture.Options) (capture.Backend, error) {
	return nil, capture.ErrNotImplemented
}
