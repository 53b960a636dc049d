package scapsrc

import "time"

// Buffer is one output frame.
type Buffer struct {
	// Data is the tightly packed frame, handed over from the backend without
	// a copy.
	Data []byte
	// PTS is zero-based within the current start cycle.
	PTS      time.Duration
	Duration time.Duration
	// Offset counts buffers produced in the current start cycle.
	Offset uint64
	Format VideoFormat
}
