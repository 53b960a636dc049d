package scapsrc

import "errors"

// Every failure returned by Element wraps exactly one of these, so callers can
// branch on errors.Is or on KindOf.
var (
	ErrInit              = errors.New("capture backend initialisation failed")
	ErrBackendRead       = errors.New("failed to read frame from capture backend")
	ErrUnsupportedFormat = errors.New("unsupported frame format")
	ErrNegotiation       = errors.New("format negotiation failed")
	ErrNotNegotiated     = errors.New("not negotiated")
	ErrShutdown          = errors.New("capture backend shutdown failed")
	ErrFlushing          = errors.New("element is flushing")
	ErrInvalidTransition = errors.New("invalid state transition")
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidValue    = errors.New("invalid property value")
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInit
	KindBackendRead
	KindUnsupportedFormat
	KindNegotiation
	KindNotNegotiated
	KindShutdown
	KindFlushing
	KindInvalidTransition
	KindProperty
	KindOther
)

var kindNames = map[ErrorKind]string{
	KindNone:              "none",
	KindInit:              "init",
	KindBackendRead:       "backend-read",
	KindUnsupportedFormat: "unsupported-format",
	KindNegotiation:       "negotiation",
	KindNotNegotiated:     "not-negotiated",
	KindShutdown:          "shutdown",
	KindFlushing:          "flushing",
	KindInvalidTransition: "invalid-transition",
	KindProperty:          "property",
	KindOther:             "other",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Checked in order: a failed preroll wraps both ErrInit and the read or
// translation error underneath it, and reports as init.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInit, KindInit},
	{ErrShutdown, KindShutdown},
	{ErrFlushing, KindFlushing},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrNotNegotiated, KindNotNegotiated},
	{ErrNegotiation, KindNegotiation},
	{ErrUnsupportedFormat, KindUnsupportedFormat},
	{ErrBackendRead, KindBackendRead},
	{ErrUnknownProperty, KindProperty},
	{ErrInvalidValue, KindProperty},
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindOther
}
