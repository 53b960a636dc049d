package scapsrc

import "fmt"

// Negotiator is the downstream end of format negotiation. SetCaps receives
// fixed caps and returns an error to refuse them.
//
// SetCaps is called without any format lock held, so it may query the
// element back (QueryCaps, NegotiatedFormat, State, Stats). It must not
// drive lifecycle transitions.
type Negotiator interface {
	SetCaps(caps Caps) error
}

// NegotiatorFunc adapts a function to Negotiator.
type NegotiatorFunc func(caps Caps) error

func (f NegotiatorFunc) SetCaps(caps Caps) error {
	return f(caps)
}

// SetNegotiator replaces the downstream negotiator. Nil accepts every format.
func (e *Element) SetNegotiator(n Negotiator) {
	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	e.negotiator = n
}

// needsNegotiation reports whether a frame of the observed format can not go
// out under what was negotiated so far.
func (e *Element) needsNegotiation(observed VideoFormat) bool {
	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	return !e.format.negotiated || !e.format.current.sameFrames(observed)
}

// negotiate proposes candidate downstream and records it once accepted.
// A candidate from a cycle other than the current one is never proposed.
func (e *Element) negotiate(cycle uint64, candidate VideoFormat) error {
	caps := FixedCaps(candidate)

	e.formatMu.Lock()
	if e.format.cycle != cycle {
		e.formatMu.Unlock()
		return fmt.Errorf("%w: frame from a stopped cycle", ErrFlushing)
	}
	previous, had := e.format.current, e.format.negotiated
	negotiator := e.negotiator
	e.formatMu.Unlock()

	if had {
		e.log.Info("scapsrc: frame format changed, renegotiating",
			"from", previous.String(),
			"to", candidate.String(),
		)
	} else {
		e.log.Debug("scapsrc: negotiating", "caps", caps.String())
	}

	if negotiator != nil {
		if err := negotiator.SetCaps(caps); err != nil {
			e.log.Error("scapsrc: downstream refused caps", "caps", caps.String(), "error", err)
			return fmt.Errorf("%w: %s: %w", ErrNegotiation, caps, err)
		}
	}

	e.formatMu.Lock()
	defer e.formatMu.Unlock()
	if e.format.cycle != cycle {
		return fmt.Errorf("%w: stopped during negotiation", ErrFlushing)
	}
	e.format.current = candidate
	e.format.negotiated = true
	e.negotiations.Add(1)
	return nil
}
