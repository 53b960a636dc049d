package scapsrc

import (
	"fmt"

	"go2tv.app/scapsrc/capture"
)

type State int32

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StateChange is one edge of the lifecycle.
type StateChange int

const (
	NullToReady StateChange = iota
	ReadyToPaused
	PausedToPlaying
	PlayingToPaused
	PausedToReady
	ReadyToNull
)

var stateChanges = map[StateChange][2]State{
	NullToReady:     {StateNull, StateReady},
	ReadyToPaused:   {StateReady, StatePaused},
	PausedToPlaying: {StatePaused, StatePlaying},
	PlayingToPaused: {StatePlaying, StatePaused},
	PausedToReady:   {StatePaused, StateReady},
	ReadyToNull:     {StateReady, StateNull},
}

func (c StateChange) From() State { return stateChanges[c][0] }
func (c StateChange) To() State   { return stateChanges[c][1] }

func (c StateChange) String() string {
	if _, ok := stateChanges[c]; !ok {
		return fmt.Sprintf("change(%d)", int(c))
	}
	return c.From().String() + "->" + c.To().String()
}

// nextChange is the single step from cur towards target.
func nextChange(cur, target State) StateChange {
	if target > cur {
		switch cur {
		case StateNull:
			return NullToReady
		case StateReady:
			return ReadyToPaused
		default:
			return PausedToPlaying
		}
	}
	switch cur {
	case StatePlaying:
		return PlayingToPaused
	case StatePaused:
		return PausedToReady
	default:
		return ReadyToNull
	}
}

// phase is what the element owns in its current state. The backend lives in
// activePhase only, so a Null or Ready element can not hold one.
type phase interface {
	state() State
}

type idlePhase struct {
	s State
}

func (p idlePhase) state() State { return p.s }

type activePhase struct {
	backend capture.Backend
	cycle   uint64
	fps     uint32
	started bool
	playing bool
	// pending is the preroll frame, handed out by the first Create.
	pending *translatedFrame
}

func (p *activePhase) state() State {
	if p.playing {
		return StatePlaying
	}
	return StatePaused
}
