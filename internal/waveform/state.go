package waveform

import "time"

// State is the playback state of the waveform player.
type State int

const (
	// StateIdle means no clip is loaded.
	StateIdle State = iota
	// StateLoading means a clip is being decoded.
	StateLoading
	// StateReady means a clip is loaded and stopped at the start.
	StateReady
	// StatePlaying means the clip is audible.
	StatePlaying
	// StatePaused means playback is suspended mid-clip.
	StatePaused
	// StateFinished means playback reached the end of the clip.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Playback is the visible playback state. Position and Duration come from
// the audio track, never from request timing.
type Playback struct {
	Playing  bool
	Position time.Duration
	Duration time.Duration
}

// Progress returns Position/Duration clamped to [0, 1].
func (p Playback) Progress() float64 {
	if p.Duration <= 0 {
		return 0
	}
	r := float64(p.Position) / float64(p.Duration)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// stateMachine enforces the legal transitions between states.
type stateMachine struct {
	current      State
	transitions  map[State][]State
	onTransition func(from, to State)
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:     {StateLoading},
			StateLoading:  {StateReady, StateIdle},
			StateReady:    {StatePlaying, StateIdle},
			StatePlaying:  {StatePaused, StateFinished, StateIdle},
			StatePaused:   {StatePlaying, StateIdle},
			StateFinished: {StatePlaying, StateIdle},
		},
	}
}

// transition moves to the given state if the table allows it.
func (sm *stateMachine) transition(to State) bool {
	valid := false
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	from := sm.current
	sm.current = to
	if sm.onTransition != nil {
		sm.onTransition(from, to)
	}
	return true
}

// reset returns to Idle from any state.
func (sm *stateMachine) reset() {
	if sm.current != StateIdle {
		sm.transition(StateIdle)
	}
}
