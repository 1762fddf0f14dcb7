package audio

// State is the lifecycle state of a playback session.
type State int

const (
	StateIdle    State = iota // no voice connection, nothing current
	StatePlaying              // connected, current track rendering
	StatePaused               // connected, current track held
	StateStopped              // terminal, session evicted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Connected reports whether a session in this state holds a voice handle.
func (s State) Connected() bool {
	return s == StatePlaying || s == StatePaused
}
