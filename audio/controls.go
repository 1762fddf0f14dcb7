package audio

// Control identifiers double as button custom IDs.
const (
	ControlPause   = "pause"
	ControlResume  = "resume"
	ControlSkip    = "skip"
	ControlShuffle = "shuffle"
	ControlStop    = "stop"
)

// Control is one affordance offered next to a now-playing view.
type Control struct {
	ID       string
	Emoji    string
	Disabled bool
}

// Controls returns the affordances consistent with a session state. It is
// the only place that decides which buttons a view carries.
func Controls(state State, hasNext bool) []Control {
	var toggle Control
	switch state {
	case StatePlaying:
		toggle = Control{ID: ControlPause, Emoji: "⏸️"}
	case StatePaused:
		toggle = Control{ID: ControlResume, Emoji: "▶️"}
	default:
		return nil
	}
	return []Control{
		toggle,
		{ID: ControlSkip, Emoji: "⏭️", Disabled: !hasNext},
		{ID: ControlShuffle, Emoji: "🔀", Disabled: !hasNext},
		{ID: ControlStop, Emoji: "🚫"},
	}
}
