package emulator

// State indicates the run condition of the core. The core records
// whether a live program is loaded; the controller records whether the
// worker should be advancing it. Both are considered before each burst.
type State int

const (
	STATE_STOPPED = State(0) // stopped
	STATE_RUNNING = State(1) // running
	STATE_PAUSED  = State(2) // paused
)

// String returns the display name of the state.
func (state State) String() string {
	switch state {
	case STATE_STOPPED:
		return "stopped"
	case STATE_RUNNING:
		return "running"
	case STATE_PAUSED:
		return "paused"
	}

	return ""
}
