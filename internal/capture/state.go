package capture

// State is the capture session state.
type State string

// Session states.
const (
	StateIdle           State = "idle"            // Not started, or stopped by the caller
	StateCapturing      State = "capturing"       // Streams running, frames land in the ring
	StateChangingFormat State = "changing_format" // Re-enabling for a new signal
	StateStopped        State = "stopped"         // Halted by an unsupported signal or a failed re-enable
)

var allStates = []State{StateIdle, StateCapturing, StateChangingFormat, StateStopped}
