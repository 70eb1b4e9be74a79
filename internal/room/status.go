package room

// Status is the room lifecycle state. Rooms cycle Waiting -> Counting ->
// Resolving -> Settling -> Waiting indefinitely; they are never destroyed.
type Status int

const (
	// StatusWaiting means the room is accepting admissions and readiness
	// confirmations, with no countdown running.
	StatusWaiting Status = iota
	// StatusCounting means the start countdown is ticking.
	StatusCounting
	// StatusResolving means the countdown expired and a winner is being
	// drawn. This state is transient within a single event.
	StatusResolving
	// StatusSettling means the result was broadcast and the prize transfer
	// is in flight; the room resets after the grace delay.
	StatusSettling
)

// String returns the wire form of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCounting:
		return "counting"
	case StatusResolving:
		return "resolving"
	case StatusSettling:
		return "settling"
	default:
		return "unknown"
	}
}
