package conn

// State is the connection lifecycle state. Exactly one instance exists per
// running process, owned by the Manager; transitions are the only way it
// changes.
type State int

const (
	StateIdle State = iota
	StateAwaitingPairing
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingPairing:
		return "awaiting_pairing"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}
