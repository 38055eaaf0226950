package session

// State is the session lifecycle position. Transitions:
//
//	Uninitialized -> Restoring -> {Authenticated, Anonymous}
//	Authenticated -> RefreshingToken -> {Authenticated, Anonymous}
//
// Loading is true only during Uninitialized and Restoring, and flips false
// exactly once per process lifetime.
type State int

const (
	Uninitialized State = iota
	Restoring
	Anonymous
	Authenticated
	RefreshingToken
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case RefreshingToken:
		return "refreshing"
	default:
		return "unknown"
	}
}
