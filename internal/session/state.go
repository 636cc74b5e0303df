package session

// State is a step of the session lifecycle.
type State int

// Session states, in the order a first login walks through them.
const (
	NoSession State = iota
	SessionLoaded
	SessionCreated
	Unauthenticated
	AwaitingCode
	AwaitingSecondFactor
	Authenticated
)

var stateNames = [...]string{
	NoSession:            "no_session",
	SessionLoaded:        "session_loaded",
	SessionCreated:       "session_created",
	Unauthenticated:      "unauthenticated",
	AwaitingCode:         "awaiting_code",
	AwaitingSecondFactor: "awaiting_second_factor",
	Authenticated:        "authenticated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
