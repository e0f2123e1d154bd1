package app

import "fmt"

// State is the session lifecycle state.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

var stateNames = [...]string{
	Idle:     "idle",
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
