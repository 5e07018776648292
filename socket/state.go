// File: socket/state.go
// Author: momentics <momentics@gmail.com>

package socket

// State is the lifecycle position of an I/O object.
type State int

const (
	Unopened State = iota
	Open
	Bound
	Connected
	Listening
	Closed
)

var stateNames = [...]string{"unopened", "open", "bound", "connected", "listening", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
