package viewer

import "fmt"

// State is the lifecycle of the active model.
//
//	Unloaded -> Loading -> Ready | Errored
//
// SelectModel always moves back to Loading.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateErrored:
		return "Errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
