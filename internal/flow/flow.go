// Package flow implements the per-page state machines: loading a list or
// entity, mutating it against the remote API, and reconciling local state
// with the server's response.
package flow

// State tracks where a page's data load stands.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

// ValidationError is a client-side precondition failure. It never reaches
// the network layer.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }
