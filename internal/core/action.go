package core

// ActionStatus is the lifecycle stage of a user action.
type ActionStatus string

const (
	StatusIdle      ActionStatus = "idle"
	StatusInFlight  ActionStatus = "in_flight"
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
)

// ActionState tracks one kind of action (sheet load, question) for a
// conversation. Every Begin or Reject starts a new generation; Succeed and
// Fail only apply when they carry the current generation, so the result of a
// superseded request is dropped instead of overwriting newer state.
//
// ActionState is not safe for concurrent use; the owning Conversation's
// mutex guards it.
type ActionState[T any] struct {
	status     ActionStatus
	generation uint64
	data       T
	err        error
}

// Begin marks the action in flight and returns its generation.
func (a *ActionState[T]) Begin() uint64 {
	var zero T
	a.generation++
	a.status = StatusInFlight
	a.data = zero
	a.err = nil
	return a.generation
}

// Reject records a failure that happened before any work started.
func (a *ActionState[T]) Reject(err error) {
	a.Begin()
	a.status = StatusFailed
	a.err = err
}

// Succeed stores data for generation gen. It reports false when gen has
// been superseded or already settled.
func (a *ActionState[T]) Succeed(gen uint64, data T) bool {
	if !a.current(gen) {
		return false
	}
	a.status = StatusSucceeded
	a.data = data
	return true
}

// Fail stores err for generation gen. It reports false when gen has been
// superseded or already settled.
func (a *ActionState[T]) Fail(gen uint64, err error) bool {
	if !a.current(gen) {
		return false
	}
	a.status = StatusFailed
	a.err = err
	return true
}

func (a *ActionState[T]) current(gen uint64) bool {
	return gen == a.generation && a.status == StatusInFlight
}

// Status returns the current lifecycle stage.
func (a *ActionState[T]) Status() ActionStatus {
	if a.status == "" {
		return StatusIdle
	}
	return a.status
}

// InFlight reports whether a request is outstanding.
func (a *ActionState[T]) InFlight() bool { return a.status == StatusInFlight }

// Data returns the value stored by the last successful generation.
func (a *ActionState[T]) Data() T { return a.data }

// Err returns the error stored by the last failed generation.
func (a *ActionState[T]) Err() error { return a.err }

// ActionView is the serializable form of an ActionState.
type ActionView struct {
	Status ActionStatus `json:"status"`
	Error  *UserMessage `json:"error,omitempty"`
}

// View maps the state for display; errors go through MapError.
func (a *ActionState[T]) View() ActionView {
	v := ActionView{Status: a.Status()}
	if a.status == StatusFailed && a.err != nil {
		msg := MapError(a.err)
		v.Error = &msg
	}
	return v
}
