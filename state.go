package ecs

import "reflect"

// stateBox holds one state type's current and pending values plus the
// current tick's changed flag, stored in SubApp keyed by reflect.Type.
type stateBox struct {
	current  any
	pending  any
	previous any
	changed  bool
}

// StateRef is the read-only State<T> system parameter.
type StateRef[T any] struct {
	subApp *SubApp
}

func NewStateRef[T any]() *StateRef[T] { return &StateRef[T]{} }

func (s *StateRef[T]) describeAccess(mf *AccessManifest) {
	mf.StatesRead = append(mf.StatesRead, typeOf[T]())
}

func (s *StateRef[T]) rebind(ctx *bindContext) { s.subApp = ctx.dst }

// Get returns the current value of state T.
func (s *StateRef[T]) Get() (T, bool) {
	box, ok := s.subApp.stateBox(typeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := box.current.(T)
	return v, ok
}

// Changed reports whether the most recent UpdateStates call changed state T:
// true iff the pending value it copied into current differed from the
// previous current value (compared with reflect.DeepEqual).
func (s *StateRef[T]) Changed() bool {
	box, ok := s.subApp.stateBox(typeOf[T]())
	return ok && box.changed
}

// NextStateRef is the mutable NextState<T> system parameter: writing to it
// takes effect on the following update_states call, not immediately.
type NextStateRef[T any] struct {
	subApp *SubApp
}

func NewNextStateRef[T any]() *NextStateRef[T] { return &NextStateRef[T]{} }

func (s *NextStateRef[T]) describeAccess(mf *AccessManifest) {
	mf.StatesWrite = append(mf.StatesWrite, typeOf[T]())
}

func (s *NextStateRef[T]) rebind(ctx *bindContext) { s.subApp = ctx.dst }

// Set queues state T to transition to v on the next update_states pass.
func (s *NextStateRef[T]) Set(v T) {
	s.subApp.setNextState(typeOf[T](), v)
}

// Get returns the currently-queued pending value.
func (s *NextStateRef[T]) Get() (T, bool) {
	box, ok := s.subApp.stateBox(typeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := box.pending.(T)
	return v, ok
}

// InState builds a run condition that only admits the system when state T
// currently equals want, compared via reflect.DeepEqual.
func InState[T any](want T) Condition {
	return func(ctx *bindContext) bool {
		box, ok := ctx.dst.stateBox(typeOf[T]())
		if !ok {
			return false
		}
		cur, ok := box.current.(T)
		return ok && reflect.DeepEqual(cur, want)
	}
}

// OnEnter builds a run condition admitting the system only on the tick state
// T transitions to want.
func OnEnter[T any](want T) Condition {
	return func(ctx *bindContext) bool {
		box, ok := ctx.dst.stateBox(typeOf[T]())
		if !ok || !box.changed {
			return false
		}
		cur, ok := box.current.(T)
		return ok && reflect.DeepEqual(cur, want)
	}
}

// OnExit builds a run condition admitting the system only on the tick state
// T transitions away from want.
func OnExit[T any](want T) Condition {
	return func(ctx *bindContext) bool {
		box, ok := ctx.dst.stateBox(typeOf[T]())
		if !ok || !box.changed {
			return false
		}
		prev, ok := box.previous.(T)
		return ok && reflect.DeepEqual(prev, want)
	}
}

// OnChange builds a run condition admitting the system on any tick state T's
// value changed, regardless of the specific values involved: changed iff
// current != pending when the last UpdateStates ran, compared with
// reflect.DeepEqual.
func OnChange[T any]() Condition {
	return func(ctx *bindContext) bool {
		box, ok := ctx.dst.stateBox(typeOf[T]())
		return ok && box.changed
	}
}
