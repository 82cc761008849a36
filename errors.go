package ecs

import "errors"

var (
	// ErrComponentAlreadyRegistered indicates an attempt to register the same component twice.
	ErrComponentAlreadyRegistered = errors.New("ecs: component already registered")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrNilStorageStrategy is returned when storage registration receives a nil strategy.
	ErrNilStorageStrategy = errors.New("ecs: nil storage strategy")
	// ErrNilComponentStore is returned when a strategy produces a nil store.
	ErrNilComponentStore = errors.New("ecs: strategy returned nil store")
	// ErrWorkerPoolClosed indicates jobs cannot be submitted because the pool closed.
	ErrWorkerPoolClosed = errors.New("ecs: worker pool closed")

	// ErrDuplicateSystem indicates a system with the same identity was already added to a sub-stage.
	ErrDuplicateSystem = errors.New("ecs: system already registered in sub-stage")
	// ErrDuplicatePlugin indicates a plugin type was already built into the app.
	ErrDuplicatePlugin = errors.New("ecs: plugin already registered")
	// ErrUnknownWorkerPool indicates a system referenced a pool name the runner never declared.
	ErrUnknownWorkerPool = errors.New("ecs: unknown worker pool")
	// ErrConditionNotAllowedHere indicates a state-transition-only condition was attached outside that stage.
	ErrConditionNotAllowedHere = errors.New("ecs: condition restricted to state-transition stage")
	// ErrCycleDetected indicates a sub-stage or stage graph left nodes unreached after a run.
	ErrCycleDetected = errors.New("ecs: cycle detected, nodes abandoned for this tick")
	// ErrStateAlreadyInitialized indicates insert_state/init_state was called twice for the same type.
	ErrStateAlreadyInitialized = errors.New("ecs: state already initialized")
	// ErrStaleEntity indicates an operation referenced an entity id that is no longer alive.
	ErrStaleEntity = errors.New("ecs: stale or zero entity")
	// ErrNotRunning indicates Run was invoked on an app whose graphs were never built.
	ErrNotRunning = errors.New("ecs: app graphs not built, call Build first")
)
