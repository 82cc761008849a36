package ecs

import (
	"reflect"
	"sync"
)

// SubApp is one independently-scheduled ECS world plus the bookkeeping a
// Runner needs to drive it: a deferred-command cache, typed state boxes, and
// the event registry owned by its World.
type SubApp struct {
	mu      sync.Mutex
	world   *World
	cmdPool *CommandBufferPool
	pending *CommandBuffer
	states  map[reflect.Type]*stateBox
	logger  Logger
}

// NewSubApp constructs an empty SubApp backed by a fresh World.
func NewSubApp() *SubApp {
	return &SubApp{
		world:   NewWorld(),
		cmdPool: NewCommandBufferPool(),
		states:  make(map[reflect.Type]*stateBox),
		logger:  noopLogger{},
	}
}

// World exposes the backing world.
func (a *SubApp) World() *World { return a.world }

// WithLogger attaches a logger used for warnings such as re-initializing an
// already-present state type.
func (a *SubApp) WithLogger(logger Logger) *SubApp {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// takeCommandBuffer returns this tick's deferred-command cache, allocating
// one from the pool on first use.
func (a *SubApp) takeCommandBuffer() *CommandBuffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		a.pending = a.cmdPool.Get()
	}
	return a.pending
}

// EndCommands drains and applies every command recorded against this SubApp
// since the last call, returning the buffer to its pool.
func (a *SubApp) EndCommands() error {
	a.mu.Lock()
	buf := a.pending
	a.pending = nil
	a.mu.Unlock()
	if buf == nil {
		return nil
	}
	commands := buf.Drain()
	a.cmdPool.Put(buf)
	return a.world.ApplyCommands(commands)
}

// TickEvents ages every event queue, evicting entries that have already
// survived one tick past the one they were written on.
func (a *SubApp) TickEvents() { a.world.events.tickAll() }

// AddEventType registers event type T ahead of first use; idempotent.
func AddEventType[T any](a *SubApp) { a.world.events.addEventType(typeOf[T]()) }

// EmplaceResourceOn overwrites resource T unconditionally.
func EmplaceResourceOn[T any](a *SubApp, value T) { EmplaceResource[T](a.world, value) }

// InsertResourceOn inserts resource T only if absent, reporting whether it was inserted.
func InsertResourceOn[T any](a *SubApp, value T) bool { return InsertResource[T](a.world, value) }

// InitResourceOn default-constructs resource T if absent.
func InitResourceOn[T any](a *SubApp) bool { return InitResource[T](a.world) }

func (a *SubApp) stateBox(t reflect.Type) (*stateBox, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	box, ok := a.states[t]
	return box, ok
}

func (a *SubApp) setNextState(t reflect.Type, v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if box, ok := a.states[t]; ok {
		box.pending = v
	}
}

// InsertState installs state T with an explicit starting value. A second
// call for the same T is a no-op (logged via the SubApp's logger), mirroring
// insert_state's "State already exists" warning.
func InsertState[T any](a *SubApp, initial T) {
	t := typeOf[T]()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.states[t]; exists {
		a.logger.Warn("state already exists", "type", t.String())
		return
	}
	a.states[t] = &stateBox{current: initial, pending: initial}
}

// InitState installs state T with its zero value if not already present.
func InitState[T any](a *SubApp) {
	var zero T
	InsertState[T](a, zero)
}

// UpdateStates advances every registered state from pending to current,
// marking each one changed iff the two values differ (compared structurally).
// Called once per tick by the Runner, after the stage category that owns
// state transitions.
func (a *SubApp) UpdateStates() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, box := range a.states {
		box.changed = !reflect.DeepEqual(box.current, box.pending)
		box.previous = box.current
		box.current = box.pending
	}
}

func (a *SubApp) bindContextAsDst(src *SubApp) *bindContext {
	if src == nil {
		src = a
	}
	return &bindContext{src: src, dst: a}
}
