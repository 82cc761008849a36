package ecs

import (
	"reflect"
	"sync"
)

// eventRegistry holds one eventQueue per registered event type, keyed by the
// payload's reflect.Type, mirroring resourceMap's type-identity keying.
type eventRegistry struct {
	mu     sync.Mutex
	queues map[reflect.Type]*eventQueueBox
}

func newEventRegistry() *eventRegistry {
	return &eventRegistry{queues: make(map[reflect.Type]*eventQueueBox)}
}

// eventQueueBox is one type-erased event queue (payloads stored as any) so the
// registry can hold queues of heterogeneous payload types and age all of them
// uniformly in tickAll.
type eventQueueBox struct {
	mu      sync.Mutex
	entries []eventEntry
}

type eventEntry struct {
	payload any
	age     int
}

func (r *eventRegistry) ensure(t reflect.Type) *eventQueueBox {
	r.mu.Lock()
	defer r.mu.Unlock()
	box, ok := r.queues[t]
	if !ok {
		box = &eventQueueBox{}
		r.queues[t] = box
	}
	return box
}

// addEventType is idempotent: calling it twice for the same T is a no-op.
func (r *eventRegistry) addEventType(t reflect.Type) {
	r.ensure(t)
}

func (r *eventRegistry) write(t reflect.Type, payload any) {
	box := r.ensure(t)
	box.mu.Lock()
	box.entries = append(box.entries, eventEntry{payload: payload, age: 0})
	box.mu.Unlock()
}

func (r *eventRegistry) read(t reflect.Type) []any {
	box := r.ensure(t)
	box.mu.Lock()
	defer box.mu.Unlock()
	out := make([]any, len(box.entries))
	for i, e := range box.entries {
		out[i] = e.payload
	}
	return out
}

// tickAll evicts entries with age >= 1 and ages the survivors, so a payload
// written on tick t is visible on tick t and t+1 only.
func (r *eventRegistry) tickAll() {
	r.mu.Lock()
	boxes := make([]*eventQueueBox, 0, len(r.queues))
	for _, box := range r.queues {
		boxes = append(boxes, box)
	}
	r.mu.Unlock()

	for _, box := range boxes {
		box.mu.Lock()
		kept := box.entries[:0]
		for _, e := range box.entries {
			if e.age >= 1 {
				continue
			}
			e.age++
			kept = append(kept, e)
		}
		box.entries = kept
		box.mu.Unlock()
	}
}

// EventReader is the EventReader<T> system parameter: it observes every
// event of type T currently live (written this tick or the previous one).
// Like Extract, it reads from the stage's source SubApp so a cross-world
// stage can drain events the upstream SubApp produced; for a single-SubApp
// stage src == dst and it reads the same world EventWriter[T] wrote to.
type EventReader[T any] struct {
	world *World
}

// NewEventReader declares an EventReader<T> system parameter.
func NewEventReader[T any]() *EventReader[T] { return &EventReader[T]{} }

func (r *EventReader[T]) describeAccess(mf *AccessManifest) {
	mf.EventsRead = append(mf.EventsRead, typeOf[T]())
}

func (r *EventReader[T]) rebind(ctx *bindContext) {
	r.world = ctx.src.World()
	r.world.events.addEventType(typeOf[T]())
}

// Read returns every live event of type T, oldest first.
func (r *EventReader[T]) Read() []T {
	raw := r.world.events.read(typeOf[T]())
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if typed, ok := v.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Empty reports whether no event of type T is currently live.
func (r *EventReader[T]) Empty() bool {
	return len(r.world.events.read(typeOf[T]())) == 0
}

// EventWriter is the EventWriter<T> system parameter; it always writes into
// the stage's destination SubApp.
type EventWriter[T any] struct {
	world *World
}

// NewEventWriter declares an EventWriter<T> system parameter.
func NewEventWriter[T any]() *EventWriter[T] { return &EventWriter[T]{} }

func (w *EventWriter[T]) describeAccess(mf *AccessManifest) {
	mf.EventsWrite = append(mf.EventsWrite, typeOf[T]())
}

func (w *EventWriter[T]) rebind(ctx *bindContext) {
	w.world = ctx.dst.World()
	w.world.events.addEventType(typeOf[T]())
}

// Write appends an event, visible starting this tick.
func (w *EventWriter[T]) Write(payload T) {
	w.world.events.write(typeOf[T](), payload)
}

// ReadEvents returns every live event of type T directly against a World,
// for callers outside the system-parameter machinery (e.g. App.Run polling
// for AppExit between ticks).
func ReadEvents[T any](w *World) []T {
	w.events.addEventType(typeOf[T]())
	raw := w.events.read(typeOf[T]())
	out := make([]T, 0, len(raw))
	for _, v := range raw {
		if typed, ok := v.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// AppExit is the only built-in event type; writing one terminates the App's
// main loop at the end of the current iteration (see app.go).
type AppExit struct {
	Code int
}
