package ecs

import "github.com/google/uuid"

// World encapsulates entity/component storage, resources, and event queues for
// one ECS universe. A World is not thread-safe by itself: all concurrent access
// is mediated by the scheduler's conflict guarantees (see Conflicts).
type World struct {
	id        uuid.UUID
	registry  *EntityRegistry
	storage   *storageProvider
	resources *resourceMap
	events    *eventRegistry
}

type WorldOption func(*World)

// NewWorld constructs a world with default registries and providers.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		id:        uuid.New(),
		registry:  NewEntityRegistry(),
		storage:   newStorageProvider(),
		resources: newResourceContainer(),
		events:    newEventRegistry(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithEntityRegistry overrides the default registry.
func WithEntityRegistry(registry *EntityRegistry) WorldOption {
	return func(w *World) {
		if registry != nil {
			w.registry = registry
		}
	}
}

// ID returns the world's stable identifier, used to correlate logs and traces
// across a run (see Logger/Tracer in observability.go).
func (w *World) ID() uuid.UUID {
	return w.id
}

// Registry exposes the backing entity registry.
func (w *World) Registry() *EntityRegistry {
	return w.registry
}

// Storage returns the storage provider used by the world.
func (w *World) Storage() StorageProvider {
	return w.storage
}

// RegisterComponent allows callers to register component storage strategies.
func (w *World) RegisterComponent(t ComponentType, strategy StorageStrategy) error {
	return w.storage.RegisterComponent(t, strategy)
}

// ViewComponent retrieves a component view by type.
func (w *World) ViewComponent(t ComponentType) (ComponentView, error) {
	return w.storage.View(t)
}

// ApplyCommands executes deferred commands against the world.
func (w *World) ApplyCommands(commands []Command) error {
	return w.storage.Apply(w, commands)
}

// Spawn allocates a fresh entity with no components.
func (w *World) Spawn() EntityID {
	return w.registry.Create()
}

// Despawn destroys a single entity (leaf-only; does not touch descendants).
// Callers wanting the Parent/Children tree invariant preserved should go
// through NewDespawnCommand/NewDespawnRecursiveCommand instead of calling this
// directly, since this method does no tree bookkeeping.
func (w *World) Despawn(id EntityID) bool {
	return w.registry.Destroy(id)
}
