package ecs

import (
	"fmt"
	"reflect"
)

// Command represents a deferred mutation applied outside system execution,
// recorded into a CommandBuffer during a tick and applied at end_commands.
type Command interface {
	Apply(world *World) error
}

// Parent marks an entity as a child of another; Children is kept consistent
// with it by the despawn/despawn-recursive commands below, both ordinary
// components rather than special-cased storage.
type Parent struct {
	Entity EntityID
}

// Children lists the direct descendants of an entity.
type Children struct {
	Entities []EntityID
}

var (
	parentComponentType   = componentTypeOf[Parent]()
	childrenComponentType = componentTypeOf[Children]()
)

// NewSpawnCommand enqueues a new entity; if target is non-nil it receives
// the allocated ID once the command applies.
func NewSpawnCommand(target *EntityID) Command {
	return spawnCommand{target: target}
}

// NewSpawnWithParentCommand enqueues a new entity and attaches it as a child
// of parent, updating both the new Parent component and the parent's
// Children component.
func NewSpawnWithParentCommand(parent EntityID, target *EntityID) Command {
	return spawnCommand{target: target, parent: &parent}
}

// NewDespawnCommand enqueues a leaf-only entity destruction: the entity is
// removed but its children (if any) are orphaned, not destroyed.
func NewDespawnCommand(id EntityID) Command {
	return despawnCommand{entity: id}
}

// NewDespawnRecursiveCommand enqueues destruction of id and every descendant
// reachable through Children components.
func NewDespawnRecursiveCommand(id EntityID) Command {
	return despawnCommand{entity: id, recursive: true}
}

// NewSpawnBundleCommand enqueues a new entity with one component per
// exported field of bundle, using each field's own type as its
// ComponentType. bundle must be a struct value.
func NewSpawnBundleCommand[T any](bundle T, target *EntityID) Command {
	return spawnBundleCommand{bundle: bundle, target: target}
}

// NewInsertComponentCommand enqueues a component insertion or overwrite.
func NewInsertComponentCommand(id EntityID, component ComponentType, value any) Command {
	return insertComponentCommand{entity: id, component: component, value: value}
}

// NewRemoveComponentCommand enqueues a component removal.
func NewRemoveComponentCommand(id EntityID, component ComponentType) Command {
	return removeComponentCommand{entity: id, component: component}
}

// NewInsertResourceCommand enqueues an unconditional resource overwrite.
func NewInsertResourceCommand[T any](value T) Command {
	return resourceCommand{apply: func(w *World) error {
		EmplaceResource[T](w, value)
		return nil
	}}
}

// NewInitResourceCommand enqueues a default-construct-if-absent resource insert.
func NewInitResourceCommand[T any]() Command {
	return resourceCommand{apply: func(w *World) error {
		InitResource[T](w)
		return nil
	}}
}

// NewRemoveResourceCommand enqueues a resource removal.
func NewRemoveResourceCommand[T any]() Command {
	return resourceCommand{apply: func(w *World) error {
		RemoveResource[T](w)
		return nil
	}}
}

type spawnCommand struct {
	target *EntityID
	parent *EntityID
}

type spawnBundleCommand struct {
	bundle any
	target *EntityID
}

type despawnCommand struct {
	entity    EntityID
	recursive bool
}

type insertComponentCommand struct {
	entity    EntityID
	component ComponentType
	value     any
}

type removeComponentCommand struct {
	entity    EntityID
	component ComponentType
}

type resourceCommand struct {
	apply func(world *World) error
}

func (c spawnCommand) Apply(world *World) error {
	id := world.registry.Create()
	if c.target != nil {
		*c.target = id
	}
	if c.parent == nil {
		return nil
	}
	parentStore := world.storage.ensureStore(parentComponentType)
	if err := parentStore.Set(id, Parent{Entity: *c.parent}); err != nil {
		return err
	}
	childrenStore := world.storage.ensureStore(childrenComponentType)
	existing, _ := childrenStore.Get(*c.parent)
	children, _ := existing.(Children)
	children.Entities = append(children.Entities, id)
	return childrenStore.Set(*c.parent, children)
}

func (c spawnBundleCommand) Apply(world *World) error {
	v := reflect.ValueOf(c.bundle)
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ecs: spawn bundle requires a struct value, got %s", v.Kind())
	}

	id := world.registry.Create()
	if c.target != nil {
		*c.target = id
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := v.Field(i).Interface()
		component := ComponentType(field.Type.PkgPath() + "." + field.Type.Name())
		store := world.storage.ensureStore(component)
		if err := store.Set(id, fieldValue); err != nil {
			return fmt.Errorf("ecs: spawn bundle field %s: %w", field.Name, err)
		}
	}
	return nil
}

func (c despawnCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: despawn zero entity")
	}
	if c.recursive {
		return despawnSubtree(world, c.entity)
	}
	detachFromParent(world, c.entity)
	childrenStore := world.storage.ensureStore(childrenComponentType)
	if raw, ok := childrenStore.Get(c.entity); ok {
		if children, ok := raw.(Children); ok {
			parentStore := world.storage.ensureStore(parentComponentType)
			for _, child := range children.Entities {
				parentStore.Remove(child)
			}
		}
		childrenStore.Remove(c.entity)
	}
	if !world.registry.Destroy(c.entity) {
		return fmt.Errorf("ecs: despawn stale entity %v", c.entity)
	}
	return nil
}

func despawnSubtree(world *World, id EntityID) error {
	childrenStore := world.storage.ensureStore(childrenComponentType)
	if raw, ok := childrenStore.Get(id); ok {
		if children, ok := raw.(Children); ok {
			for _, child := range children.Entities {
				if err := despawnSubtree(world, child); err != nil {
					return err
				}
			}
		}
	}
	detachFromParent(world, id)
	if !world.registry.Destroy(id) {
		return fmt.Errorf("ecs: despawn stale entity %v", id)
	}
	return nil
}

func detachFromParent(world *World, id EntityID) {
	parentStore := world.storage.ensureStore(parentComponentType)
	raw, ok := parentStore.Get(id)
	if !ok {
		return
	}
	parent, ok := raw.(Parent)
	if !ok {
		return
	}
	childrenStore := world.storage.ensureStore(childrenComponentType)
	existing, ok := childrenStore.Get(parent.Entity)
	if !ok {
		return
	}
	children, ok := existing.(Children)
	if !ok {
		return
	}
	filtered := children.Entities[:0]
	for _, c := range children.Entities {
		if c != id {
			filtered = append(filtered, c)
		}
	}
	children.Entities = filtered
	_ = childrenStore.Set(parent.Entity, children)
}

func (c insertComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: insert component on zero entity")
	}
	store := world.storage.ensureStore(c.component)
	return store.Set(c.entity, c.value)
}

func (c removeComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: remove component from zero entity")
	}
	store := world.storage.ensureStore(c.component)
	store.Remove(c.entity)
	return nil
}

func (c resourceCommand) Apply(world *World) error {
	if c.apply == nil {
		return nil
	}
	return c.apply(world)
}

var (
	_ Command = spawnCommand{}
	_ Command = spawnBundleCommand{}
	_ Command = despawnCommand{}
	_ Command = insertComponentCommand{}
	_ Command = removeComponentCommand{}
	_ Command = resourceCommand{}
)
