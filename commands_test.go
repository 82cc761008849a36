package ecs_test

import (
	"reflect"
	"testing"

	ecs "github.com/kestrelgames/ecsapp"
	ecsstorage "github.com/kestrelgames/ecsapp/ecs/storage"
)

func TestSpawnCommand(t *testing.T) {
	world := ecs.NewWorld()
	var id ecs.EntityID
	cmd := ecs.NewSpawnCommand(&id)
	if err := cmd.Apply(world); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id.IsZero() {
		t.Fatalf("expected id to be populated")
	}
	if !world.Registry().IsAlive(id) {
		t.Fatalf("expected entity to exist")
	}
}

func TestDespawnCommand(t *testing.T) {
	world := ecs.NewWorld()
	id := world.Registry().Create()
	cmd := ecs.NewDespawnCommand(id)
	if err := cmd.Apply(world); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if world.Registry().IsAlive(id) {
		t.Fatalf("expected entity destroyed")
	}
}

func TestInsertRemoveComponentCommands(t *testing.T) {
	world := ecs.NewWorld()
	comp := ecs.ComponentType("comp")
	if err := world.RegisterComponent(comp, ecsstorage.NewDenseStrategy()); err != nil {
		t.Fatalf("register component: %v", err)
	}
	id := world.Registry().Create()

	insert := ecs.NewInsertComponentCommand(id, comp, 99)
	if err := insert.Apply(world); err != nil {
		t.Fatalf("apply insert: %v", err)
	}

	view, err := world.ViewComponent(comp)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	value, ok := view.Get(id)
	if !ok || value.(int) != 99 {
		t.Fatalf("unexpected component state: value=%v, ok=%v", value, ok)
	}

	remove := ecs.NewRemoveComponentCommand(id, comp)
	if err := remove.Apply(world); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	if view.Has(id) {
		t.Fatalf("component should be removed")
	}
}

func TestDespawnRecursiveRemovesDescendants(t *testing.T) {
	world := ecs.NewWorld()
	var parent, child ecs.EntityID

	if err := ecs.NewSpawnCommand(&parent).Apply(world); err != nil {
		t.Fatalf("spawn parent: %v", err)
	}
	if err := ecs.NewSpawnWithParentCommand(parent, &child).Apply(world); err != nil {
		t.Fatalf("spawn child: %v", err)
	}

	if err := ecs.NewDespawnRecursiveCommand(parent).Apply(world); err != nil {
		t.Fatalf("despawn recursive: %v", err)
	}
	if world.Registry().IsAlive(parent) || world.Registry().IsAlive(child) {
		t.Fatalf("expected parent and child both destroyed")
	}
}

type position struct{ X, Y float64 }
type velocity struct{ X, Y float64 }

func TestSpawnBundleCommandInsertsOneComponentPerField(t *testing.T) {
	world := ecs.NewWorld()
	var id ecs.EntityID

	cmd := ecs.NewSpawnBundleCommand(struct {
		Pos position
		Vel velocity
	}{Pos: position{X: 1, Y: 2}, Vel: velocity{X: 3, Y: 4}}, &id)
	if err := cmd.Apply(world); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id.IsZero() {
		t.Fatalf("expected id to be populated")
	}

	posType := reflect.TypeOf(position{})
	posView, err := world.ViewComponent(ecs.ComponentType(posType.PkgPath() + "." + posType.Name()))
	if err != nil {
		t.Fatalf("view position: %v", err)
	}
	value, ok := posView.Get(id)
	if !ok || value.(position).X != 1 {
		t.Fatalf("unexpected position component: %v, ok=%v", value, ok)
	}
}

func TestDespawnLeafOnlyOrphansChildren(t *testing.T) {
	world := ecs.NewWorld()
	var parent, child ecs.EntityID

	if err := ecs.NewSpawnCommand(&parent).Apply(world); err != nil {
		t.Fatalf("spawn parent: %v", err)
	}
	if err := ecs.NewSpawnWithParentCommand(parent, &child).Apply(world); err != nil {
		t.Fatalf("spawn child: %v", err)
	}

	if err := ecs.NewDespawnCommand(parent).Apply(world); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	if world.Registry().IsAlive(parent) {
		t.Fatalf("expected parent destroyed")
	}
	if !world.Registry().IsAlive(child) {
		t.Fatalf("expected child to survive a leaf-only despawn")
	}
}
