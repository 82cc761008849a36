package ecs_test

import (
	"testing"

	ecs "github.com/kestrelgames/ecsapp"
	ecsstorage "github.com/kestrelgames/ecsapp/ecs/storage"
)

func TestWorldRegisterComponent(t *testing.T) {
	world := ecs.NewWorld()

	strategy := ecsstorage.NewDenseStrategy()
	compType := ecs.ComponentType("position")

	if err := world.RegisterComponent(compType, strategy); err != nil {
		t.Fatalf("register component: %v", err)
	}

	if err := world.RegisterComponent(compType, strategy); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	view, err := world.ViewComponent(compType)
	if err != nil {
		t.Fatalf("view component: %v", err)
	}
	if view.ComponentType() != compType {
		t.Fatalf("unexpected component type: %v", view.ComponentType())
	}
}

type clockResource struct {
	Millis int
}

func TestResourceInsertGetRemove(t *testing.T) {
	world := ecs.NewWorld()

	if _, ok := ecs.GetResource[clockResource](world); ok {
		t.Fatalf("expected no resource before insert")
	}

	if !ecs.InsertResource(world, clockResource{Millis: 123}) {
		t.Fatalf("expected insert to succeed")
	}

	value, ok := ecs.GetResource[clockResource](world)
	if !ok {
		t.Fatalf("expected resource")
	}
	if value.Millis != 123 {
		t.Fatalf("unexpected resource value: %v", value)
	}

	ecs.EmplaceResource(world, clockResource{Millis: 456})
	value, ok = ecs.GetResource[clockResource](world)
	if !ok || value.Millis != 456 {
		t.Fatalf("expected emplace to overwrite, got %v ok=%v", value, ok)
	}

	ecs.RemoveResource[clockResource](world)
	if _, ok := ecs.GetResource[clockResource](world); ok {
		t.Fatalf("resource should be removed")
	}
}

func TestInitResourceOnlyInsertsOnce(t *testing.T) {
	world := ecs.NewWorld()

	if !ecs.InitResource[clockResource](world) {
		t.Fatalf("expected first init to insert zero value")
	}
	ecs.EmplaceResource(world, clockResource{Millis: 7})

	if ecs.InitResource[clockResource](world) {
		t.Fatalf("expected second init to be a no-op")
	}

	value, ok := ecs.GetResource[clockResource](world)
	if !ok || value.Millis != 7 {
		t.Fatalf("expected existing value preserved, got %v ok=%v", value, ok)
	}
}
