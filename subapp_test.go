package ecs

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubAppEndCommandsAppliesAndClearsPendingBuffer(t *testing.T) {
	app := NewSubApp()

	var id EntityID
	buf := app.takeCommandBuffer()
	buf.Push(NewSpawnCommand(&id))
	require.NoError(t, app.EndCommands())

	require.False(t, id.IsZero())

	posType := ComponentType(reflect.TypeOf(testPosition{}).PkgPath() + "." + reflect.TypeOf(testPosition{}).Name())
	buf = app.takeCommandBuffer()
	buf.Push(NewInsertComponentCommand(id, posType, testPosition{X: 3, Y: 4}))
	require.NoError(t, app.EndCommands())

	view, err := app.World().ViewComponent(posType)
	require.NoError(t, err)
	stored, ok := view.Get(id)
	require.True(t, ok)
	require.Equal(t, testPosition{X: 3, Y: 4}, stored)

	// A second EndCommands with nothing pending is a no-op, not an error.
	require.NoError(t, app.EndCommands())
}

func TestSubAppTickEventsAgesOutStaleEntries(t *testing.T) {
	app := NewSubApp()
	AddEventType[AppExit](app)
	app.World().events.write(typeOf[AppExit](), AppExit{Code: 1})

	require.Len(t, ReadEvents[AppExit](app.World()), 1)

	app.TickEvents()
	require.Len(t, ReadEvents[AppExit](app.World()), 1, "an event survives the tick it was written on")

	app.TickEvents()
	require.Empty(t, ReadEvents[AppExit](app.World()), "an event does not survive a second tick")
}

type testClock struct {
	Millis int
}

func TestSubAppResourceHelpersDelegateToWorld(t *testing.T) {
	app := NewSubApp()

	require.True(t, InitResourceOn[testClock](app))
	require.False(t, InitResourceOn[testClock](app), "a second InitResourceOn is a no-op")

	EmplaceResourceOn[testClock](app, testClock{Millis: 42})
	val, ok := GetResource[testClock](app.World())
	require.True(t, ok)
	require.Equal(t, 42, val.Millis)

	require.False(t, InsertResourceOn[testClock](app, testClock{Millis: 99}), "InsertResourceOn must not overwrite an existing resource")
	val, _ = GetResource[testClock](app.World())
	require.Equal(t, 42, val.Millis)
}

func TestInitStateInstallsZeroValueOnce(t *testing.T) {
	app := NewSubApp()
	InitState[gameState](app)

	ref := NewStateRef[gameState]()
	ref.rebind(app.bindContextAsDst(nil))
	val, ok := ref.Get()
	require.True(t, ok)
	require.Equal(t, gameState(""), val)
}
