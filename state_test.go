package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type gameState string

const (
	stateMenu    gameState = "menu"
	statePlaying gameState = "playing"
)

func TestStateTransitionTracksChangedAndPrevious(t *testing.T) {
	app := NewSubApp()
	InsertState[gameState](app, stateMenu)

	next := NewNextStateRef[gameState]()
	next.rebind(app.bindContextAsDst(nil))

	cur := NewStateRef[gameState]()
	cur.rebind(app.bindContextAsDst(nil))

	val, ok := cur.Get()
	require.True(t, ok)
	require.Equal(t, stateMenu, val)
	require.False(t, cur.Changed())

	next.Set(statePlaying)
	app.UpdateStates()

	val, ok = cur.Get()
	require.True(t, ok)
	require.Equal(t, statePlaying, val)
	require.True(t, cur.Changed())

	ctx := app.bindContextAsDst(nil)
	require.True(t, OnEnter[gameState](statePlaying)(ctx))
	require.False(t, OnEnter[gameState](stateMenu)(ctx))
	require.True(t, OnExit[gameState](stateMenu)(ctx))
	require.True(t, OnChange[gameState]()(ctx))

	// A second tick with no further transition clears the changed flag.
	app.UpdateStates()
	require.False(t, cur.Changed())
	require.False(t, OnChange[gameState]()(ctx))
	require.False(t, OnEnter[gameState](statePlaying)(ctx))
}

func TestInStateGatesOnCurrentValue(t *testing.T) {
	app := NewSubApp()
	InsertState[gameState](app, stateMenu)
	ctx := app.bindContextAsDst(nil)

	require.True(t, InState[gameState](stateMenu)(ctx))
	require.False(t, InState[gameState](statePlaying)(ctx))
}

func TestInsertStateTwiceWarnsAndKeepsFirstValue(t *testing.T) {
	app := NewSubApp()
	InsertState[gameState](app, stateMenu)
	InsertState[gameState](app, statePlaying)

	ref := NewStateRef[gameState]()
	ref.rebind(app.bindContextAsDst(nil))
	val, ok := ref.Get()
	require.True(t, ok)
	require.Equal(t, stateMenu, val, "second InsertState call must not overwrite the first")
}
