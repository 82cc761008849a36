package ecs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageRunnerRunsSubStagesInConfiguredOrderWithCommandsApplied(t *testing.T) {
	app := NewSubApp()
	pools := NewWorkerPoolTable(2)
	defer pools.CloseAll()
	stage := NewStageRunner("Update", app, app, pools)

	var spawned EntityID
	cmd := NewCmd()
	stage.AddSystem("spawn", NewSystem("spawn", func(ctx context.Context) error {
		cmd.Buffer().Push(NewSpawnCommand(&spawned))
		return nil
	}, cmd).Build())

	var sawAlive bool
	stage.AddSystem("verify", NewSystem("verify", func(ctx context.Context) error {
		sawAlive = app.World().Registry().IsAlive(spawned)
		return nil
	}).Build())

	stage.ConfigureSubStages("spawn", "verify")
	stage.build()
	stage.bake()

	summaries, err := stage.run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "spawn", summaries[0].SubStageName)
	require.Equal(t, "verify", summaries[1].SubStageName)
	require.True(t, sawAlive, "the spawn sub-stage's command must be applied before the verify sub-stage runs")
}

func TestStageRunnerConflictsWithOnSubAppOverlap(t *testing.T) {
	shared := NewSubApp()
	other := NewSubApp()
	pools := NewWorkerPoolTable(1)
	defer pools.CloseAll()

	stage := NewStageRunner("Update", shared, shared, pools)

	sameDst := NewStageRunner("Other", other, shared, pools)
	require.True(t, stage.conflictsWith(sameDst), "two stages sharing a destination SubApp must conflict regardless of their systems' manifests")

	disjoint := NewStageRunner("Disjoint", other, other, pools)
	require.False(t, stage.conflictsWith(disjoint), "stages touching entirely different SubApps must not conflict")
}
