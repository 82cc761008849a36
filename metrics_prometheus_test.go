package ecs_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	ecs "github.com/kestrelgames/ecsapp"
)

func TestPromClientCollectorObserveSubStageRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := ecs.NewPromClientCollector(reg)

	collector.ObserveSubStage(ecs.SubStageSummary{
		StageName:      "Update",
		SubStageName:   "physics",
		SystemsRun:     2,
		SystemsSkipped: 1,
		Duration:       5 * time.Millisecond,
	})

	require.Equal(t, 1, testutil.CollectAndCount(reg, "ecs_sub_stage_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "ecs_sub_stage_systems_run_total"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "ecs_sub_stage_systems_skipped_total"))
	require.Equal(t, 0, testutil.CollectAndCount(reg, "ecs_sub_stage_errors_total"), "no error was recorded on this summary")

	collector.ObserveSubStage(ecs.SubStageSummary{
		StageName:    "Update",
		SubStageName: "physics",
		Error:        errBoom{},
	})
	require.Equal(t, 1, testutil.CollectAndCount(reg, "ecs_sub_stage_errors_total"))
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
