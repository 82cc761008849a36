package ecs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPrometheusTextCollectorWritesMetrics(t *testing.T) {
	collector := NewPrometheusSubStageCollector(&PrometheusCollectorOptions{})
	cimpl, ok := collector.(*PrometheusTextCollector)
	if !ok {
		t.Fatalf("expected PrometheusTextCollector implementation")
	}

	summary := SubStageSummary{
		StageName:      "Update",
		SubStageName:   "Movement",
		Tick:           42,
		Duration:       5 * time.Millisecond,
		SystemsTotal:   2,
		SystemsRun:     2,
		SystemsSkipped: 0,
	}

	collector.ObserveSubStage(summary)

	var buf bytes.Buffer
	if err := cimpl.WriteMetrics(&buf); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
	metrics := buf.String()
	if !strings.Contains(metrics, "ecs_sub_stage_duration_seconds_sum") {
		t.Fatalf("expected duration metric in %q", metrics)
	}
	if !strings.Contains(metrics, "ecs_sub_stage_systems_run_total") {
		t.Fatalf("expected run metric in %q", metrics)
	}
}

func TestSigNozSpanExporterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewSigNozSpanExporter(&SigNozOptions{Writer: &buf, ServiceName: "ecs-test"})

	summary := SubStageSummary{
		StageName:     "Update",
		SubStageName:  "Movement",
		Tick:          13,
		Duration:      10 * time.Millisecond,
		SystemsTotal:  1,
		SystemsRun:    1,
		ResourceReads: []string{"clock"},
	}

	exporter.ExportSubStage(summary)

	if buf.Len() == 0 {
		t.Fatalf("expected exporter to write output")
	}

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	attrs, ok := payload["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes missing in payload: %v", payload)
	}
	if attrs["stage"] != "Update" {
		t.Fatalf("unexpected stage: %v", attrs["stage"])
	}
}

func TestBuildObserverChainComposesConfiguredSinks(t *testing.T) {
	var buf bytes.Buffer
	cfg := InstrumentationConfig{
		Observation: ObservationSettings{
			EnableSigNoz:  true,
			SigNozOptions: &SigNozOptions{Writer: &buf, ServiceName: "chain-test"},
		},
	}
	observer := buildObserverChain(noopLogger{}, cfg)
	observer.SubStageCompleted(SubStageSummary{StageName: "Update", SubStageName: "Movement"})
	if buf.Len() == 0 {
		t.Fatalf("expected observer chain to reach the SigNoz sink")
	}
}
