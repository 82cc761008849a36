package ecs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger captures structured log output from the runner and its systems.
type Logger interface {
	With(key string, value any) Logger
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Tracer coordinates tracing spans for observability tooling.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, TraceSpan)
}

// TraceSpan represents an active tracing region.
type TraceSpan interface {
	End()
}

// InstrumentationConfig configures logging, tracing, and metrics sinks for a
// Runner.
type InstrumentationConfig struct {
	EnableTrace   bool
	EnableMetrics bool
	Observer      RunnerObserver
	Observation   ObservationSettings
}

// ObservationSettings toggles built-in observer integrations.
type ObservationSettings struct {
	EnableStructuredLogging bool
	LoggingFormat           ObservationLogFormat
	StructuredLogger        Logger
	EnablePrometheus        bool
	PrometheusCollector     PrometheusCollector
	PrometheusOptions       *PrometheusCollectorOptions
	EnableSigNoz            bool
	SigNozExporter          SigNozExporter
	SigNozOptions           *SigNozOptions
}

// ObservationLogFormat controls structured logging encoding.
type ObservationLogFormat uint8

const (
	ObservationLogFormatJSON ObservationLogFormat = iota
	ObservationLogFormatKeyValue
)

// RunnerObserver receives one summary per sub-stage run, delivered when the
// stage that owns the sub-stage completes.
type RunnerObserver interface {
	SubStageCompleted(summary SubStageSummary)
}

// PrometheusCollector handles sub-stage summaries for Prometheus-style metrics.
type PrometheusCollector interface {
	ObserveSubStage(summary SubStageSummary)
}

type PrometheusCollectorOptions struct {
	Writer          io.Writer
	DurationBuckets []time.Duration
}

// SigNozExporter handles sub-stage summaries for SigNoz platforms.
type SigNozExporter interface {
	ExportSubStage(summary SubStageSummary)
}

type SigNozOptions struct {
	Writer      io.Writer
	ServiceName string
}

// SubStageSummary captures execution metadata for one sub-stage run, across
// every wave of its conflict-derived schedule.
type SubStageSummary struct {
	StageName      string
	SubStageName   string
	Tick           uint64
	Duration       time.Duration
	Waves          int
	SystemsTotal   int
	SystemsRun     int
	SystemsSkipped int
	Error          error
	ComponentReads []ComponentType
	ComponentWrites []ComponentType
	ResourceReads  []string
	ResourceWrites []string
}

type compositeObserver struct {
	observers []RunnerObserver
}

func (c compositeObserver) SubStageCompleted(summary SubStageSummary) {
	for _, observer := range c.observers {
		observer.SubStageCompleted(summary)
	}
}

type noopObserver struct{}

func (noopObserver) SubStageCompleted(SubStageSummary) {}

type noopLogger struct{}

func (noopLogger) With(string, any) Logger { return noopLogger{} }
func (noopLogger) Info(string, ...any)     {}
func (noopLogger) Warn(string, ...any)     {}
func (noopLogger) Error(string, ...any)    {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, name string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End() {}

type loggingObserver struct {
	logger Logger
	format ObservationLogFormat
}

func newLoggingObserver(logger Logger, format ObservationLogFormat) RunnerObserver {
	if logger == nil {
		return noopObserver{}
	}
	if format != ObservationLogFormatKeyValue {
		format = ObservationLogFormatJSON
	}
	return loggingObserver{logger: logger, format: format}
}

func (o loggingObserver) SubStageCompleted(summary SubStageSummary) {
	switch o.format {
	case ObservationLogFormatKeyValue:
		o.logKeyValue(summary)
	default:
		o.logJSON(summary)
	}
}

func (o loggingObserver) logJSON(summary SubStageSummary) {
	payload := map[string]any{
		"stage":            summary.StageName,
		"sub_stage":        summary.SubStageName,
		"tick":             summary.Tick,
		"duration_ms":      float64(summary.Duration) / float64(time.Millisecond),
		"waves":            summary.Waves,
		"systems_total":    summary.SystemsTotal,
		"systems_run":      summary.SystemsRun,
		"systems_skipped":  summary.SystemsSkipped,
		"component_reads":  summary.ComponentReads,
		"component_writes": summary.ComponentWrites,
		"resource_reads":   summary.ResourceReads,
		"resource_writes":  summary.ResourceWrites,
	}
	if summary.Error != nil {
		payload["error"] = summary.Error.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.With("sub_stage", summary.SubStageName).Error("sub-stage summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

func (o loggingObserver) logKeyValue(summary SubStageSummary) {
	builder := o.logger.With("stage", summary.StageName).With("sub_stage", summary.SubStageName)
	args := []any{
		"tick", summary.Tick,
		"duration", summary.Duration,
		"waves", summary.Waves,
		"systems_total", summary.SystemsTotal,
		"systems_run", summary.SystemsRun,
		"systems_skipped", summary.SystemsSkipped,
		"component_reads", strings.Join(convertComponentTypes(summary.ComponentReads), ","),
		"component_writes", strings.Join(convertComponentTypes(summary.ComponentWrites), ","),
		"resource_reads", strings.Join(summary.ResourceReads, ","),
		"resource_writes", strings.Join(summary.ResourceWrites, ","),
	}
	if summary.Error != nil {
		args = append(args, "error", summary.Error.Error())
	}
	builder.Info("sub-stage summary", args...)
}

type prometheusObserver struct {
	collector PrometheusCollector
}

func newPrometheusObserver(collector PrometheusCollector) RunnerObserver {
	if collector == nil {
		return noopObserver{}
	}
	return prometheusObserver{collector: collector}
}

func (o prometheusObserver) SubStageCompleted(summary SubStageSummary) {
	o.collector.ObserveSubStage(summary)
}

type sigNozObserver struct {
	exporter SigNozExporter
}

func newSigNozObserver(exporter SigNozExporter) RunnerObserver {
	if exporter == nil {
		return noopObserver{}
	}
	return sigNozObserver{exporter: exporter}
}

func (o sigNozObserver) SubStageCompleted(summary SubStageSummary) {
	o.exporter.ExportSubStage(summary)
}

func convertComponentTypes(types []ComponentType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

func buildObserverChain(logger Logger, cfg InstrumentationConfig) RunnerObserver {
	var observers []RunnerObserver

	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}

	obs := cfg.Observation

	if obs.EnableStructuredLogging {
		structuredLogger := obs.StructuredLogger
		if structuredLogger == nil {
			structuredLogger = logger
		}
		observers = append(observers, newLoggingObserver(structuredLogger, obs.LoggingFormat))
	}

	if obs.EnablePrometheus {
		collector := obs.PrometheusCollector
		if collector == nil {
			collector = NewPrometheusSubStageCollector(obs.PrometheusOptions)
		}
		if collector != nil {
			observers = append(observers, newPrometheusObserver(collector))
		}
	}

	if obs.EnableSigNoz {
		exporter := obs.SigNozExporter
		if exporter == nil {
			exporter = NewSigNozSpanExporter(obs.SigNozOptions)
		}
		if exporter != nil {
			observers = append(observers, newSigNozObserver(exporter))
		}
	}

	if len(observers) == 0 {
		return noopObserver{}
	}
	if len(observers) == 1 {
		return observers[0]
	}
	return compositeObserver{observers: observers}
}

// PrometheusTextCollector is the teacher-style hand-rolled text exporter,
// kept for deployments that scrape a plain io.Writer instead of running the
// real client_golang registry (see metrics_prometheus.go for that path).
type PrometheusTextCollector struct {
	options *PrometheusCollectorOptions
	mu      sync.Mutex
	samples map[prometheusKey]*prometheusSample
}

type prometheusKey struct {
	StageName    string
	SubStageName string
}

type prometheusSample struct {
	durationSum   float64
	durationCount float64
	buckets       []float64
	executed      float64
	skipped       float64
	errors        float64
}

func NewPrometheusSubStageCollector(opts *PrometheusCollectorOptions) PrometheusCollector {
	if opts == nil {
		opts = &PrometheusCollectorOptions{}
	}
	return &PrometheusTextCollector{
		options: opts,
		samples: make(map[prometheusKey]*prometheusSample),
	}
}

func (c *PrometheusTextCollector) ObserveSubStage(summary SubStageSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prometheusKey{StageName: summary.StageName, SubStageName: summary.SubStageName}
	sample, ok := c.samples[key]
	if !ok {
		sample = &prometheusSample{}
		if buckets := c.options.DurationBuckets; len(buckets) > 0 {
			sample.buckets = make([]float64, len(buckets))
		}
		c.samples[key] = sample
	}
	durSeconds := summary.Duration.Seconds()
	sample.durationSum += durSeconds
	sample.durationCount++
	for i := range sample.buckets {
		if durSeconds <= c.options.DurationBuckets[i].Seconds() {
			sample.buckets[i]++
		}
	}
	sample.executed += float64(summary.SystemsRun)
	sample.skipped += float64(summary.SystemsSkipped)
	if summary.Error != nil {
		sample.errors++
	}

	if writer := c.options.Writer; writer != nil {
		_ = c.writeMetricsLocked(writer)
	}
}

func (c *PrometheusTextCollector) WriteMetrics(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMetricsLocked(w)
}

func (c *PrometheusTextCollector) writeMetricsLocked(w io.Writer) error {
	if w == nil {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("# HELP ecs_sub_stage_duration_seconds Sub-stage execution duration.\n")
	buf.WriteString("# TYPE ecs_sub_stage_duration_seconds summary\n")
	keys := make([]prometheusKey, 0, len(c.samples))
	for key := range c.samples {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StageName == keys[j].StageName {
			return keys[i].SubStageName < keys[j].SubStageName
		}
		return keys[i].StageName < keys[j].StageName
	})

	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%s\",sub_stage=\"%s\"", key.StageName, key.SubStageName)
		buf.WriteString(fmt.Sprintf("ecs_sub_stage_duration_seconds_sum{%s} %f\n", labels, sample.durationSum))
		buf.WriteString(fmt.Sprintf("ecs_sub_stage_duration_seconds_count{%s} %f\n", labels, sample.durationCount))
		if len(sample.buckets) > 0 {
			for i, bucket := range sample.buckets {
				le := c.options.DurationBuckets[i].Seconds()
				buf.WriteString(fmt.Sprintf("ecs_sub_stage_duration_seconds_bucket{%s,le=\"%.6f\"} %f\n", labels, le, bucket))
			}
		}
	}

	buf.WriteString("# HELP ecs_sub_stage_systems_run_total Systems run per sub-stage.\n")
	buf.WriteString("# TYPE ecs_sub_stage_systems_run_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%s\",sub_stage=\"%s\"", key.StageName, key.SubStageName)
		buf.WriteString(fmt.Sprintf("ecs_sub_stage_systems_run_total{%s} %f\n", labels, sample.executed))
	}

	buf.WriteString("# HELP ecs_sub_stage_systems_skipped_total Systems skipped per sub-stage.\n")
	buf.WriteString("# TYPE ecs_sub_stage_systems_skipped_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%s\",sub_stage=\"%s\"", key.StageName, key.SubStageName)
		buf.WriteString(fmt.Sprintf("ecs_sub_stage_systems_skipped_total{%s} %f\n", labels, sample.skipped))
	}

	buf.WriteString("# HELP ecs_sub_stage_errors_total Sub-stage error count.\n")
	buf.WriteString("# TYPE ecs_sub_stage_errors_total counter\n")
	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("stage=\"%s\",sub_stage=\"%s\"", key.StageName, key.SubStageName)
		buf.WriteString(fmt.Sprintf("ecs_sub_stage_errors_total{%s} %f\n", labels, sample.errors))
	}

	_, err := w.Write(buf.Bytes())
	return err
}

type SigNozSpanExporter struct {
	opts *SigNozOptions
	mu   sync.Mutex
}

func NewSigNozSpanExporter(opts *SigNozOptions) SigNozExporter {
	if opts == nil {
		opts = &SigNozOptions{}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "ecs-runner"
	}
	return &SigNozSpanExporter{opts: opts}
}

func (e *SigNozSpanExporter) ExportSubStage(summary SubStageSummary) {
	if e.opts.Writer == nil {
		return
	}
	span := map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         fmt.Sprintf("sub_stage:%s/%s", summary.StageName, summary.SubStageName),
		"timestamp":    time.Now().UnixNano(),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"stage":            summary.StageName,
			"sub_stage":        summary.SubStageName,
			"tick":             summary.Tick,
			"waves":            summary.Waves,
			"systems_total":    summary.SystemsTotal,
			"systems_run":      summary.SystemsRun,
			"systems_skipped":  summary.SystemsSkipped,
			"component_reads":  summary.ComponentReads,
			"component_writes": summary.ComponentWrites,
			"resource_reads":   summary.ResourceReads,
			"resource_writes":  summary.ResourceWrites,
		},
	}
	if summary.Error != nil {
		span["error"] = summary.Error.Error()
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.opts.Writer.Write(append(payload, '\n'))
}
