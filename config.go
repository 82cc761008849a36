package ecs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AppConfig is the on-disk configuration for an App's instrumentation and
// worker pool layout, loaded from YAML.
type AppConfig struct {
	LoopEnabled bool           `yaml:"loop_enabled"`
	LogLevel    string         `yaml:"log_level"`
	WorkerPools map[string]int `yaml:"worker_pools"`
	Observation ObservationYAML `yaml:"observation"`
}

// ObservationYAML mirrors ObservationSettings' boolean toggles for YAML
// loading; PrometheusCollector/SigNozExporter instances are always
// constructed in Go, never deserialized.
type ObservationYAML struct {
	StructuredLogging bool `yaml:"structured_logging"`
	Prometheus        bool `yaml:"prometheus"`
	SigNoz            bool `yaml:"signoz"`
}

// DefaultAppConfig returns the baseline configuration LoadAppConfig starts
// from: loop enabled, "info" logging, a "default" pool of 8 workers and a
// "single" pool of 1. NewApp does not read an AppConfig; its "default" pool
// is sized from the host's CPU count instead.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		LoopEnabled: true,
		LogLevel:    "info",
		WorkerPools: map[string]int{"default": 8, "single": 1},
	}
}

// LoadAppConfig parses YAML bytes into an AppConfig, filling in defaults for
// any field the document omits.
func LoadAppConfig(data []byte) (AppConfig, error) {
	cfg := DefaultAppConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("ecs: parse app config: %w", err)
	}
	if cfg.WorkerPools == nil {
		cfg.WorkerPools = DefaultAppConfig().WorkerPools
	}
	return cfg, nil
}

// Apply installs the configured worker pool sizes onto an already-constructed
// Runner, replacing its defaults.
func (c AppConfig) Apply(r *Runner) {
	for name, size := range c.WorkerPools {
		r.pools.Add(name, size)
	}
}

// InstrumentationConfig derives a runner InstrumentationConfig from the
// observation toggles, using the given logger as the structured sink.
func (c AppConfig) InstrumentationConfig(logger Logger) InstrumentationConfig {
	return InstrumentationConfig{
		Observation: ObservationSettings{
			EnableStructuredLogging: c.Observation.StructuredLogging,
			StructuredLogger:        logger,
			EnablePrometheus:        c.Observation.Prometheus,
			EnableSigNoz:            c.Observation.SigNoz,
		},
	}
}
