package ecs

import (
	"context"
)

// StageRunner drives one Stage's sub-stages in declaration order against a
// fixed (src, dst) SubApp pair, applying deferred commands between each.
type StageRunner struct {
	name      string
	src       *SubApp
	dst       *SubApp
	pools     *WorkerPoolTable
	logger    Logger
	subStages map[string]*SubStageRunner
	order     []string
}

// NewStageRunner constructs an empty stage bound to (src, dst).
func NewStageRunner(name string, src, dst *SubApp, pools *WorkerPoolTable) *StageRunner {
	return &StageRunner{
		name:      name,
		src:       src,
		dst:       dst,
		pools:     pools,
		logger:    noopLogger{},
		subStages: make(map[string]*SubStageRunner),
	}
}

// setLogger installs logger on this stage and every sub-stage it already
// owns, used by the Runner to propagate WithInstrumentation's logger down.
func (r *StageRunner) setLogger(logger Logger) {
	r.logger = logger
	for _, sub := range r.subStages {
		sub.setLogger(logger)
	}
}

// ConfigureSubStages declares the sub-stage execution order; sub-stages not
// already added via AddSystem are created empty.
func (r *StageRunner) ConfigureSubStages(names ...string) {
	for _, name := range names {
		r.ensureSubStage(name)
	}
	r.order = append([]string(nil), names...)
}

func (r *StageRunner) ensureSubStage(name string) *SubStageRunner {
	if sub, ok := r.subStages[name]; ok {
		return sub
	}
	sub := NewSubStageRunner(name, r.src, r.dst, r.pools)
	sub.setLogger(r.logger)
	r.subStages[name] = sub
	if !containsString(r.order, name) {
		r.order = append(r.order, name)
	}
	return sub
}

// AddSystem registers sys under the named sub-stage, creating the sub-stage
// if it doesn't already exist.
func (r *StageRunner) AddSystem(subStage string, sys *System) *System {
	return r.ensureSubStage(subStage).AddSystem(sys)
}

func (r *StageRunner) build() {
	for _, sub := range r.subStages {
		sub.build()
	}
}

func (r *StageRunner) bake() {
	for _, sub := range r.subStages {
		sub.bake()
	}
}

// conflictsWith reports whether this stage's {src, dst} SubApp set
// intersects another stage's, the coarse stage-level serialization rule the
// Runner uses to derive weak edges between independently-ordered stages:
// two stages touching the same SubApp, in any combination of src/dst, can
// never run concurrently regardless of what their systems individually
// read or write.
func (r *StageRunner) conflictsWith(other *StageRunner) bool {
	return r.src == other.src || r.src == other.dst ||
		r.dst == other.src || r.dst == other.dst
}

// run executes every sub-stage in configured order, draining deferred
// commands between each (end_commands), and returns one summary per
// sub-stage.
func (r *StageRunner) run(ctx context.Context, tick uint64) ([]SubStageSummary, error) {
	summaries := make([]SubStageSummary, 0, len(r.order))
	for _, name := range r.order {
		sub, ok := r.subStages[name]
		if !ok {
			continue
		}
		summary := sub.run(ctx, tick)
		summary.StageName = r.name
		summaries = append(summaries, summary)
		if err := r.dst.EndCommands(); err != nil {
			return summaries, err
		}
		if summary.Error != nil {
			return summaries, summary.Error
		}
	}
	return summaries, nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
