package ecs

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StageCategory buckets stages the way the original scheduler's
// m_startup_stages / m_loop_stages / m_state_transition_stages / m_exit_stages
// maps do: each category gets its own strong/weak edge graph and runs to
// completion before the next category starts.
type StageCategory int

const (
	StageStartup StageCategory = iota
	StageLoop
	StageStateTransition
	StageExit
)

type stageNode struct {
	name   string
	runner *StageRunner
	before []string
	after  []string

	strongPrev, strongNext []*stageNode
	weakPrev, weakNext     []*stageNode
	depth                  int
	depthComputed          bool
}

func (n *stageNode) depthValue() int {
	if n.depthComputed {
		return n.depth
	}
	n.depthComputed = true
	depth := 0
	for _, prev := range n.strongPrev {
		if d := prev.depthValue() + 1; d > depth {
			depth = d
		}
	}
	n.depth = depth
	return depth
}

// Runner is the top-level scheduler: it owns every SubApp, a worker pool
// table systems dispatch onto, and one stage graph per StageCategory.
type Runner struct {
	id      uuid.UUID
	subApps map[string]*SubApp
	pools   *WorkerPoolTable
	control *workerPool
	logger  Logger
	tracer  Tracer
	observer RunnerObserver

	tick uint64

	categories map[StageCategory]map[string]*stageNode
	order      map[StageCategory][]*stageNode
	byName     map[string]*StageRunner
}

// NewRunner constructs a runner with the default worker pool table (sized
// per WorkerPoolTable's concurrency clamp) and a 4-worker stage control pool,
// mirroring the original runner's separate dispatch pool for stage-level
// concurrency distinct from the per-system worker pools.
func NewRunner(concurrency int) *Runner {
	r := &Runner{
		id:       uuid.New(),
		subApps:  make(map[string]*SubApp),
		pools:    NewWorkerPoolTable(concurrency),
		control:  newWorkerPool(4),
		logger:   noopLogger{},
		tracer:   noopTracer{},
		observer: noopObserver{},
		categories: map[StageCategory]map[string]*stageNode{
			StageStartup:         make(map[string]*stageNode),
			StageLoop:            make(map[string]*stageNode),
			StageStateTransition: make(map[string]*stageNode),
			StageExit:            make(map[string]*stageNode),
		},
		order:  make(map[StageCategory][]*stageNode),
		byName: make(map[string]*StageRunner),
	}
	r.RegisterSubApp("app", NewSubApp())
	return r
}

// WithInstrumentation wires a Logger/Tracer and builds the observer chain
// from cfg, replacing any previous instrumentation.
func (r *Runner) WithInstrumentation(logger Logger, tracer Tracer, cfg InstrumentationConfig) *Runner {
	if logger != nil {
		r.logger = logger
	}
	if tracer != nil {
		r.tracer = tracer
	}
	r.observer = buildObserverChain(r.logger, cfg)
	for _, runner := range r.byName {
		runner.setLogger(r.logger)
	}
	return r
}

// RegisterSubApp installs a named SubApp (e.g. "app", "render"), making it
// available as a src or dst for AddStage.
func (r *Runner) RegisterSubApp(name string, app *SubApp) {
	r.subApps[name] = app
}

// SubApp returns the named SubApp, or nil if unregistered.
func (r *Runner) SubApp(name string) *SubApp { return r.subApps[name] }

// HasWorkerPool reports whether a pool with the given name has been
// registered (the built-in "default"/"single" pools, or one installed by
// AppConfig.Apply). SystemBuilder.UseWorker only names a pool; it does not
// register one.
func (r *Runner) HasWorkerPool(name string) bool { return r.pools.Get(name) != nil }

// AddStage registers a stage under category, binding Extract/EventReader
// parameters to srcName and every other parameter and mutation to dstName (equal names for the common
// single-world case, distinct names for an Extract-based sub-app pipeline).
func (r *Runner) AddStage(category StageCategory, name, srcName, dstName string, before, after []string) *StageRunner {
	src := r.subApps[srcName]
	dst := r.subApps[dstName]
	runner := NewStageRunner(name, src, dst, r.pools)
	runner.setLogger(r.logger)
	node := &stageNode{name: name, runner: runner, before: before, after: after}
	r.categories[category][name] = node
	r.order[category] = append(r.order[category], node)
	r.byName[name] = runner
	return runner
}

// StageRunnerByName returns the named stage's runner regardless of category,
// for callers that want to add systems without tracking category bookkeeping.
func (r *Runner) StageRunnerByName(name string) *StageRunner { return r.byName[name] }

// Build resolves strong edges (via before/after) and weak edges (via
// pairwise conflict analysis, sorted by strong-edge depth first) within
// each category independently, then builds every stage's own system graph.
func (r *Runner) Build() {
	for category, nodes := range r.order {
		byName := r.categories[category]
		for _, n := range nodes {
			n.strongPrev, n.strongNext, n.weakPrev, n.weakNext = nil, nil, nil, nil
			n.depthComputed = false
			n.runner.build()
		}
		for _, n := range nodes {
			for _, name := range n.before {
				if other, ok := byName[name]; ok {
					n.strongNext = append(n.strongNext, other)
					other.strongPrev = append(other.strongPrev, n)
				}
			}
			for _, name := range n.after {
				if other, ok := byName[name]; ok {
					other.strongNext = append(other.strongNext, n)
					n.strongPrev = append(n.strongPrev, other)
				}
			}
		}
		sorted := append([]*stageNode(nil), nodes...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].depthValue() < sorted[j].depthValue()
		})
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				a, b := sorted[i], sorted[j]
				if hasStrongStageEdge(a, b) {
					continue
				}
				if a.runner.conflictsWith(b.runner) {
					a.weakNext = append(a.weakNext, b)
					b.weakPrev = append(b.weakPrev, a)
				}
			}
		}
	}
}

func hasStrongStageEdge(a, b *stageNode) bool {
	for _, n := range a.strongNext {
		if n == b {
			return true
		}
	}
	for _, n := range a.strongPrev {
		if n == b {
			return true
		}
	}
	return false
}

// Bake re-derives every sub-stage's weak edges from its systems' current
// reach times (see SubStageRunner.bake).
func (r *Runner) Bake() {
	for _, nodes := range r.order {
		for _, n := range nodes {
			n.runner.bake()
		}
	}
}

// RunCategory executes every stage in the given category to completion,
// wave by wave over the strong+weak stage graph, dispatching each stage
// through the runner's dedicated control pool.
func (r *Runner) RunCategory(ctx context.Context, category StageCategory) error {
	nodes := r.order[category]
	if len(nodes) == 0 {
		return nil
	}

	remaining := make(map[*stageNode]int, len(nodes))
	for _, n := range nodes {
		remaining[n] = len(n.strongPrev) + len(n.weakPrev)
	}

	type completion struct {
		node      *stageNode
		summaries []SubStageSummary
		err       error
	}

	g, runCtx := errgroup.WithContext(ctx)

	completions := make(chan completion, len(nodes))
	launched := make(map[*stageNode]bool, len(nodes))

	launch := func(n *stageNode) {
		launched[n] = true
		g.Go(func() error {
			handle := r.control.Submit(runCtx, func(ctx context.Context) jobResult {
				summaries, err := n.runner.run(ctx, r.tick)
				completions <- completion{node: n, summaries: summaries, err: err}
				return jobResult{err: err}
			})
			return handle.Wait().err
		})
	}

	ready := func() []*stageNode {
		var out []*stageNode
		for n, count := range remaining {
			if count == 0 && !launched[n] {
				out = append(out, n)
			}
		}
		return out
	}

	for _, n := range ready() {
		launch(n)
	}

	done := 0
	for done < len(nodes) {
		comp := <-completions
		done++
		for _, summary := range comp.summaries {
			r.observer.SubStageCompleted(summary)
		}
		for _, next := range append(append([]*stageNode(nil), comp.node.strongNext...), comp.node.weakNext...) {
			remaining[next]--
		}
		for _, n := range ready() {
			launch(n)
		}
	}
	firstErr := g.Wait()
	close(completions)
	return firstErr
}

// Tick advances one full frame: startup stages run once (callers should
// invoke RunCategory(StageStartup, ...) separately before the loop begins),
// then the loop graph, then the state-transition graph, then every SubApp's
// events age and its pending states advance, and the tick counter advances.
func (r *Runner) Tick(ctx context.Context) error {
	if err := r.RunCategory(ctx, StageLoop); err != nil {
		return err
	}
	if err := r.RunCategory(ctx, StageStateTransition); err != nil {
		return err
	}
	for _, app := range r.subApps {
		app.TickEvents()
	}
	for _, app := range r.subApps {
		app.UpdateStates()
	}
	r.tick++
	return nil
}

// RunStartup executes every startup-category stage once.
func (r *Runner) RunStartup(ctx context.Context) error {
	return r.RunCategory(ctx, StageStartup)
}

// RunExit executes every exit-category stage once.
func (r *Runner) RunExit(ctx context.Context) error {
	return r.RunCategory(ctx, StageExit)
}

// Close shuts down every worker pool the runner owns.
func (r *Runner) Close() {
	r.pools.CloseAll()
	r.control.Close()
}

// ID returns the runner's stable correlation identifier.
func (r *Runner) ID() uuid.UUID { return r.id }

// TickIndex returns the current tick counter.
func (r *Runner) TickIndex() uint64 { return r.tick }
