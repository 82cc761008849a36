package ecs

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SubStageRunner owns one named sub-stage's systems, derives their
// conflict/ordering graph, and executes them wave by wave: every system
// whose predecessors have all completed starts together, bounded by its
// assigned worker pool.
type SubStageRunner struct {
	name   string
	src    *SubApp
	dst    *SubApp
	pools  *WorkerPoolTable
	logger Logger

	systems []*System
	byName  map[string]*System
}

// NewSubStageRunner constructs an empty sub-stage bound to (src, dst) and the
// worker pools it may dispatch onto.
func NewSubStageRunner(name string, src, dst *SubApp, pools *WorkerPoolTable) *SubStageRunner {
	return &SubStageRunner{
		name:   name,
		src:    src,
		dst:    dst,
		pools:  pools,
		logger: noopLogger{},
		byName: make(map[string]*System),
	}
}

// setLogger installs logger, used for warnings such as an unknown worker
// pool name falling back to "default".
func (r *SubStageRunner) setLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// AddSystem registers a system built via NewSystem into this sub-stage.
func (r *SubStageRunner) AddSystem(sys *System) *System {
	r.systems = append(r.systems, sys)
	r.byName[sys.name] = sys
	return sys
}

// build resolves Before/After/InSets into strong edges. Weak edges are
// derived separately, in bake, from reach-time rather than here.
func (r *SubStageRunner) build() {
	setMembers := make(map[string][]*System)
	for _, s := range r.systems {
		s.strongPrev = nil
		s.strongNext = nil
		s.weakPrev = nil
		s.weakNext = nil
		for _, set := range s.sets {
			setMembers[set] = append(setMembers[set], s)
		}
	}

	link := func(before, after *System) {
		before.strongNext = append(before.strongNext, after)
		after.strongPrev = append(after.strongPrev, before)
	}

	for _, s := range r.systems {
		for _, name := range s.before {
			if other, ok := r.byName[name]; ok {
				link(s, other)
			} else if members, ok := setMembers[name]; ok {
				for _, other := range members {
					link(s, other)
				}
			}
		}
		for _, name := range s.after {
			if other, ok := r.byName[name]; ok {
				link(other, s)
			} else if members, ok := setMembers[name]; ok {
				for _, other := range members {
					link(other, s)
				}
			}
		}
	}
}

func hasStrongEdge(a, b *System) bool {
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

// reachTime estimates when s could start: the max, over its strong
// predecessors, of (predecessor's reach time + predecessor's moving-average
// runtime). Memoized per bake call only — it is recomputed every bake since
// avgMillis moves as systems actually run.
func reachTime(s *System, memo map[*System]float64) float64 {
	if v, ok := memo[s]; ok {
		return v
	}
	memo[s] = 0 // break cycles defensively; a real cycle is a misconfiguration.
	best := 0.0
	for _, prev := range s.strongPrev {
		if t := reachTime(prev, memo) + prev.avgMillis; t > best {
			best = t
		}
	}
	memo[s] = best
	return best
}

// bake derives weak edges from each system's reach time: sort by reach time
// ascending, then for every ordered pair lacking a strong edge, a conflict
// adds a weak edge from the earlier-reaching system to the later one. This
// is recomputed on every bake call since it depends on the latest
// moving-average durations, per the sub-stage runner's scheduling contract.
func (r *SubStageRunner) bake() {
	for _, s := range r.systems {
		s.weakPrev = nil
		s.weakNext = nil
	}

	memo := make(map[*System]float64, len(r.systems))
	sorted := append([]*System(nil), r.systems...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return reachTime(sorted[i], memo) < reachTime(sorted[j], memo)
	})

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if hasStrongEdge(a, b) {
				continue
			}
			if Conflicts(&a.manifest, &b.manifest) {
				a.weakNext = append(a.weakNext, b)
				b.weakPrev = append(b.weakPrev, a)
			}
		}
	}
}

type systemCompletion struct {
	sys     *System
	err     error
	skipped bool
}

// run executes every system to completion, wave by wave, returning a summary
// whose Error is the first error any system returned. After an error the
// shared context is cancelled, so systems that become ready afterwards are
// not invoked and are counted as skipped; run waits for every in-flight
// system before returning.
func (r *SubStageRunner) run(ctx context.Context, tick uint64) SubStageSummary {
	start := time.Now()
	summary := SubStageSummary{SubStageName: r.name, Tick: tick, SystemsTotal: len(r.systems)}
	if len(r.systems) == 0 {
		summary.Duration = time.Since(start)
		return summary
	}

	bindCtx := r.dst.bindContextAsDst(r.src)

	remaining := make(map[*System]int, len(r.systems))
	for _, s := range r.systems {
		remaining[s] = len(s.strongPrev) + len(s.weakPrev)
	}

	g, runCtx := errgroup.WithContext(ctx)

	completions := make(chan systemCompletion, len(r.systems))
	var mu sync.Mutex
	launched := make(map[*System]bool, len(r.systems))

	launch := func(s *System) {
		launched[s] = true
		g.Go(func() error {
			elapsed, err, skipped := r.execute(runCtx, bindCtx, s)
			mu.Lock()
			s.recordDuration(elapsed)
			mu.Unlock()
			completions <- systemCompletion{sys: s, err: err, skipped: skipped}
			return err
		})
	}

	ready := func() []*System {
		var out []*System
		for s, count := range remaining {
			if count == 0 && !launched[s] {
				out = append(out, s)
			}
		}
		return out
	}

	for _, s := range ready() {
		launch(s)
	}

	done := 0
	for done < len(r.systems) {
		comp := <-completions
		done++
		switch {
		case comp.err != nil:
			summary.SystemsSkipped++
		case comp.skipped:
			summary.SystemsSkipped++
		default:
			summary.SystemsRun++
		}
		summary.Waves++
		for _, next := range append(append([]*System(nil), comp.sys.strongNext...), comp.sys.weakNext...) {
			remaining[next]--
		}
		for _, s := range ready() {
			launch(s)
		}
	}
	firstErr := g.Wait()
	close(completions)

	summary.Error = firstErr
	summary.Duration = time.Since(start)
	for _, s := range r.systems {
		summary.ComponentReads = appendUnique(summary.ComponentReads, readTypes(s.manifest)...)
		summary.ComponentWrites = appendUnique(summary.ComponentWrites, writeTypes(s.manifest)...)
	}
	return summary
}

func (r *SubStageRunner) execute(ctx context.Context, bindCtx *bindContext, s *System) (time.Duration, error, bool) {
	if !s.admit(bindCtx) {
		return 0, nil, true
	}
	s.rebind(bindCtx)

	poolName := s.worker
	if poolName == "" {
		poolName = "default"
	}
	pool := r.pools.Get(poolName)
	if pool == nil && s.worker != "" {
		r.logger.Warn("unknown worker pool, falling back to default", "pool", s.worker, "system", s.name, "err", ErrUnknownWorkerPool)
		pool = r.pools.Get("default")
	}

	start := time.Now()
	handle := pool.Submit(ctx, func(ctx context.Context) jobResult {
		return jobResult{err: s.run(ctx)}
	})
	res := handle.Wait()
	return time.Since(start), res.err, false
}

func readTypes(mf AccessManifest) []ComponentType {
	var out []ComponentType
	for _, q := range mf.Queries {
		for _, t := range q.Reads {
			out = append(out, ComponentType(t.PkgPath()+"."+t.Name()))
		}
	}
	return out
}

func writeTypes(mf AccessManifest) []ComponentType {
	var out []ComponentType
	for _, q := range mf.Queries {
		for _, t := range q.Writes {
			out = append(out, ComponentType(t.PkgPath()+"."+t.Name()))
		}
	}
	return out
}

func appendUnique(dst []ComponentType, items ...ComponentType) []ComponentType {
	for _, item := range items {
		found := false
		for _, existing := range dst {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}
