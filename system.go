package ecs

import (
	"context"
	"time"
)

// Condition is a run condition: a predicate evaluated against the currently
// bound (src, dst) pair immediately before a system would run. A false
// result skips the system for this tick without affecting its edges.
type Condition func(ctx *bindContext) bool

// SystemFunc is the user-supplied system body. It receives a context for
// cancellation and the already-rebound Param values declared at NewSystem
// time; it reads them by closing over the same variables passed in.
type SystemFunc func(ctx context.Context) error

// System is one registered unit of work inside a sub-stage.
type System struct {
	name     string
	fn       SystemFunc
	params   []Param
	manifest AccessManifest
	sets     []string
	worker   string
	before   []string
	after    []string
	conds    []Condition

	// runtime state, populated by the owning SubStageRunner
	avgMillis  float64
	strongPrev []*System
	strongNext []*System
	weakPrev   []*System
	weakNext   []*System
}

// SystemBuilder accumulates ordering and scheduling preferences for a system
// before it is attached to a sub-stage.
type SystemBuilder struct {
	sys *System
}

// NewSystem declares a system named name whose body is fn, with params
// listed explicitly in the order it needs them. Each param's describeAccess
// contributes to the system's access manifest at registration time instead
// of being inferred via reflection over fn's signature.
func NewSystem(name string, fn SystemFunc, params ...Param) *SystemBuilder {
	sys := &System{name: name, fn: fn, params: params, avgMillis: 1.0}
	for _, p := range params {
		p.describeAccess(&sys.manifest)
	}
	return &SystemBuilder{sys: sys}
}

// Before declares a strong edge: this system must run before the named ones
// within the same sub-stage.
func (b *SystemBuilder) Before(names ...string) *SystemBuilder {
	b.sys.before = append(b.sys.before, names...)
	return b
}

// After declares a strong edge: this system must run after the named ones
// within the same sub-stage.
func (b *SystemBuilder) After(names ...string) *SystemBuilder {
	b.sys.after = append(b.sys.after, names...)
	return b
}

// InSets tags the system as a member of the named system sets, so other
// systems can order themselves Before/After the whole set at once.
func (b *SystemBuilder) InSets(sets ...string) *SystemBuilder {
	b.sys.sets = append(b.sys.sets, sets...)
	return b
}

// UseWorker pins the system to a named worker pool (see WorkerPoolTable).
// An empty name uses the sub-stage's default pool.
func (b *SystemBuilder) UseWorker(name string) *SystemBuilder {
	b.sys.worker = name
	return b
}

// RunIf adds a run condition; the system is skipped for a tick unless every
// condition returns true.
func (b *SystemBuilder) RunIf(conds ...Condition) *SystemBuilder {
	b.sys.conds = append(b.sys.conds, conds...)
	return b
}

// OnEnter appends cond as a run condition, exactly like RunIf; passing
// OnEnter[T](want) restricts the system to ticks where state T transitions
// to want.
func (b *SystemBuilder) OnEnter(cond Condition) *SystemBuilder {
	return b.RunIf(cond)
}

// Build finalizes the system.
func (b *SystemBuilder) Build() *System { return b.sys }

// Name returns the system's registered name.
func (s *System) Name() string { return s.name }

// Manifest exposes the access manifest computed at registration.
func (s *System) Manifest() *AccessManifest { return &s.manifest }

// AverageDuration returns the moving-average runtime estimate that bake adds
// to this system's reach time to estimate its strong successors' reach times.
func (s *System) AverageDuration() time.Duration {
	return time.Duration(s.avgMillis * float64(time.Millisecond))
}

func (s *System) recordDuration(d time.Duration) {
	const alpha = 0.1
	ms := float64(d) / float64(time.Millisecond)
	s.avgMillis = s.avgMillis*(1-alpha) + ms*alpha
}


func (s *System) admit(ctx *bindContext) bool {
	for _, c := range s.conds {
		if c == nil {
			continue
		}
		if !c(ctx) {
			return false
		}
	}
	return true
}

func (s *System) rebind(ctx *bindContext) {
	for _, p := range s.params {
		p.rebind(ctx)
	}
}

// run invokes the system body. A panicking system is fatal to the hosting
// process: only worker-thread panics propagate per the scheduler's
// propagation policy, so this deliberately does not recover.
func (s *System) run(ctx context.Context) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx)
}
