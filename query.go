package ecs

import "reflect"

// fetchSlot resolves component type T (plain read or Mut[X] write) for id
// against world, returning the zero value and false if the entity lacks it.
func fetchSlot[T any](w *World, spec fieldSpec, id EntityID) (T, bool) {
	store := w.storage.ensureStore(ComponentType(spec.typ.PkgPath() + "." + spec.typ.Name()))
	raw, ok := store.Get(id)
	if !ok {
		var zero T
		return zero, false
	}

	var zero T
	if m, ok := any(zero).(mutSlot); ok {
		ptrVal := reflect.New(spec.typ)
		ptrVal.Elem().Set(reflect.ValueOf(raw))
		wrapped := m.withPtr(ptrVal.Interface())
		typed, ok := wrapped.(T)
		return typed, ok
	}

	typed, ok := raw.(T)
	return typed, ok
}

// writeBackSlot persists a Mut[X] slot's current pointee back to the store;
// it is a no-op for plain read slots and for a Mut whose Ptr is nil.
func writeBackSlot[T any](w *World, spec fieldSpec, id EntityID, val T) {
	m, ok := any(val).(mutSlot)
	if !ok {
		return
	}
	if reflect.ValueOf(val).FieldByName("Ptr").IsNil() {
		return
	}
	store := w.storage.ensureStore(ComponentType(spec.typ.PkgPath() + "." + spec.typ.Name()))
	_ = store.Set(id, m.derefAny())
}

func matchesFilter(w *World, f QueryFilter, id EntityID) bool {
	for _, t := range f.with {
		store := w.storage.ensureStore(ComponentType(t.PkgPath() + "." + t.Name()))
		if !store.Has(id) {
			return false
		}
	}
	for _, t := range f.without {
		store := w.storage.ensureStore(ComponentType(t.PkgPath() + "." + t.Name()))
		if store.Has(id) {
			return false
		}
	}
	return true
}

func pickSmallest(w *World, types []reflect.Type) ComponentStore {
	var best ComponentStore
	bestLen := -1
	for _, t := range types {
		store := w.storage.ensureStore(ComponentType(t.PkgPath() + "." + t.Name()))
		if bestLen == -1 || store.Len() < bestLen {
			best = store
			bestLen = store.Len()
		}
	}
	return best
}

// Query1 fetches a single component-shaped slot per matching entity, reading
// from the destination SubApp of whichever stage it runs in.
type Query1[A any] struct {
	filter QueryFilter
	target *SubApp
}

func NewQuery1[A any](filters ...QueryFilter) *Query1[A] {
	return &Query1[A]{filter: mergeFilters(filters)}
}

func (q *Query1[A]) describeAccess(mf *AccessManifest) {
	specA := specOf[A]()
	qa := QueryAccess{Excludes: q.filter.without}
	if specA.write {
		qa.Writes = append(qa.Writes, specA.typ)
	} else {
		qa.Reads = append(qa.Reads, specA.typ)
	}
	qa.Reads = append(qa.Reads, q.filter.with...)
	mf.Queries = append(mf.Queries, qa)
}

func (q *Query1[A]) rebind(ctx *bindContext) { q.target = ctx.dst }

func (q *Query1[A]) Each(fn func(EntityID, A) bool) {
	w := q.target.World()
	specA := specOf[A]()
	primary := pickSmallest(w, append([]reflect.Type{specA.typ}, q.filter.with...))
	if primary == nil {
		return
	}
	primary.Iterate(func(id EntityID, _ any) bool {
		if !matchesFilter(w, q.filter, id) {
			return true
		}
		a, ok := fetchSlot[A](w, specA, id)
		if !ok {
			return true
		}
		cont := fn(id, a)
		writeBackSlot(w, specA, id, a)
		return cont
	})
}

// Query2 fetches two component-shaped slots per matching entity.
type Query2[A, B any] struct {
	filter QueryFilter
	target *SubApp
}

func NewQuery2[A, B any](filters ...QueryFilter) *Query2[A, B] {
	return &Query2[A, B]{filter: mergeFilters(filters)}
}

func (q *Query2[A, B]) describeAccess(mf *AccessManifest) {
	specA, specB := specOf[A](), specOf[B]()
	qa := QueryAccess{Excludes: q.filter.without}
	for _, s := range []fieldSpec{specA, specB} {
		if s.write {
			qa.Writes = append(qa.Writes, s.typ)
		} else {
			qa.Reads = append(qa.Reads, s.typ)
		}
	}
	qa.Reads = append(qa.Reads, q.filter.with...)
	mf.Queries = append(mf.Queries, qa)
}

func (q *Query2[A, B]) rebind(ctx *bindContext) { q.target = ctx.dst }

func (q *Query2[A, B]) Each(fn func(EntityID, A, B) bool) {
	w := q.target.World()
	specA, specB := specOf[A](), specOf[B]()
	primary := pickSmallest(w, append([]reflect.Type{specA.typ, specB.typ}, q.filter.with...))
	if primary == nil {
		return
	}
	primary.Iterate(func(id EntityID, _ any) bool {
		if !matchesFilter(w, q.filter, id) {
			return true
		}
		a, okA := fetchSlot[A](w, specA, id)
		if !okA {
			return true
		}
		b, okB := fetchSlot[B](w, specB, id)
		if !okB {
			return true
		}
		cont := fn(id, a, b)
		writeBackSlot(w, specA, id, a)
		writeBackSlot(w, specB, id, b)
		return cont
	})
}

// Query3 fetches three component-shaped slots per matching entity.
type Query3[A, B, C any] struct {
	filter QueryFilter
	target *SubApp
}

func NewQuery3[A, B, C any](filters ...QueryFilter) *Query3[A, B, C] {
	return &Query3[A, B, C]{filter: mergeFilters(filters)}
}

func (q *Query3[A, B, C]) describeAccess(mf *AccessManifest) {
	specs := []fieldSpec{specOf[A](), specOf[B](), specOf[C]()}
	qa := QueryAccess{Excludes: q.filter.without}
	for _, s := range specs {
		if s.write {
			qa.Writes = append(qa.Writes, s.typ)
		} else {
			qa.Reads = append(qa.Reads, s.typ)
		}
	}
	qa.Reads = append(qa.Reads, q.filter.with...)
	mf.Queries = append(mf.Queries, qa)
}

func (q *Query3[A, B, C]) rebind(ctx *bindContext) { q.target = ctx.dst }

func (q *Query3[A, B, C]) Each(fn func(EntityID, A, B, C) bool) {
	w := q.target.World()
	specA, specB, specC := specOf[A](), specOf[B](), specOf[C]()
	primary := pickSmallest(w, append([]reflect.Type{specA.typ, specB.typ, specC.typ}, q.filter.with...))
	if primary == nil {
		return
	}
	primary.Iterate(func(id EntityID, _ any) bool {
		if !matchesFilter(w, q.filter, id) {
			return true
		}
		a, okA := fetchSlot[A](w, specA, id)
		if !okA {
			return true
		}
		b, okB := fetchSlot[B](w, specB, id)
		if !okB {
			return true
		}
		c, okC := fetchSlot[C](w, specC, id)
		if !okC {
			return true
		}
		cont := fn(id, a, b, c)
		writeBackSlot(w, specA, id, a)
		writeBackSlot(w, specB, id, b)
		writeBackSlot(w, specC, id, c)
		return cont
	})
}

// Query4 fetches four component-shaped slots per matching entity.
type Query4[A, B, C, D any] struct {
	filter QueryFilter
	target *SubApp
}

func NewQuery4[A, B, C, D any](filters ...QueryFilter) *Query4[A, B, C, D] {
	return &Query4[A, B, C, D]{filter: mergeFilters(filters)}
}

func (q *Query4[A, B, C, D]) describeAccess(mf *AccessManifest) {
	specs := []fieldSpec{specOf[A](), specOf[B](), specOf[C](), specOf[D]()}
	qa := QueryAccess{Excludes: q.filter.without}
	for _, s := range specs {
		if s.write {
			qa.Writes = append(qa.Writes, s.typ)
		} else {
			qa.Reads = append(qa.Reads, s.typ)
		}
	}
	qa.Reads = append(qa.Reads, q.filter.with...)
	mf.Queries = append(mf.Queries, qa)
}

func (q *Query4[A, B, C, D]) rebind(ctx *bindContext) { q.target = ctx.dst }

func (q *Query4[A, B, C, D]) Each(fn func(EntityID, A, B, C, D) bool) {
	w := q.target.World()
	specA, specB, specC, specD := specOf[A](), specOf[B](), specOf[C](), specOf[D]()
	primary := pickSmallest(w, append([]reflect.Type{specA.typ, specB.typ, specC.typ, specD.typ}, q.filter.with...))
	if primary == nil {
		return
	}
	primary.Iterate(func(id EntityID, _ any) bool {
		if !matchesFilter(w, q.filter, id) {
			return true
		}
		a, okA := fetchSlot[A](w, specA, id)
		if !okA {
			return true
		}
		b, okB := fetchSlot[B](w, specB, id)
		if !okB {
			return true
		}
		c, okC := fetchSlot[C](w, specC, id)
		if !okC {
			return true
		}
		d, okD := fetchSlot[D](w, specD, id)
		if !okD {
			return true
		}
		cont := fn(id, a, b, c, d)
		writeBackSlot(w, specA, id, a)
		writeBackSlot(w, specB, id, b)
		writeBackSlot(w, specC, id, c)
		writeBackSlot(w, specD, id, d)
		return cont
	})
}

// Extract1 is Query1's cross-world counterpart: it reads from the stage's
// source SubApp rather than its destination, for render-extraction-style
// systems that copy gameplay state into a render world.
type Extract1[A any] struct {
	filter QueryFilter
	target *SubApp
}

func NewExtract1[A any](filters ...QueryFilter) *Extract1[A] {
	return &Extract1[A]{filter: mergeFilters(filters)}
}

func (q *Extract1[A]) describeAccess(mf *AccessManifest) { (&Query1[A]{filter: q.filter}).describeAccess(mf) }

func (q *Extract1[A]) rebind(ctx *bindContext) { q.target = ctx.src }

func (q *Extract1[A]) Each(fn func(EntityID, A) bool) {
	(&Query1[A]{filter: q.filter, target: q.target}).Each(fn)
}

// Extract2 is Query2's cross-world counterpart.
type Extract2[A, B any] struct {
	filter QueryFilter
	target *SubApp
}

func NewExtract2[A, B any](filters ...QueryFilter) *Extract2[A, B] {
	return &Extract2[A, B]{filter: mergeFilters(filters)}
}

func (q *Extract2[A, B]) describeAccess(mf *AccessManifest) {
	(&Query2[A, B]{filter: q.filter}).describeAccess(mf)
}

func (q *Extract2[A, B]) rebind(ctx *bindContext) { q.target = ctx.src }

func (q *Extract2[A, B]) Each(fn func(EntityID, A, B) bool) {
	(&Query2[A, B]{filter: q.filter, target: q.target}).Each(fn)
}

// Extract3 is Query3's cross-world counterpart.
type Extract3[A, B, C any] struct {
	filter QueryFilter
	target *SubApp
}

func NewExtract3[A, B, C any](filters ...QueryFilter) *Extract3[A, B, C] {
	return &Extract3[A, B, C]{filter: mergeFilters(filters)}
}

func (q *Extract3[A, B, C]) describeAccess(mf *AccessManifest) {
	(&Query3[A, B, C]{filter: q.filter}).describeAccess(mf)
}

func (q *Extract3[A, B, C]) rebind(ctx *bindContext) { q.target = ctx.src }

func (q *Extract3[A, B, C]) Each(fn func(EntityID, A, B, C) bool) {
	(&Query3[A, B, C]{filter: q.filter, target: q.target}).Each(fn)
}

// Extract4 is Query4's cross-world counterpart.
type Extract4[A, B, C, D any] struct {
	filter QueryFilter
	target *SubApp
}

func NewExtract4[A, B, C, D any](filters ...QueryFilter) *Extract4[A, B, C, D] {
	return &Extract4[A, B, C, D]{filter: mergeFilters(filters)}
}

func (q *Extract4[A, B, C, D]) describeAccess(mf *AccessManifest) {
	(&Query4[A, B, C, D]{filter: q.filter}).describeAccess(mf)
}

func (q *Extract4[A, B, C, D]) rebind(ctx *bindContext) { q.target = ctx.src }

func (q *Extract4[A, B, C, D]) Each(fn func(EntityID, A, B, C, D) bool) {
	(&Query4[A, B, C, D]{filter: q.filter, target: q.target}).Each(fn)
}
