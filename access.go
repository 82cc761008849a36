package ecs

import "reflect"

// QueryAccess records one query-shaped parameter's (includes, writes, excludes)
// triple, per spec: Get<T...> contributes to writes or reads depending on
// whether the slot is wrapped in Mut[T]; With<T...> contributes reads; Without<T...>
// contributes excludes.
type QueryAccess struct {
	Reads    []reflect.Type
	Writes   []reflect.Type
	Excludes []reflect.Type
}

// includes returns every component type this query requires present on an entity,
// i.e. reads ∪ writes (With<T> types are folded into Reads at construction).
func (q QueryAccess) includes() []reflect.Type {
	return append(append([]reflect.Type(nil), q.Reads...), q.Writes...)
}

// AccessManifest is the full access declaration for one system: entities,
// resources, events, and states it may read or write, plus whether it takes a
// deferred Command buffer. Built once at system-registration time and never
// mutated afterward.
type AccessManifest struct {
	HasCommand     bool
	Queries        []QueryAccess
	ResourcesRead  []reflect.Type
	ResourcesWrite []reflect.Type
	EventsRead     []reflect.Type
	EventsWrite    []reflect.Type
	StatesRead     []reflect.Type
	StatesWrite    []reflect.Type // NextState<T> writes
}

func containsType(set []reflect.Type, t reflect.Type) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func intersects(a, b []reflect.Type) bool {
	for _, t := range a {
		if containsType(b, t) {
			return true
		}
	}
	return false
}

// Conflicts reports whether two manifests cannot execute concurrently without
// risking a data race, per the five rules of the conflict analyzer. The
// relation is symmetric.
func Conflicts(a, b *AccessManifest) bool {
	if a == nil || b == nil {
		return false
	}

	// Rule 1: Command vs. Command or any query.
	if a.HasCommand && (b.HasCommand || len(b.Queries) > 0) {
		return true
	}
	if b.HasCommand && (a.HasCommand || len(a.Queries) > 0) {
		return true
	}

	// Rule 2: query pairs with an intersecting entity set and a write/read-or-write
	// overlap on some component type.
	for _, qa := range a.Queries {
		for _, qb := range b.Queries {
			if queriesConflict(qa, qb) {
				return true
			}
		}
	}

	// Rule 3: resource write vs. read-or-write on the same type.
	for _, t := range a.ResourcesWrite {
		if containsType(b.ResourcesRead, t) || containsType(b.ResourcesWrite, t) {
			return true
		}
	}
	for _, t := range b.ResourcesWrite {
		if containsType(a.ResourcesRead, t) || containsType(a.ResourcesWrite, t) {
			return true
		}
	}

	// Rule 4: event type on both write sets, or read on one and written on the other.
	if intersects(a.EventsWrite, b.EventsWrite) {
		return true
	}
	if intersects(a.EventsRead, b.EventsWrite) || intersects(a.EventsWrite, b.EventsRead) {
		return true
	}

	// Rule 5: a state type T where one side writes NextState<T> while the other
	// reads or writes State<T> or NextState<T>.
	for _, t := range a.StatesWrite {
		if containsType(b.StatesRead, t) || containsType(b.StatesWrite, t) {
			return true
		}
	}
	for _, t := range b.StatesWrite {
		if containsType(a.StatesRead, t) || containsType(a.StatesWrite, t) {
			return true
		}
	}

	return false
}

// queriesConflict implements rule 2: excludes must not disjoint the other
// side's includes on required-component axes, and some component type must
// appear as a write on one side and a read-or-write on the other. Two queries
// with fully-disjoint include sets never conflict regardless of writes.
func queriesConflict(a, b QueryAccess) bool {
	aIncludes := a.includes()
	bIncludes := b.includes()

	// Disjoint include sets never conflict. Otherwise, if either side excludes
	// any type the other requires, no entity can match both queries, so the
	// entity sets cannot overlap.
	if !intersects(aIncludes, bIncludes) {
		return false
	}
	for _, t := range a.Excludes {
		if containsType(bIncludes, t) {
			return false
		}
	}
	for _, t := range b.Excludes {
		if containsType(aIncludes, t) {
			return false
		}
	}

	for _, t := range a.Writes {
		if containsType(b.Reads, t) || containsType(b.Writes, t) {
			return true
		}
	}
	for _, t := range b.Writes {
		if containsType(a.Reads, t) || containsType(a.Writes, t) {
			return true
		}
	}
	return false
}
