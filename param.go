package ecs

import "reflect"

// Param is the interface every system-parameter shape implements: one method
// contributing to the access manifest, one method re-binding the parameter's
// view of the world before each invocation. This is the Go realization of
// spec.md 9's "trait/interface implemented once per parameter shape" note —
// see SPEC_FULL.md's DESIGN NOTES for why parameters are declared explicitly
// at NewSystem call sites instead of inferred from a bare function signature.
type Param interface {
	describeAccess(mf *AccessManifest)
	rebind(ctx *bindContext)
}

// bindContext carries the (source, destination) SubApp pair a system node is
// currently executing against. For single-SubApp systems src == dst.
type bindContext struct {
	src *SubApp
	dst *SubApp
}

// Mut wraps a query Get-slot to mark it mutable; Ptr is populated by Query/
// Extract.Each just before the per-entity callback runs, and its value (if
// still non-nil) is written back to the component store after the callback
// returns.
type Mut[T any] struct {
	Ptr *T
}

func (Mut[T]) isMut() {}

func (Mut[T]) componentType() reflect.Type { return typeOf[T]() }

func (m Mut[T]) withPtr(p any) any {
	ptr, _ := p.(*T)
	return Mut[T]{Ptr: ptr}
}

func (m Mut[T]) derefAny() any {
	if m.Ptr == nil {
		var zero T
		return zero
	}
	return *m.Ptr
}

type mutSlot interface {
	isMut()
	componentType() reflect.Type
	withPtr(p any) any
	derefAny() any
}

type fieldSpec struct {
	typ   reflect.Type
	write bool
}

// specOf inspects type parameter T: if T is a Mut[X] instantiation, the field
// is a write access to X; otherwise it's a read access to T itself.
func specOf[T any]() fieldSpec {
	var zero T
	if m, ok := any(zero).(mutSlot); ok {
		return fieldSpec{typ: m.componentType(), write: true}
	}
	return fieldSpec{typ: typeOf[T](), write: false}
}

// QueryFilter narrows a query with additional required (With) or forbidden
// (Without) component types that are not themselves fetched.
type QueryFilter struct {
	with    []reflect.Type
	without []reflect.Type
}

// With requires entities to carry component T without fetching its value.
func With[T any]() QueryFilter {
	return QueryFilter{with: []reflect.Type{typeOf[T]()}}
}

// Without excludes entities carrying component T.
func Without[T any]() QueryFilter {
	return QueryFilter{without: []reflect.Type{typeOf[T]()}}
}

func mergeFilters(filters []QueryFilter) QueryFilter {
	var out QueryFilter
	for _, f := range filters {
		out.with = append(out.with, f.with...)
		out.without = append(out.without, f.without...)
	}
	return out
}

// Cmd is the Command system parameter: a deferred mutation buffer kept in the
// owning SubApp's command cache until end_commands applies it.
type Cmd struct {
	buf *CommandBuffer
}

func NewCmd() *Cmd { return &Cmd{} }

func (c *Cmd) describeAccess(mf *AccessManifest) { mf.HasCommand = true }

func (c *Cmd) rebind(ctx *bindContext) {
	c.buf = ctx.dst.takeCommandBuffer()
}

// Buffer exposes the bound command buffer for recording deferred mutations.
func (c *Cmd) Buffer() *CommandBuffer { return c.buf }

// Res is a read-only resource borrow.
type Res[T any] struct {
	world *World
}

func NewRes[T any]() *Res[T] { return &Res[T]{} }

func (r *Res[T]) describeAccess(mf *AccessManifest) {
	mf.ResourcesRead = append(mf.ResourcesRead, typeOf[T]())
}

func (r *Res[T]) rebind(ctx *bindContext) { r.world = ctx.dst.World() }

// Get returns the current resource value, or the zero value and false if absent.
func (r *Res[T]) Get() (T, bool) { return GetResource[T](r.world) }

// ResMut is a mutable resource borrow.
type ResMut[T any] struct {
	world *World
}

func NewResMut[T any]() *ResMut[T] { return &ResMut[T]{} }

func (r *ResMut[T]) describeAccess(mf *AccessManifest) {
	mf.ResourcesWrite = append(mf.ResourcesWrite, typeOf[T]())
}

func (r *ResMut[T]) rebind(ctx *bindContext) { r.world = ctx.dst.World() }

// Get returns the current resource value, or the zero value and false if absent.
func (r *ResMut[T]) Get() (T, bool) { return GetResource[T](r.world) }

// Set overwrites the resource value.
func (r *ResMut[T]) Set(v T) { EmplaceResource[T](r.world, v) }

// Local is a per-system persistent value. In the original design Locals are
// stored in the owning SubApp keyed by (system, type); in Go the same
// lifetime guarantee falls out of ordinary closure capture, since a *Local[T]
// created once at NewSystem time and reused across ticks already persists —
// so Local carries no access and needs no rebinding, just storage.
type Local[T any] struct {
	Value T
}

func NewLocal[T any](initial T) *Local[T] { return &Local[T]{Value: initial} }

func (l *Local[T]) describeAccess(*AccessManifest) {}

func (l *Local[T]) rebind(*bindContext) {}
