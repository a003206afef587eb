package colpool

import (
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/iterator"
	"github.com/colpool/colpool/refcodec"
)

// Handle is colpool's 64-bit packed reference (spec.md §3/§6), aliased
// here so callers never need to import geometry directly.
type Handle = geometry.Handle

// PoolID identifies a pool.
type PoolID = geometry.PoolID

// Pool is a type-homogeneous, column-striped address range (spec.md
// §4.2), bound to the Runtime it was created from so field/reference
// operations can reach the shared expansion table.
type Pool struct {
	rt *Runtime
	p  *geometry.Pool
}

// ID returns the pool's id.
func (p *Pool) ID() PoolID { return p.p.ID() }

// TypeID returns the registered type this pool allocates.
func (p *Pool) TypeID() uint16 { return p.p.TypeID() }

// Population returns the number of records currently allocated (the
// population cursor).
func (p *Pool) Population() uint64 { return p.p.Population() }

// Compact reports whether the pool has no list-topology deletion holes.
func (p *Pool) Compact() bool { return p.p.Compact() }

// Alloc implements spec.md §4.2's pool_alloc (Grow(1)).
func (p *Pool) Alloc() (Handle, error) {
	return p.p.Alloc()
}

// Grow implements spec.md §4.2's pool_grow.
func (p *Pool) Grow(n int) (Handle, error) {
	return p.p.Grow(n)
}

// Shrink implements spec.md §4.2's pool_shrink.
func (p *Pool) Shrink(n int) error {
	return p.p.Shrink(n)
}

// Destroy implements spec.md §4.2's pool_destroy: unmaps every subpool
// and removes the pool from its Runtime's directory.
func (p *Pool) Destroy() error {
	id := p.p.ID()
	if err := p.rt.geo.Destroy(id); err != nil {
		return err
	}
	if p.rt.telemetry != nil {
		p.rt.telemetry.Publish(telemetryEventPoolDestroyed, map[string]any{"pool_id": id})
	}
	return nil
}

// GetField returns the byte slice backing field fieldIdx of the record
// named by h.
func (p *Pool) GetField(h Handle, fieldIdx int) []byte {
	return p.p.FieldBytes(p.p.AbsIndex(h), fieldIdx)
}

// SetField copies data into field fieldIdx of the record named by h.
func (p *Pool) SetField(h Handle, fieldIdx int, data []byte) {
	copy(p.p.FieldBytes(p.p.AbsIndex(h), fieldIdx), data)
}

// GetFieldReference implements spec.md §4.3's get_field_reference.
func (p *Pool) GetFieldReference(h Handle, fieldIdx int) (target Handle, isNull bool, err error) {
	return refcodec.GetFieldReference(p.p, p.rt.expansion, p.p.AbsIndex(h), fieldIdx)
}

// SetFieldReference implements spec.md §4.3's set_field_reference.
func (p *Pool) SetFieldReference(h Handle, fieldIdx int, target Handle, targetIsNull bool) error {
	return refcodec.SetFieldReference(p.p, p.rt.expansion, p.p.AbsIndex(h), fieldIdx, target, targetIsNull)
}

// PoolToArray returns a fresh snapshot of field fieldIdx across every
// record currently within the population cursor, in absolute-index
// order (the same order a simple iterator visits). Topology-aware
// traversal order (list/btree/ntree) is what the iterator constructors
// below are for; PoolToArray is the flat "just give me the lane" view
// spec.md §4.8 groups alongside GetField/SetField.
func (p *Pool) PoolToArray(fieldIdx int) [][]byte {
	n := int(p.p.Population())
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		b := p.p.FieldBytes(uint32(i), fieldIdx)
		cp := make([]byte, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out
}

// NewSimpleIterator returns a cursor over every occupied absolute index
// (spec.md §4.5, 0 ref fields).
func (p *Pool) NewSimpleIterator() *iterator.Cursor {
	return iterator.NewSimple(p.p)
}

// NewListIterator returns a cursor over the list topology rooted at
// root.
func (p *Pool) NewListIterator(root Handle, rootIsNull bool) *iterator.Cursor {
	return iterator.NewList(p.p, p.rt.expansion, p.p.AbsIndex(root), rootIsNull)
}

// NewBtreeIterator returns an in-order cursor over the binary-tree
// topology rooted at root.
func (p *Pool) NewBtreeIterator(root Handle, rootIsNull bool) *iterator.ComplexCursor {
	return iterator.NewBtree(p.p, p.rt.expansion, p.p.AbsIndex(root), rootIsNull)
}

// NewNtreeIterator returns a pre-order cursor over the n-ary-tree
// topology rooted at root. refFieldCount is the row's leading
// reference-field count (≥3).
func (p *Pool) NewNtreeIterator(root Handle, rootIsNull bool, refFieldCount int) *iterator.ComplexCursor {
	return iterator.NewNtree(p.p, p.rt.expansion, p.p.AbsIndex(root), rootIsNull, refFieldCount)
}
