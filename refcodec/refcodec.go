// Package refcodec implements the local-reference codec (spec.md C3):
// deciding between a 2-byte near (delta) encoding and a far encoding
// backed by the expansion table, and reversing that decision on read.
package refcodec

import (
	"fmt"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/localref"
	"github.com/colpool/colpool/status"
)

// readSlot decodes the 2-byte local-reference field currently stored at
// (absIdx, fieldIdx) in pool.
func readSlot(pool *geometry.Pool, absIdx uint32, fieldIdx int) localref.Ref {
	b := pool.FieldBytes(absIdx, fieldIdx)
	return localref.Unpack(uint16(b[0]) | uint16(b[1])<<8)
}

func writeSlot(pool *geometry.Pool, absIdx uint32, fieldIdx int, r localref.Ref) {
	b := pool.FieldBytes(absIdx, fieldIdx)
	w := r.Pack()
	b[0] = byte(w)
	b[1] = byte(w >> 8)
}

// tagFor builds the expansion-table key naming the far reference stored
// in holder's field fieldIdx (spec.md §4.3 step 5).
func tagFor(pool *geometry.Pool, holderAbs uint32, fieldIdx int) expansion.Tag {
	h := pool.HandleFromAbs(holderAbs)
	slot := localref.Ref{Index: int16(fieldIdx), IsLongRef: true}
	return expansion.NewTag(uint16(h.PoolID), h.SubpoolID, h.Index, slot)
}

// SetFieldReference implements spec.md §4.3's set_field_reference.
// holder and target must live in the same pool — colpool's local
// references never cross pools; a target in a different pool is
// status.ErrCrossPool (Open Question (c)'s resolution: a recoverable
// error rather than a contract-violation panic, since cross-pool
// assignment is something caller logic can legitimately attempt and
// recover from).
func SetFieldReference(pool *geometry.Pool, table *expansion.Table, holderAbs uint32, fieldIdx int, target geometry.Handle, targetIsNull bool) error {
	if targetIsNull {
		current := readSlot(pool, holderAbs, fieldIdx)
		if current.IsLongRef {
			table.Delete(tagFor(pool, holderAbs, fieldIdx))
		}
		writeSlot(pool, holderAbs, fieldIdx, localref.Zero)
		return nil
	}
	if target.PoolID != pool.ID() {
		return fmt.Errorf("%w: target pool %d, holder pool %d", status.ErrCrossPool, target.PoolID, pool.ID())
	}

	targetAbs := pool.AbsIndex(target)
	delta := int64(targetAbs) - int64(holderAbs)

	current := readSlot(pool, holderAbs, fieldIdx)

	if abs64(delta) < geometry.PAGE {
		if current.IsLongRef {
			table.Delete(tagFor(pool, holderAbs, fieldIdx))
		}
		writeSlot(pool, holderAbs, fieldIdx, localref.Ref{Index: int16(delta), IsLongRef: false})
		return nil
	}

	tag := tagFor(pool, holderAbs, fieldIdx)
	if err := table.Compress(tag, targetAbs); err != nil {
		return fmt.Errorf("colpool: far reference insert: %w", err)
	}
	writeSlot(pool, holderAbs, fieldIdx, localref.Ref{Index: int16(fieldIdx), IsLongRef: true})
	return nil
}

// GetFieldReference implements spec.md §4.3's get_field_reference,
// reversing SetFieldReference. It returns (0, true, nil) for a null
// field rather than an error — status.ErrRefNotFound is reserved for a
// far reference whose expansion entry has gone missing, which signals
// a structural bug rather than an intentional null.
func GetFieldReference(pool *geometry.Pool, table *expansion.Table, holderAbs uint32, fieldIdx int) (target geometry.Handle, isNull bool, err error) {
	r := readSlot(pool, holderAbs, fieldIdx)
	if r.IsNull() {
		return geometry.Handle{}, true, nil
	}
	if !r.IsLongRef {
		targetAbs := uint32(int64(holderAbs) + int64(r.Index))
		return pool.HandleFromAbs(targetAbs), false, nil
	}

	tag := tagFor(pool, holderAbs, fieldIdx)
	targetAbs, err := table.Expand(tag)
	if err != nil {
		return geometry.Handle{}, false, fmt.Errorf("colpool: far reference read: %w", err)
	}
	return pool.HandleFromAbs(targetAbs), false, nil
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
