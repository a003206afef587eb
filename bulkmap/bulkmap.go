// Package bulkmap implements the bulk field-mapping operations (spec.md
// C6): applying a transform lane-for-lane across two pools.
package bulkmap

import (
	"fmt"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/refcodec"
	"github.com/colpool/colpool/status"
)

// FieldMap implements spec.md §4.6's field_map: grows dst to src's
// population, then applies fn(srcField, dstField) for every occupied
// slot, where each slice points directly into the corresponding lane.
// src must be compact (no list-style deletion holes); a non-compact
// source returns status.ErrNotCompact, since a hole would desynchronize
// src and dst's slot numbering.
func FieldMap(src, dst *geometry.Pool, fieldIdx int, fn func(srcField, dstField []byte)) error {
	if !src.Compact() {
		return status.ErrNotCompact
	}
	n := int(src.Population())
	if n == 0 {
		return nil
	}
	if _, err := dst.Grow(n); err != nil {
		return fmt.Errorf("colpool: field_map: %w", err)
	}
	for i := 0; i < n; i++ {
		abs := uint32(i)
		fn(src.FieldBytes(abs, fieldIdx), dst.FieldBytes(abs, fieldIdx))
	}
	return nil
}

// FieldListMap implements spec.md §4.6's field_list_map: walks a
// list-topology chain from rootAbs (rather than striding src's lanes
// linearly), allocating one dst slot per visited node and applying fn —
// the tolerant counterpart to FieldMap for sources with deletion holes.
func FieldListMap(src, dst *geometry.Pool, table *expansion.Table, listRefField, fieldIdx int, rootAbs uint32, rootIsNull bool, fn func(srcField, dstField []byte)) error {
	if rootIsNull {
		return nil
	}
	cur := rootAbs
	for {
		dstHandle, err := dst.Alloc()
		if err != nil {
			return fmt.Errorf("colpool: field_list_map: %w", err)
		}
		fn(src.FieldBytes(cur, fieldIdx), dst.FieldBytes(dst.AbsIndex(dstHandle), fieldIdx))

		next, isNull, err := refcodec.GetFieldReference(src, table, cur, listRefField)
		if err != nil {
			return fmt.Errorf("colpool: field_list_map: %w", err)
		}
		if isNull {
			return nil
		}
		cur = src.AbsIndex(next)
	}
}
