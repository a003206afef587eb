package colpool

import "github.com/colpool/colpool/bulkmap"

// FieldMap implements spec.md §4.6's field_map against this pool as the
// source and dst as the destination. src must be Compact (no
// list-topology deletion holes).
func (p *Pool) FieldMap(dst *Pool, fieldIdx int, fn func(srcField, dstField []byte)) error {
	return bulkmap.FieldMap(p.p, dst.p, fieldIdx, fn)
}

// FieldListMap implements spec.md §4.6's field_list_map, walking the
// list-topology chain rooted at root rather than striding the source
// lane linearly.
func (p *Pool) FieldListMap(dst *Pool, listRefField, fieldIdx int, root Handle, rootIsNull bool, fn func(srcField, dstField []byte)) error {
	return bulkmap.FieldListMap(p.p, dst.p, p.rt.expansion, listRefField, fieldIdx, p.p.AbsIndex(root), rootIsNull, fn)
}
