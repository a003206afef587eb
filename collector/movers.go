package collector

import (
	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/refcodec"
	"github.com/colpool/colpool/typetable"
)

// copyNonRefFields copies every field from srcAbs to dstAbs except the
// row's leading ref-slot fields, which the caller writes separately once
// it knows the child's new destination address. Go's copy() already
// dispatches to an optimized memmove for any size, so there is no need
// to hand-specialize 1/2/4/8-byte paths the way the original does.
func copyNonRefFields(src, dst *geometry.Pool, row typetable.Row, srcAbs, dstAbs uint32) {
	for i := row.RefFieldCount; i < row.FieldCount; i++ {
		copy(dst.FieldBytes(dstAbs, i), src.FieldBytes(srcAbs, i))
	}
}

const (
	listRefSlot = 0
	btreeLeft   = 0
	btreeRight  = 1
)

// moveList implements spec.md §4.7 step 3's list mover: walk the chain
// from the root, allocating each destination slot linearly and copying
// non-ref fields lane-for-lane; the head's new position becomes the
// returned root.
func moveList(src, dst *geometry.Pool, table *expansion.Table, row typetable.Row, rootAbs uint32, rootIsNull bool) (newRootAbs uint32, newRootIsNull bool, err error) {
	if rootIsNull {
		return 0, true, nil
	}

	cur := rootAbs
	var headAbs uint32
	var prevDstAbs uint32
	havePrev := false

	for {
		h, err := dst.Alloc()
		if err != nil {
			return 0, false, err
		}
		dstAbs := dst.AbsIndex(h)
		if !havePrev {
			headAbs = dstAbs
		}
		copyNonRefFields(src, dst, row, cur, dstAbs)

		if havePrev {
			if err := refcodec.SetFieldReference(dst, table, prevDstAbs, listRefSlot, dst.HandleFromAbs(dstAbs), false); err != nil {
				return 0, false, err
			}
		}

		next, nextIsNull, err := refcodec.GetFieldReference(src, table, cur, listRefSlot)
		if err != nil {
			return 0, false, err
		}
		if nextIsNull {
			if err := refcodec.SetFieldReference(dst, table, dstAbs, listRefSlot, geometry.Handle{}, true); err != nil {
				return 0, false, err
			}
			return headAbs, false, nil
		}
		prevDstAbs = dstAbs
		havePrev = true
		cur = src.AbsIndex(next)
	}
}

// moveBtree implements spec.md §4.7 step 3's btree mover. The original
// description ("place left subtree, then root, then right subtree,
// writing ref fields as you materialise children") requires knowing a
// child's new address before its parent can be written, which an
// iterative post-order walk gives directly: children are always
// materialised before the parent that references them. This preserves
// the exact shape of the source tree, so in-order iteration of the
// result yields the same sequence as before the move (spec.md §8).
func moveBtree(src, dst *geometry.Pool, table *expansion.Table, row typetable.Row, rootAbs uint32, rootIsNull bool) (newRootAbs uint32, newRootIsNull bool, err error) {
	if rootIsNull {
		return 0, true, nil
	}

	const end = ^uint32(0)
	child := func(abs uint32, slot int) (uint32, error) {
		t, isNull, err := refcodec.GetFieldReference(src, table, abs, slot)
		if err != nil {
			return 0, err
		}
		if isNull {
			return end, nil
		}
		return src.AbsIndex(t), nil
	}

	dstOf := make(map[uint32]uint32)
	var stack []uint32
	var lastVisited uint32 = end
	cur := rootAbs

	for cur != end || len(stack) > 0 {
		if cur != end {
			stack = append(stack, cur)
			next, err := child(cur, btreeLeft)
			if err != nil {
				return 0, false, err
			}
			cur = next
			continue
		}
		peek := stack[len(stack)-1]
		right, err := child(peek, btreeRight)
		if err != nil {
			return 0, false, err
		}
		if right != end && right != lastVisited {
			cur = right
			continue
		}

		stack = stack[:len(stack)-1]
		h, err := dst.Alloc()
		if err != nil {
			return 0, false, err
		}
		dstAbs := dst.AbsIndex(h)
		copyNonRefFields(src, dst, row, peek, dstAbs)

		left, _ := child(peek, btreeLeft)
		if left != end {
			if err := refcodec.SetFieldReference(dst, table, dstAbs, btreeLeft, dst.HandleFromAbs(dstOf[left]), false); err != nil {
				return 0, false, err
			}
		} else {
			if err := refcodec.SetFieldReference(dst, table, dstAbs, btreeLeft, geometry.Handle{}, true); err != nil {
				return 0, false, err
			}
		}
		if right != end {
			if err := refcodec.SetFieldReference(dst, table, dstAbs, btreeRight, dst.HandleFromAbs(dstOf[right]), false); err != nil {
				return 0, false, err
			}
		} else {
			if err := refcodec.SetFieldReference(dst, table, dstAbs, btreeRight, geometry.Handle{}, true); err != nil {
				return 0, false, err
			}
		}

		dstOf[peek] = dstAbs
		lastVisited = peek
		cur = end
	}

	return dstOf[rootAbs], false, nil
}

// moveNtree implements spec.md §4.7 step 3's n-ary mover: breadth-first
// level placement, allocating each node's children contiguously
// (skipping null slots) so siblings stay adjacent.
func moveNtree(src, dst *geometry.Pool, table *expansion.Table, row typetable.Row, rootAbs uint32, rootIsNull bool) (newRootAbs uint32, newRootIsNull bool, err error) {
	if rootIsNull {
		return 0, true, nil
	}

	rootHandle, err := dst.Alloc()
	if err != nil {
		return 0, false, err
	}
	rootDstAbs := dst.AbsIndex(rootHandle)
	copyNonRefFields(src, dst, row, rootAbs, rootDstAbs)

	queue := []uint32{rootAbs}
	dstAbsOf := map[uint32]uint32{rootAbs: rootDstAbs}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curDst := dstAbsOf[cur]

		for slot := 0; slot < row.RefFieldCount; slot++ {
			childTarget, isNull, err := refcodec.GetFieldReference(src, table, cur, slot)
			if err != nil {
				return 0, false, err
			}
			if isNull {
				continue
			}
			childSrcAbs := src.AbsIndex(childTarget)

			childHandle, err := dst.Alloc()
			if err != nil {
				return 0, false, err
			}
			childDstAbs := dst.AbsIndex(childHandle)
			copyNonRefFields(src, dst, row, childSrcAbs, childDstAbs)
			dstAbsOf[childSrcAbs] = childDstAbs

			if err := refcodec.SetFieldReference(dst, table, curDst, slot, dst.HandleFromAbs(childDstAbs), false); err != nil {
				return 0, false, err
			}
			queue = append(queue, childSrcAbs)
		}
	}

	return rootDstAbs, false, nil
}
