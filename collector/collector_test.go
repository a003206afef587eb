package collector_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/collector"
	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/iterator"
	"github.com/colpool/colpool/refcodec"
	"github.com/colpool/colpool/typetable"
)

func putU64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getU64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }

func newListPool(t *testing.T) (*geometry.Runtime, *geometry.Pool, *expansion.Table) {
	t.Helper()
	table, err := typetable.New([]typetable.Descriptor{
		{
			TypeID: 1,
			Class:  typetable.Composite,
			Children: []typetable.Descriptor{
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.Primitive, PrimitiveSize: 8},
			},
		},
	})
	require.NoError(t, err)
	rt := geometry.NewRuntime(table, nil)
	pool, err := rt.CreatePool(1)
	require.NoError(t, err)
	return rt, pool, expansion.NewTable(64)
}

func walkList(t *testing.T, pool *geometry.Pool, tbl *expansion.Table, rootAbs uint32, rootIsNull bool) []uint64 {
	t.Helper()
	if rootIsNull {
		return nil
	}
	var out []uint64
	c := iterator.NewList(pool, tbl, rootAbs, false)
	for {
		abs, err := c.Current()
		require.NoError(t, err)
		out = append(out, getU64(pool.FieldBytes(abs, 1)))
		if err := c.Next(); err != nil || c.AtEnd() {
			break
		}
	}
	return out
}

func TestCollectListPreservesOrderAndDropsRemoved(t *testing.T) {
	rt, pool, tbl := newListPool(t)

	const n = 300
	handles := make([]geometry.Handle, n)
	for i := 0; i < n; i++ {
		h, err := pool.Alloc()
		require.NoError(t, err)
		handles[i] = h
		putU64(pool.FieldBytes(pool.AbsIndex(h), 1), uint64(i))
		// interleave a junk allocation nobody will ever reference, so the
		// pool grows beyond the live set exactly as spec.md §8 scenario 5
		// describes for the octary-tree case.
		_, err = pool.Alloc()
		require.NoError(t, err)
	}
	for i := 0; i < n-1; i++ {
		require.NoError(t, refcodec.SetFieldReference(pool, tbl, pool.AbsIndex(handles[i]), 0, handles[i+1], false))
	}
	require.NoError(t, refcodec.SetFieldReference(pool, tbl, pool.AbsIndex(handles[n-1]), 0, geometry.Handle{}, true))

	cur := iterator.NewList(pool, tbl, pool.AbsIndex(handles[0]), false)
	for i := 0; i < n-2; i += 2 {
		require.NoError(t, cur.RemoveAfter())
		require.NoError(t, cur.Next())
	}

	before := walkList(t, pool, tbl, pool.AbsIndex(handles[0]), false)

	rootAbs := pool.AbsIndex(handles[0])
	var newRoot geometry.Handle
	root := collector.Root{Abs: rootAbs, Set: func(h geometry.Handle) { newRoot = h }}

	c := collector.New(rt, tbl, nil)
	require.NoError(t, c.CollectPool(pool, []collector.Root{root}))

	after := walkList(t, pool, tbl, pool.AbsIndex(newRoot), false)
	require.Equal(t, before, after)
	require.Equal(t, uint64(len(after)), pool.Population())
}

func newBtreePool(t *testing.T) (*geometry.Runtime, *geometry.Pool, *expansion.Table) {
	t.Helper()
	table, err := typetable.New([]typetable.Descriptor{
		{
			TypeID: 1,
			Class:  typetable.Composite,
			Children: []typetable.Descriptor{
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.LocalRef, RefereeTypeID: 1},
				{Class: typetable.Primitive, PrimitiveSize: 8},
			},
		},
	})
	require.NoError(t, err)
	rt := geometry.NewRuntime(table, nil)
	pool, err := rt.CreatePool(1)
	require.NoError(t, err)
	return rt, pool, expansion.NewTable(64)
}

func insertBST(t *testing.T, pool *geometry.Pool, tbl *expansion.Table, root int64, key uint64) int64 {
	t.Helper()
	h, err := pool.Alloc()
	require.NoError(t, err)
	abs := pool.AbsIndex(h)
	putU64(pool.FieldBytes(abs, 2), key)
	require.NoError(t, refcodec.SetFieldReference(pool, tbl, abs, 0, geometry.Handle{}, true))
	require.NoError(t, refcodec.SetFieldReference(pool, tbl, abs, 1, geometry.Handle{}, true))

	if root < 0 {
		return int64(abs)
	}
	cur := uint32(root)
	for {
		curKey := getU64(pool.FieldBytes(cur, 2))
		slot := 1
		if key < curKey {
			slot = 0
		}
		child, isNull, err := refcodec.GetFieldReference(pool, tbl, cur, slot)
		require.NoError(t, err)
		if isNull {
			require.NoError(t, refcodec.SetFieldReference(pool, tbl, cur, slot, h, false))
			return root
		}
		cur = pool.AbsIndex(child)
	}
}

func inOrderKeys(t *testing.T, pool *geometry.Pool, tbl *expansion.Table, rootAbs uint32) []uint64 {
	t.Helper()
	c := iterator.NewBtree(pool, tbl, rootAbs, false)
	defer c.Release()
	require.NoError(t, c.Next())
	var out []uint64
	for !c.AtEnd() {
		abs, err := c.Current()
		require.NoError(t, err)
		out = append(out, getU64(pool.FieldBytes(abs, 2)))
		require.NoError(t, c.Next())
	}
	return out
}

func TestCollectBtreePreservesInOrderSequence(t *testing.T) {
	rt, pool, tbl := newBtreePool(t)
	keys := []uint64{50, 20, 80, 10, 30, 70, 90, 5, 15, 25, 35}

	root := int64(-1)
	for _, k := range keys {
		root = insertBST(t, pool, tbl, root, k)
	}

	before := inOrderKeys(t, pool, tbl, uint32(root))

	var newRoot geometry.Handle
	c := collector.New(rt, tbl, nil)
	require.NoError(t, c.CollectPool(pool, []collector.Root{
		{Abs: uint32(root), Set: func(h geometry.Handle) { newRoot = h }},
	}))

	after := inOrderKeys(t, pool, tbl, pool.AbsIndex(newRoot))
	require.Equal(t, before, after)
	require.Equal(t, uint64(len(keys)), pool.Population())
}

func newNtreePool(t *testing.T, arity int) (*geometry.Runtime, *geometry.Pool, *expansion.Table) {
	t.Helper()
	children := make([]typetable.Descriptor, 0, arity+1)
	for i := 0; i < arity; i++ {
		children = append(children, typetable.Descriptor{Class: typetable.LocalRef, RefereeTypeID: 1})
	}
	children = append(children, typetable.Descriptor{Class: typetable.Primitive, PrimitiveSize: 8})
	table, err := typetable.New([]typetable.Descriptor{
		{TypeID: 1, Class: typetable.Composite, Children: children},
	})
	require.NoError(t, err)
	rt := geometry.NewRuntime(table, nil)
	pool, err := rt.CreatePool(1)
	require.NoError(t, err)
	return rt, pool, expansion.NewTable(256)
}

// TestCollectOctaryTreePreservesPreOrderSequence is spec.md §8 end-to-end
// scenario 5 at reduced depth: build an 8-ary tree (a full first level,
// plus one child under each first-level node), interleave a junk
// allocation after each live node, collect, and check the pre-order
// sequence and final population survive.
func TestCollectOctaryTreePreservesPreOrderSequence(t *testing.T) {
	const arity = 8
	rt, pool, tbl := newNtreePool(t, arity)

	var nextID uint64
	newNode := func() (geometry.Handle, uint64) {
		h, err := pool.Alloc()
		require.NoError(t, err)
		abs := pool.AbsIndex(h)
		id := nextID
		nextID++
		putU64(pool.FieldBytes(abs, arity), id)
		for i := 0; i < arity; i++ {
			require.NoError(t, refcodec.SetFieldReference(pool, tbl, abs, i, geometry.Handle{}, true))
		}
		_, err = pool.Alloc() // junk, interleaved per scenario 5
		require.NoError(t, err)
		return h, id
	}

	root, _ := newNode()
	level1 := make([]geometry.Handle, arity)
	for i := range level1 {
		child, _ := newNode()
		level1[i] = child
		require.NoError(t, refcodec.SetFieldReference(pool, tbl, pool.AbsIndex(root), i, child, false))
	}
	for i, parent := range level1 {
		child, _ := newNode()
		require.NoError(t, refcodec.SetFieldReference(pool, tbl, pool.AbsIndex(parent), 0, child, false))
		_ = i
	}

	preOrder := func(rootAbs uint32) []uint64 {
		c := iterator.NewNtree(pool, tbl, rootAbs, false, arity)
		defer c.Release()
		require.NoError(t, c.Next())
		var out []uint64
		for !c.AtEnd() {
			abs, err := c.Current()
			require.NoError(t, err)
			out = append(out, getU64(pool.FieldBytes(abs, arity)))
			require.NoError(t, c.Next())
		}
		return out
	}

	before := preOrder(pool.AbsIndex(root))
	liveCount := len(before)

	var newRoot geometry.Handle
	c := collector.New(rt, tbl, nil)
	require.NoError(t, c.CollectPool(pool, []collector.Root{
		{Abs: pool.AbsIndex(root), Set: func(h geometry.Handle) { newRoot = h }},
	}))

	after := preOrder(pool.AbsIndex(newRoot))
	require.Equal(t, before, after)
	require.Equal(t, uint64(liveCount), pool.Population())
}
