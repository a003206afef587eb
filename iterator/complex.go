package iterator

import (
	"fmt"
	"sync"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/refcodec"
	"github.com/colpool/colpool/status"
)

// stackPool reuses the explicit work-stack backing array across complex
// cursors, the same scratch-reuse shape the teacher repo uses for its
// swap-path search state (examples/graph/graph.go's findSwapPathsState)
// — generalised here from a fixed-depth DFS scratch buffer to a
// growable index stack for tree traversal.
var stackPool = sync.Pool{
	New: func() any {
		s := make([]uint32, 0, 64)
		return &s
	},
}

func acquireStack() *[]uint32 {
	s := stackPool.Get().(*[]uint32)
	*s = (*s)[:0]
	return s
}

// ComplexCursor is the heap-allocated cursor for binary-tree (in-order)
// and n-ary-tree (pre-order) topologies (spec.md §4.5): a target pool, a
// cursor/next pair of absolute indices (no prev), and a growable index
// stack, driven with an explicit stack rather than recursion (spec.md §9
// "Recursive traversal" redesign flag).
type ComplexCursor struct {
	pool  *geometry.Pool
	table *expansion.Table
	kind  Kind

	// fieldCount is the number of leading ref-slot (child) fields;
	// meaningful for Ntree only (Btree's algorithm hardcodes slots 0/1).
	fieldCount int

	stack  *[]uint32
	cursor uint32
	next   uint32
	atEnd  bool
}

// NewBtree returns an in-order cursor over a binary-tree-topology pool
// rooted at rootAbs. refFieldCount must be exactly 2.
func NewBtree(pool *geometry.Pool, table *expansion.Table, rootAbs uint32, rootIsNull bool) *ComplexCursor {
	c := &ComplexCursor{pool: pool, table: table, kind: Btree, stack: acquireStack()}
	if rootIsNull {
		c.next = refEnd
		c.atEnd = true
		return c
	}
	c.next = rootAbs
	return c
}

// NewNtree returns a pre-order cursor over an n-ary-tree-topology pool
// rooted at rootAbs, with the row's ref field count (≥3, spec.md §4.5).
func NewNtree(pool *geometry.Pool, table *expansion.Table, rootAbs uint32, rootIsNull bool, refFieldCount int) *ComplexCursor {
	c := &ComplexCursor{pool: pool, table: table, kind: Ntree, stack: acquireStack(), fieldCount: refFieldCount}
	if rootIsNull {
		c.next = refEnd
		c.atEnd = true
		return c
	}
	c.next = rootAbs
	return c
}

// Release returns the cursor's scratch stack to the shared pool. Safe to
// call once a cursor is no longer needed; resolves Open Question (a) by
// making cursor teardown an explicit, idempotent call instead of
// mutating a caller-owned handle.
func (c *ComplexCursor) Release() {
	if c.stack != nil {
		stackPool.Put(c.stack)
		c.stack = nil
	}
}

// Kind reports the cursor's topology.
func (c *ComplexCursor) Kind() Kind { return c.kind }

// AtEnd reports whether traversal has completed.
func (c *ComplexCursor) AtEnd() bool { return c.atEnd }

// Current returns the cursor's current absolute index.
func (c *ComplexCursor) Current() (uint32, error) {
	if c.atEnd {
		return 0, status.ErrIteratorEnd
	}
	return c.cursor, nil
}

func (c *ComplexCursor) push(abs uint32) {
	*c.stack = append(*c.stack, abs)
}

func (c *ComplexCursor) pop() (uint32, bool) {
	s := *c.stack
	if len(s) == 0 {
		return 0, false
	}
	v := s[len(s)-1]
	*c.stack = s[:len(s)-1]
	return v, true
}

// childAbs resolves ref-slot fieldIdx of the node at abs, returning
// refEnd for a null child.
func (c *ComplexCursor) childAbs(abs uint32, fieldIdx int) (uint32, error) {
	target, isNull, err := refcodec.GetFieldReference(c.pool, c.table, abs, fieldIdx)
	if err != nil {
		return 0, err
	}
	if isNull {
		return refEnd, nil
	}
	return c.pool.AbsIndex(target), nil
}

// Next advances the cursor per the topology-specific algorithm in
// spec.md §4.5.
func (c *ComplexCursor) Next() error {
	if c.atEnd {
		return status.ErrIteratorEnd
	}
	switch c.kind {
	case Btree:
		return c.nextBtree()
	case Ntree:
		return c.nextNtree()
	default:
		return fmt.Errorf("colpool: ComplexCursor.Next: unsupported kind %v", c.kind)
	}
}

// nextBtree implements spec.md §4.5's binary-tree in-order step:
// descend via ref-slot 0 pushing each node; pop into cursor; set next =
// ref-slot 1 of the popped node. Terminates when next == REF_END and the
// stack is empty.
func (c *ComplexCursor) nextBtree() error {
	for c.next != refEnd {
		c.push(c.next)
		left, err := c.childAbs(c.next, 0)
		if err != nil {
			return err
		}
		c.next = left
	}
	popped, ok := c.pop()
	if !ok {
		c.atEnd = true
		return nil
	}
	c.cursor = popped
	right, err := c.childAbs(popped, 1)
	if err != nil {
		return err
	}
	c.next = right
	return nil
}

// nextNtree implements spec.md §4.5's n-ary pre-order step: push
// children of next in reverse order; cursor = next; next = pop().
// Terminates when next == REF_END.
func (c *ComplexCursor) nextNtree() error {
	cur := c.next
	if cur == refEnd {
		c.atEnd = true
		return nil
	}
	for i := c.fieldCount - 1; i >= 0; i-- {
		child, err := c.childAbs(cur, i)
		if err != nil {
			return err
		}
		if child != refEnd {
			c.push(child)
		}
	}
	c.cursor = cur
	if popped, ok := c.pop(); ok {
		c.next = popped
	} else {
		c.next = refEnd
	}
	return nil
}

// Get returns the byte slice backing field fieldIdx of the cursor's
// current record.
func (c *ComplexCursor) Get(fieldIdx int) ([]byte, error) {
	if c.atEnd {
		return nil, status.ErrIteratorEnd
	}
	return c.pool.FieldBytes(c.cursor, fieldIdx), nil
}

// Set copies data into field fieldIdx of the cursor's current record.
func (c *ComplexCursor) Set(fieldIdx int, data []byte) error {
	if c.atEnd {
		return status.ErrIteratorEnd
	}
	copy(c.pool.FieldBytes(c.cursor, fieldIdx), data)
	return nil
}
