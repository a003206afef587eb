package iterator

import (
	"fmt"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/refcodec"
	"github.com/colpool/colpool/status"
)

// listRefField is the index of the single forward-reference field in a
// list-topology row (the "references are first" convention, spec.md
// §4.5 — a list row has exactly one leading ref field, at index 0).
const listRefField = 0

// Cursor is the simple/list iterator: it fits in the same 64-bit shape
// as a reference handle, aliasing the top-nibble flag bits to carry its
// Kind (spec.md §4.5) via geometry.Handle.TopNibble/WithTopNibble.
type Cursor struct {
	pool  *geometry.Pool
	table *expansion.Table // nil for Simple; required for List
	kind  Kind
	abs   uint32
	atEnd bool
}

// NewSimple returns a cursor over every occupied absolute index of pool,
// positioned on the first record (absolute index 0), or already at the
// end for an empty pool.
func NewSimple(pool *geometry.Pool) *Cursor {
	return &Cursor{pool: pool, kind: Simple, atEnd: pool.Population() == 0}
}

// NewList returns a cursor over pool's list topology starting at rootAbs
// (the head of the chain). table resolves any far references the chain
// contains.
func NewList(pool *geometry.Pool, table *expansion.Table, rootAbs uint32, rootIsNull bool) *Cursor {
	return &Cursor{pool: pool, table: table, kind: List, abs: rootAbs, atEnd: rootIsNull}
}

// Kind reports the cursor's topology.
func (c *Cursor) Kind() Kind { return c.kind }

// AtEnd reports whether the cursor has exhausted its traversal.
func (c *Cursor) AtEnd() bool { return c.atEnd }

// Current returns the cursor's absolute index, or status.ErrIteratorEnd
// if the cursor is exhausted.
func (c *Cursor) Current() (uint32, error) {
	if c.atEnd {
		return 0, status.ErrIteratorEnd
	}
	return c.abs, nil
}

// Next advances the cursor (spec.md §4.5): simple increments the
// absolute index until the population cursor; list follows the forward
// reference field.
func (c *Cursor) Next() error {
	if c.atEnd {
		return status.ErrIteratorEnd
	}
	switch c.kind {
	case Simple:
		next := c.abs + 1
		if uint64(next) >= c.pool.Population() {
			c.atEnd = true
			return nil
		}
		c.abs = next
		return nil
	case List:
		target, isNull, err := refcodec.GetFieldReference(c.pool, c.table, c.abs, listRefField)
		if err != nil {
			return err
		}
		if isNull {
			c.atEnd = true
			return nil
		}
		c.abs = c.pool.AbsIndex(target)
		return nil
	default:
		return fmt.Errorf("colpool: Cursor.Next: unsupported kind %v", c.kind)
	}
}

// Prev is defined only for simple iterators (spec.md §4.5); it
// decrements the absolute index and reports status.ErrIteratorEnd at
// zero rather than wrapping.
func (c *Cursor) Prev() error {
	if c.kind != Simple {
		return status.ErrNotSimpleIterator
	}
	if c.atEnd {
		if c.pool.Population() == 0 {
			return status.ErrIteratorEnd
		}
		c.abs = uint32(c.pool.Population() - 1)
		c.atEnd = false
		return nil
	}
	if c.abs == 0 {
		return status.ErrIteratorEnd
	}
	c.abs--
	return nil
}

// Get returns the byte slice backing field fieldIdx of the cursor's
// current record.
func (c *Cursor) Get(fieldIdx int) ([]byte, error) {
	if c.atEnd {
		return nil, status.ErrIteratorEnd
	}
	return c.pool.FieldBytes(c.abs, fieldIdx), nil
}

// Set copies data into field fieldIdx of the cursor's current record.
func (c *Cursor) Set(fieldIdx int, data []byte) error {
	if c.atEnd {
		return status.ErrIteratorEnd
	}
	copy(c.pool.FieldBytes(c.abs, fieldIdx), data)
	return nil
}

// Handle encodes the cursor as a 64-bit geometry.Handle, aliasing the
// flag nibble's low two bits to carry Kind (spec.md §4.5).
func (c *Cursor) Handle() geometry.Handle {
	h := c.pool.HandleFromAbs(c.abs)
	return h.WithTopNibble(uint8(c.kind) & 0x3)
}

// InsertAfter implements spec.md §4.9's insert_after: newAbs.next ←
// it.next; it.next ← newAbs. O(1). Defined only for list cursors.
func (c *Cursor) InsertAfter(newAbs uint32) error {
	if c.kind != List {
		return fmt.Errorf("colpool: InsertAfter is only defined for list cursors")
	}
	if c.atEnd {
		return status.ErrIteratorEnd
	}

	nextTarget, nextIsNull, err := refcodec.GetFieldReference(c.pool, c.table, c.abs, listRefField)
	if err != nil {
		return err
	}
	newHandle := c.pool.HandleFromAbs(newAbs)
	if err := refcodec.SetFieldReference(c.pool, c.table, newAbs, listRefField, nextTarget, nextIsNull); err != nil {
		return err
	}
	return refcodec.SetFieldReference(c.pool, c.table, c.abs, listRefField, newHandle, false)
}

// RemoveAfter implements spec.md §4.9's remove_after: it.next ←
// it.next.next. The removed record's storage is not reclaimed until
// collection (spec.md §4.9: "deletion is effectively free"). Defined
// only for list cursors.
func (c *Cursor) RemoveAfter() error {
	if c.kind != List {
		return fmt.Errorf("colpool: RemoveAfter is only defined for list cursors")
	}
	if c.atEnd {
		return status.ErrIteratorEnd
	}

	removed, removedIsNull, err := refcodec.GetFieldReference(c.pool, c.table, c.abs, listRefField)
	if err != nil {
		return err
	}
	if removedIsNull {
		return fmt.Errorf("colpool: RemoveAfter: %w", status.ErrIteratorEnd)
	}
	removedAbs := c.pool.AbsIndex(removed)
	afterRemoved, afterIsNull, err := refcodec.GetFieldReference(c.pool, c.table, removedAbs, listRefField)
	if err != nil {
		return err
	}
	if err := refcodec.SetFieldReference(c.pool, c.table, c.abs, listRefField, afterRemoved, afterIsNull); err != nil {
		return err
	}
	c.pool.MarkHole(removedAbs)
	return nil
}
