// Package expansion implements the far-reference expansion table
// (spec.md C4): an open-addressed, linear-probing hash table keyed by a
// Tag that uniquely names one local-reference field, mapping to the
// absolute index of its referent.
package expansion

import (
	"fmt"

	"github.com/colpool/colpool/localref"
	"github.com/colpool/colpool/status"
)

// Tag is the 64-bit packed (pool_id, subpool_id, index,
// field-slot-encoded-as-local-ref) key naming one far local-reference
// field (spec.md §3/§6): local_ref:16 | subpool_id:16 | pool_id:16 |
// index:16.
type Tag uint64

// NewTag packs a tag. slot is the holder's local-ref field's own 16-bit
// encoding (is_long_ref=1, index=field slot number) — see spec.md §4.3
// step 5.
func NewTag(poolID, subpoolID, index uint16, slot localref.Ref) Tag {
	var w uint64
	w |= uint64(slot.Pack())
	w |= uint64(subpoolID) << 16
	w |= uint64(poolID) << 32
	w |= uint64(index) << 48
	return Tag(w)
}

// PoolID extracts the tag's pool id component.
func (t Tag) PoolID() uint16 { return uint16(uint64(t) >> 32) }

const tombstoneBit = uint64(1) << 63

// entry is one (key,value) slot, matching spec.md §4.4's 128-bit
// expansion entry (here two 64-bit Go fields rather than one packed
// 128-bit word, since Go has no native int128 — the bit contract is
// identical: key==0 means empty, the tombstone bit lives in value).
type entry struct {
	key   Tag
	value uint64
}

func (e entry) isEmpty() bool     { return e.key == 0 && e.value == 0 }
func (e entry) isTombstone() bool { return e.key == 0 && e.value&tombstoneBit != 0 }
func (e entry) isLive() bool      { return e.key != 0 }

// Table is the process-wide far-reference expansion table.
type Table struct {
	slots      []entry
	live       int
	tombstones int
}

// NewTable constructs an expansion table with initial capacity cap,
// rounded up to a power of two (minimum geometry.PAGE per spec.md §4.4's
// growth policy, but an explicit minimum of 16 here so small test tables
// don't pay a full page).
func NewTable(capacityHint int) *Table {
	cap := nextPowerOfTwo(capacityHint)
	if cap < 16 {
		cap = 16
	}
	return &Table{slots: make([]entry, cap)}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Cap returns the table's current capacity (always a power of two).
func (t *Table) Cap() int { return len(t.slots) }

// Expand looks up key and returns its stored absolute index, or
// status.ErrRefNotFound if key has no live entry (spec.md §4.4).
func (t *Table) Expand(key Tag) (uint32, error) {
	if key == 0 {
		return 0, fmt.Errorf("%w: zero key", status.ErrRefNotFound)
	}
	idx := t.probeStart(key)
	for i := 0; i < len(t.slots); i++ {
		slot := &t.slots[(idx+i)%len(t.slots)]
		if slot.isEmpty() {
			return 0, status.ErrRefNotFound
		}
		if slot.isLive() && slot.key == key {
			return uint32(slot.value &^ tombstoneBit), nil
		}
	}
	return 0, status.ErrRefNotFound
}

// Compress inserts or overwrites key -> absoluteIndex, resizing first if
// the sizing policy (spec.md §4.4) requires it.
func (t *Table) Compress(key Tag, absoluteIndex uint32) error {
	if key == 0 {
		return fmt.Errorf("colpool: expansion key must be nonzero")
	}
	if uint64(absoluteIndex)&tombstoneBit != 0 {
		return fmt.Errorf("colpool: absolute index collides with tombstone bit")
	}

	t.maybeResize()

	idx := t.probeStart(key)
	firstFree := -1
	for i := 0; i < len(t.slots); i++ {
		pos := (idx + i) % len(t.slots)
		slot := &t.slots[pos]
		switch {
		case slot.isLive() && slot.key == key:
			slot.value = uint64(absoluteIndex)
			return nil
		case slot.isEmpty():
			if firstFree == -1 {
				firstFree = pos
			}
			goto insert
		case slot.isTombstone():
			if firstFree == -1 {
				firstFree = pos
			}
		}
	}
insert:
	if firstFree == -1 {
		return fmt.Errorf("colpool: expansion table full")
	}
	wasTombstone := t.slots[firstFree].isTombstone()
	t.slots[firstFree] = entry{key: key, value: uint64(absoluteIndex)}
	t.live++
	if wasTombstone {
		t.tombstones--
	}
	return nil
}

// Delete removes key's entry, if any, turning it into a tombstone.
func (t *Table) Delete(key Tag) {
	idx := t.probeStart(key)
	for i := 0; i < len(t.slots); i++ {
		pos := (idx + i) % len(t.slots)
		slot := &t.slots[pos]
		if slot.isEmpty() {
			return
		}
		if slot.isLive() && slot.key == key {
			t.slots[pos] = entry{key: 0, value: tombstoneBit}
			t.live--
			t.tombstones++
			return
		}
	}
}

// DeleteAllForPool tombstones every entry whose decoded pool id matches
// poolID — used when a pool is destroyed or shrunk so its far
// references don't linger (spec.md §4.4, §3 invariants).
func (t *Table) DeleteAllForPool(poolID uint16) {
	for i := range t.slots {
		slot := &t.slots[i]
		if slot.isLive() && slot.key.PoolID() == poolID {
			*slot = entry{key: 0, value: tombstoneBit}
			t.live--
			t.tombstones++
		}
	}
}

func (t *Table) probeStart(key Tag) int {
	return int(Hash64(uint64(key)) % uint64(len(t.slots)))
}

// maybeResize applies spec.md §4.4's sizing policy: grow when live*2 >=
// capacity, else rebuild in place (clearing tombstones) when
// (live+tombstones)*2 >= capacity.
func (t *Table) maybeResize() {
	cap := len(t.slots)
	if t.live*2 >= cap {
		newCap := cap * 2
		if newCap < 4096 { // geometry.PAGE, avoided as an import to keep expansion standalone
			newCap = 4096
		}
		t.rehash(newCap)
		return
	}
	if (t.live+t.tombstones)*2 >= cap {
		t.rehash(cap)
	}
}

// rehash copies every live entry into a fresh slots array of size newCap
// and resets the tombstone count to zero.
func (t *Table) rehash(newCap int) {
	old := t.slots
	t.slots = make([]entry, newCap)
	t.tombstones = 0
	t.live = 0
	for _, e := range old {
		if !e.isLive() {
			continue
		}
		// Re-insert via the low-level probe, bypassing maybeResize to
		// avoid recursion during a resize.
		idx := t.probeStart(e.key)
		for i := 0; i < len(t.slots); i++ {
			pos := (idx + i) % len(t.slots)
			if t.slots[pos].isEmpty() {
				t.slots[pos] = e
				t.live++
				break
			}
		}
	}
}
