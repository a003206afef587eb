package geometry

import (
	"fmt"

	"github.com/colpool/colpool/bitset"
	"github.com/colpool/colpool/status"
	"github.com/colpool/colpool/typetable"
)

// subpoolWords is the number of bitset words one subpool's worth of
// per-record hole tracking needs: PAGE records, one bit each, PAGE is a
// clean multiple of 64 (4096/64 = 64).
const subpoolWords = PAGE / 64

// subpool holds one page's worth of column-striped storage: one
// contiguous byte lane per flattened field, each PAGE*fieldSize bytes.
// This stands in for the original's fixed-virtual-address mapping — see
// SPEC_FULL.md §3 / REDESIGN FLAGS "Fixed virtual addresses": the handle
// bit layout is unchanged, but the bytes live in ordinary Go slices
// rather than at pool_id<<32.
type subpool struct {
	lanes [][]byte // lanes[fieldIndex] has len Row.Fields[fieldIndex].Size * PAGE
}

func newSubpool(row typetable.Row) subpool {
	lanes := make([][]byte, len(row.Fields))
	for i, f := range row.Fields {
		lanes[i] = make([]byte, f.Size*PAGE)
	}
	return subpool{lanes: lanes}
}

// Pool is one type-homogeneous, column-striped address range (spec.md
// §3/§4.2).
type Pool struct {
	id         PoolID
	typeID     uint16
	row        typetable.Row
	subpools   []subpool
	population uint64 // total allocated records across all subpools
	destroyed  bool
	compact    bool // false once a list-topology deletion has left a hole

	// holes marks, one bit per absolute index, which records a list-
	// topology RemoveAfter has logically deleted (spec.md §4.9:
	// "deletion is effectively free", reclaimed only by collection).
	// compact already answers "any holes at all"; holes/holeCount answer
	// "which ones and how many", for diagnostics and for a future
	// reclamation heuristic that wants more than a single bit.
	holes     bitset.BitSet
	holeCount int
}

// ID returns the pool's id.
func (p *Pool) ID() PoolID { return p.id }

// TypeID returns the registered type this pool allocates.
func (p *Pool) TypeID() uint16 { return p.typeID }

// Row returns the flattened type row this pool was created with.
func (p *Pool) Row() typetable.Row { return p.row }

// Population returns the number of records currently allocated (the
// population cursor, rewound by Shrink and reset by a collection),
// including any that are no longer reachable from a
// list topology's root (spec.md §4.9: removal is "effectively free" and
// does not shrink the population until collection).
func (p *Pool) Population() uint64 { return p.population }

// SubpoolCount returns the number of mapped subpools.
func (p *Pool) SubpoolCount() int { return len(p.subpools) }

// Compact reports whether the pool has no deletion holes (spec.md §4.6:
// bulkmap.FieldMap requires this). True until a list cursor's
// RemoveAfter marks it false; a fresh pool built by the collector starts
// compact again.
func (p *Pool) Compact() bool { return p.compact }

// SetCompact marks the pool's compactness directly. The collector does
// not call it (AdoptFrom marks an installed pool compact itself), and
// list-topology removal tracks holes individually via MarkHole instead.
func (p *Pool) SetCompact(v bool) { p.compact = v }

// MarkHole records that absIdx's record has been logically deleted from
// its list topology (iterator.Cursor.RemoveAfter) and marks the pool
// non-compact. Idempotent.
func (p *Pool) MarkHole(absIdx uint32) {
	if !p.holes.IsSet(uint64(absIdx)) {
		p.holes.Set(uint64(absIdx))
		p.holeCount++
	}
	p.compact = false
}

// IsHole reports whether absIdx has been marked deleted by MarkHole.
func (p *Pool) IsHole(absIdx uint32) bool {
	return p.holes.IsSet(uint64(absIdx))
}

// HoleCount returns the number of records MarkHole has marked deleted
// since the pool was last compacted.
func (p *Pool) HoleCount() int { return p.holeCount }

// growHoles extends the holes bitmap by one subpool's worth of bits
// (all clear) for each newly mapped subpool, keeping it sized exactly
// to len(subpools)*PAGE bits.
func (p *Pool) growHoles(newSubpoolCount int) {
	for i := 0; i < newSubpoolCount; i++ {
		p.holes = append(p.holes, make(bitset.BitSet, subpoolWords)...)
	}
}

// Full reports whether the population cursor sits exactly on a subpool
// boundary with at least one full subpool behind it — the corner case
// spec.md §3 calls out as "index==0 && subpool full". Computed on every
// call rather than stored, resolving Open Question (b): there is no
// stale-bit interaction to document because there is no stored bit.
func (p *Pool) Full() bool {
	return p.population > 0 && p.population%PAGE == 0
}

// Cursor returns the population cursor as a Handle naming the next free
// slot (not yet allocated).
func (p *Pool) Cursor() Handle {
	subpoolID := uint16(p.population / PAGE)
	index := uint16(p.population % PAGE)
	return Handle{
		TypeID:    p.typeID,
		SubpoolID: subpoolID,
		PoolID:    p.id,
		Index:     index,
		Full:      p.Full(),
	}
}

// AbsIndex returns h's absolute index within this pool (spec.md
// GLOSSARY: subpool_id*PAGE + index).
func (p *Pool) AbsIndex(h Handle) uint32 {
	return uint32(h.SubpoolID)*PAGE + uint32(h.Index)
}

// HandleFromAbs builds a Handle for this pool's absolute index absIdx,
// with the reference gc_state/extended bits cleared.
func (p *Pool) HandleFromAbs(absIdx uint32) Handle {
	return Handle{
		TypeID:    p.typeID,
		SubpoolID: uint16(absIdx / PAGE),
		PoolID:    p.id,
		Index:     uint16(absIdx % PAGE),
	}
}

// IsOccupied reports whether absIdx names a record within the
// population cursor (it may still be logically deleted from a list
// topology; storage is only reclaimed by collection, spec.md §4.9).
func (p *Pool) IsOccupied(absIdx uint32) bool {
	return uint64(absIdx) < p.population
}

// Grow extends the population cursor by n records, mapping
// ceil((n-freeInLastSubpool)/PAGE) new subpools as needed (spec.md
// §4.2), and returns the pre-advance cursor as the first of the n new
// records.
func (p *Pool) Grow(n int) (Handle, error) {
	if p.destroyed {
		return Handle{}, fmt.Errorf("%w: pool destroyed", status.ErrNullPool)
	}
	if n <= 0 {
		return Handle{}, fmt.Errorf("grow count must be positive, got %d", n)
	}

	start := p.Cursor()

	freeInLast := 0
	if len(p.subpools) > 0 {
		freeInLast = PAGE - int(p.population%PAGE)
		if p.population%PAGE == 0 && p.population > 0 {
			freeInLast = 0
		}
	}

	need := n - freeInLast
	if need > 0 {
		extra := (need + PAGE - 1) / PAGE
		for i := 0; i < extra; i++ {
			p.subpools = append(p.subpools, newSubpool(p.row))
		}
		p.growHoles(extra)
	} else if len(p.subpools) == 0 {
		p.subpools = append(p.subpools, newSubpool(p.row))
		p.growHoles(1)
	}

	p.population += uint64(n)
	return start, nil
}

// Alloc is Grow(1), returning the freshly allocated record's reference.
func (p *Pool) Alloc() (Handle, error) {
	h, err := p.Grow(1)
	if err != nil {
		return Handle{}, fmt.Errorf("%w", status.ErrNullRef)
	}
	return h, nil
}

// Shrink rewinds the population cursor by n records and unmaps any
// subpool that becomes entirely empty, except the pool's initial
// subpool, which is never unmapped (spec.md §4.2).
func (p *Pool) Shrink(n int) error {
	if n < 0 || uint64(n) > p.population {
		return fmt.Errorf("shrink count %d out of range for population %d", n, p.population)
	}
	p.population -= uint64(n)

	keepSubpools := 1
	if p.population > 0 {
		keepSubpools = int((p.population+PAGE-1)/PAGE)
		if keepSubpools < 1 {
			keepSubpools = 1
		}
	}
	if keepSubpools < len(p.subpools) {
		p.subpools = p.subpools[:keepSubpools]
		if keepSubpools*subpoolWords < len(p.holes) {
			p.holes = p.holes[:keepSubpools*subpoolWords]
		}
	}
	return nil
}

// Destroy unmaps every subpool and clears the pool's storage. The Pool
// value is marked destroyed=true so that a caller still holding the
// pointer gets status.ErrNullPool from Grow instead of a nil pointer
// dereference; Runtime.Destroy removes it from the pool directory.
func (p *Pool) Destroy() {
	p.subpools = nil
	p.population = 0
	p.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (p *Pool) Destroyed() bool { return p.destroyed }

// AdoptFrom replaces p's storage with other's, preserving p's own id so
// handles and pointers callers already hold into this pool stay valid
// across a compaction (spec.md §4.7 step 5, "install the new pool
// handle") without requiring every caller to swap its own pointer.
// other is expected to be a scratch pool nobody else references; the
// collector discards its registry entry separately (Runtime.Discard).
func (p *Pool) AdoptFrom(other *Pool) {
	p.subpools = other.subpools
	p.population = other.population
	p.compact = true
	p.destroyed = false
	p.holes = other.holes
	p.holeCount = other.holeCount
}

// FieldBytes returns the byte slice backing field fieldIdx of the record
// at absIdx — a slice directly into the subpool's lane, so writes are
// visible immediately and no copy is made (spec.md §4.2's "handful of
// shifts and adds" hot path: subpool/lane lookup plus one slice).
func (p *Pool) FieldBytes(absIdx uint32, fieldIdx int) []byte {
	subpoolID := absIdx / PAGE
	index := absIdx % PAGE
	lane := p.subpools[subpoolID].lanes[fieldIdx]
	size := p.row.Fields[fieldIdx].Size
	start := int(index) * size
	return lane[start : start+size]
}

// RecordBase returns the logical record-base address for subpoolID,
// following spec.md §4.2's address-derivation formula exactly:
// pool_id*2^32 + subpool_id*(type_size*PAGE). This is never used to
// actually access memory (storage is column-striped Go slices, not a
// real mapping — see SPEC_FULL.md's "Fixed virtual addresses" note) but
// is exposed so the §8 "get_field returns an address strictly within
// the mapped range" property can be checked directly.
func (p *Pool) RecordBase(subpoolID uint16) uint64 {
	return uint64(p.id)<<32 + uint64(subpoolID)*uint64(p.row.TypeSize)*PAGE
}

// LogicalFieldAddress returns the logical byte address of field fieldIdx
// of the record at absIdx, per spec.md §4.2.
func (p *Pool) LogicalFieldAddress(absIdx uint32, fieldIdx int) uint64 {
	subpoolID := uint16(absIdx / PAGE)
	index := uint16(absIdx % PAGE)
	f := p.row.Fields[fieldIdx]
	return p.RecordBase(subpoolID) + uint64(f.ByteOffset)*PAGE + uint64(f.Size)*uint64(index)
}

// MappedRange returns [lo, hi) of the logical addresses this pool
// currently has mapped, spanning every mapped subpool.
func (p *Pool) MappedRange() (lo, hi uint64) {
	lo = p.RecordBase(0)
	hi = p.RecordBase(uint16(len(p.subpools))) // one past the last mapped subpool
	return lo, hi
}
