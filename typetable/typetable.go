// Package typetable implements the type table (spec.md C1): flattening
// nested composite type descriptors into field-offset arrays, published
// read-only for the lifetime of a Runtime.
//
// Grounded on protocols/poolregistry/registry.go and
// protocols/uniswapv2/registry.go's registry-of-typed-records shape,
// generalized from a single hardcoded struct to an arbitrary, caller
// supplied set of composite descriptors.
package typetable

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/colpool/colpool/status"
)

// Class is the tag of a type descriptor.
type Class uint8

const (
	// Primitive is a fixed-size value type with no references.
	Primitive Class = iota
	// GlobalRef refers to any pool; always 8 bytes.
	GlobalRef
	// LocalRef refers to a record in the same pool; always 2 bytes.
	LocalRef
	// Composite is an ordered list of child descriptors, flattened
	// recursively into the owning row's field sequence.
	Composite
)

func (c Class) String() string {
	switch c {
	case Primitive:
		return "primitive"
	case GlobalRef:
		return "global_ref"
	case LocalRef:
		return "local_ref"
	case Composite:
		return "composite"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Sizes of the two reference classes, per spec.md §3.
const (
	GlobalRefSize = 8
	LocalRefSize  = 2
)

// Descriptor is the caller-supplied shape of one type. TypeID must be
// dense and unique across the set passed to New. RefereeTypeID is only
// meaningful for LocalRef/GlobalRef; Children only for Composite;
// PrimitiveSize only for Primitive.
type Descriptor struct {
	TypeID        uint16
	Class         Class
	PrimitiveSize int
	RefereeTypeID uint16
	Children      []Descriptor
}

// FieldSlot is one flattened field of a row: a primitive or reference
// occupying Size bytes at ByteOffset within the record.
type FieldSlot struct {
	Class         Class
	RefereeTypeID uint16 // meaningful for LocalRef/GlobalRef fields only
	Size          int
	ByteOffset    int
}

// Row is the published, read-only-after-build description of one
// registered type.
type Row struct {
	TypeID        uint16
	Class         Class
	RefereeTypeID uint16 // meaningful if Class is LocalRef/GlobalRef at top level
	TypeSize      int
	FieldCount    int
	Fields        []FieldSlot

	// RefFieldCount is the number of leading fields that are LocalRef
	// fields. Iterators and the collector dispatch on this count (0 =
	// simple, 1 = list, 2 = binary tree, >=3 = n-ary), per spec.md §4.5;
	// by convention (spec.md §4.5) reference fields are flattened first.
	RefFieldCount int
}

// Table is the process-wide, read-only-after-New type table.
type Table struct {
	rows map[uint16]Row
}

// New flattens descriptors into a Table. Each composite's field sequence
// is computed by recursive traversal (pass one: sizes and counts; pass
// two: byte offsets as a running sum), matching spec.md §4.1 exactly.
// The returned Table is never mutated; New returns an error rather than
// panicking so that a caller registering types from configuration can
// report it normally.
func New(descriptors []Descriptor) (*Table, error) {
	seen := mapset.NewThreadUnsafeSet[uint16]()
	rows := make(map[uint16]Row, len(descriptors))

	for _, d := range descriptors {
		if seen.Contains(d.TypeID) {
			return nil, fmt.Errorf("%w: type id %d", status.ErrTypeAlreadyRegistered, d.TypeID)
		}
		seen.Add(d.TypeID)

		fields, err := flatten(d)
		if err != nil {
			return nil, fmt.Errorf("type id %d: %w", d.TypeID, err)
		}

		offset := 0
		for i := range fields {
			fields[i].ByteOffset = offset
			offset += fields[i].Size
		}

		refFieldCount := 0
		for _, f := range fields {
			if f.Class != LocalRef {
				break
			}
			refFieldCount++
		}

		rows[d.TypeID] = Row{
			TypeID:        d.TypeID,
			Class:         d.Class,
			RefereeTypeID: d.RefereeTypeID,
			TypeSize:      offset,
			FieldCount:    len(fields),
			Fields:        fields,
			RefFieldCount: refFieldCount,
		}
	}

	return &Table{rows: rows}, nil
}

// flatten recursively expands d into its ordered, non-composite field
// sequence. Offsets are not assigned here; New fills them in a second
// pass over the complete sequence, per spec.md §4.1.
func flatten(d Descriptor) ([]FieldSlot, error) {
	switch d.Class {
	case Primitive:
		if d.PrimitiveSize <= 0 {
			return nil, fmt.Errorf("primitive type must have positive size, got %d", d.PrimitiveSize)
		}
		return []FieldSlot{{Class: Primitive, Size: d.PrimitiveSize}}, nil
	case GlobalRef:
		return []FieldSlot{{Class: GlobalRef, RefereeTypeID: d.RefereeTypeID, Size: GlobalRefSize}}, nil
	case LocalRef:
		return []FieldSlot{{Class: LocalRef, RefereeTypeID: d.RefereeTypeID, Size: LocalRefSize}}, nil
	case Composite:
		out := make([]FieldSlot, 0, len(d.Children))
		for _, c := range d.Children {
			sub, err := flatten(c)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown type class %v", d.Class)
	}
}

// Row returns the published row for typeID.
func (t *Table) Row(typeID uint16) (Row, error) {
	r, ok := t.rows[typeID]
	if !ok {
		return Row{}, fmt.Errorf("%w: %d", status.ErrUnknownType, typeID)
	}
	return r, nil
}

// MustRow is Row but panics on an unknown type id; reserved for call
// sites that already validated the id (e.g. a Handle decoded from a
// pool the Runtime itself created).
func (t *Table) MustRow(typeID uint16) Row {
	r, err := t.Row(typeID)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of registered types.
func (t *Table) Len() int { return len(t.rows) }
