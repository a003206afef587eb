// Package iterator implements colpool's four topology-specialised
// cursors (spec.md C5/C9), selected by a row's leading local-reference
// field count.
package iterator

// Kind names a cursor's traversal topology (spec.md §4.5).
type Kind uint8

const (
	// Simple strides the absolute-index space linearly (0 ref fields).
	Simple Kind = iota
	// List follows a single forward reference field, stopping at null.
	List
	// Btree performs an in-order walk over two leading ref fields.
	Btree
	// Ntree performs a pre-order walk over three or more leading ref
	// fields.
	Ntree
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case List:
		return "list"
	case Btree:
		return "btree"
	case Ntree:
		return "ntree"
	default:
		return "unknown"
	}
}

// KindForRefFieldCount classifies a row's topology, mirroring the
// collector's own classification (spec.md §4.5, §4.7 step 2): 0 refs is
// simple, 1 is list, 2 is btree, 3 or more is ntree.
func KindForRefFieldCount(n int) Kind {
	switch {
	case n == 0:
		return Simple
	case n == 1:
		return List
	case n == 2:
		return Btree
	default:
		return Ntree
	}
}

// refEnd is the complex cursor's REF_END sentinel: no valid absolute
// index ever equals it in practice, since ^uint32(0) would require more
// than four billion live records in a single pool.
const refEnd = ^uint32(0)
