// Package status holds the sentinel errors returned across the colpool
// API. Handle-returning operations that spec.md documents as yielding
// NULL_POOL/NULL_REF/ITERATOR_END return a zero value plus one of these
// errors instead, so callers can errors.Is against a stable sentinel.
package status

import "errors"

var (
	// ErrNullPool is returned when no usable pool is available: pool_create
	// has run out of pool ids, a pool id is unknown or destroyed, or
	// pool_grow is called on a destroyed pool.
	ErrNullPool = errors.New("colpool: null pool")

	// ErrNullRef is returned when an allocation or reference lookup could
	// not produce a valid reference.
	ErrNullRef = errors.New("colpool: null reference")

	// ErrRefNotFound is returned by the expansion table when a far
	// reference's tag has no live entry.
	ErrRefNotFound = errors.New("colpool: reference not found")

	// ErrIteratorEnd signals that a cursor has no further elements.
	ErrIteratorEnd = errors.New("colpool: iterator end")

	// ErrCrossPool is returned when a reference operation spans two pools.
	// See SPEC_FULL.md Open Question (c): this is a recoverable error, not
	// an assertion, because the caller can trigger it with ordinary misuse.
	ErrCrossPool = errors.New("colpool: reference crosses pools")

	// ErrNotCompact is returned by bulkmap.FieldMap when the source pool
	// has deletion holes (list topology only).
	ErrNotCompact = errors.New("colpool: pool is not compact")

	// ErrNotSimpleIterator is returned by Cursor.Prev on non-simple cursors.
	ErrNotSimpleIterator = errors.New("colpool: prev is only defined for simple iterators")

	// ErrCollectInProgress is returned when a second collection is
	// requested on a Collector while one is already running.
	ErrCollectInProgress = errors.New("colpool: collection already in progress")

	// ErrTypeAlreadyRegistered is returned by typetable.New when two
	// descriptors declare the same type id.
	ErrTypeAlreadyRegistered = errors.New("colpool: type id already registered")

	// ErrUnknownType is returned when a type id has no row in the table.
	ErrUnknownType = errors.New("colpool: unknown type id")
)
