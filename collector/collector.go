// Package collector implements the topology-aware compacting collector
// (spec.md C7): one pool at a time, moving every structure reachable
// from a caller-supplied root stack into a fresh pool and updating each
// root in place.
package collector

import (
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/iterator"
	"github.com/colpool/colpool/status"
)

// Root is one entry in the caller's root stack: the absolute index of a
// structure's current entry point, plus a callback that rewrites
// whatever external state held that reference once the structure has
// moved (spec.md §4.7 step 4, "update each root to its new reference").
// This stands in for the original's "pointer to its own reference-valued
// location" — Go has no address-of-arbitrary-field equivalent, so the
// rewrite is expressed as a closure instead.
type Root struct {
	Abs    uint32
	IsNull bool
	Set    func(geometry.Handle)
}

// Collector owns the one-at-a-time collection guard spec.md §4.7's
// "State" paragraph describes ("only one collection may be in progress
// at a time"). A real root stack and its own auxiliary pool (gc_init)
// are replaced here by an ordinary mutex — colpool never needs the root
// stack to outlive a single CollectPool call, so there is no shared
// storage left to reserve up front.
type Collector struct {
	runtime *geometry.Runtime
	table   *expansion.Table
	metrics *Metrics

	mu         sync.Mutex
	inProgress bool
}

// New constructs a Collector over runtime's pools and the shared
// expansion table. reg may be nil.
func New(runtime *geometry.Runtime, table *expansion.Table, reg prometheus.Registerer) *Collector {
	return &Collector{runtime: runtime, table: table, metrics: NewMetrics(reg)}
}

// CollectPool implements spec.md §4.7's collect_pool. roots must name
// only entry points into pool; pushing a root from a different pool is
// caller error (undefined per spec.md §7's "structural misuse" class —
// colpool does not attempt to detect it, since doing so would require
// tagging every root with its owning pool id for a check with no
// recovery path anyway).
//
// Only one CollectPool may run at a time across this Collector;
// attempting a second concurrent call returns
// status.ErrCollectInProgress rather than blocking, so a caller that
// accidentally re-enters notices immediately instead of deadlocking.
//
// On success pool's identity (ID) is preserved but its storage is
// replaced with the compacted image (Pool.AdoptFrom), so callers holding
// *geometry.Pool need not swap their pointer — only previously-taken
// Handles into the old layout are invalidated, exactly as the roots
// mechanism assumes.
//
// Any error here leaves pool untouched but aborts with roots already
// rewritten for the structures processed so far — spec.md §4.7's
// "Failure" paragraph: this is documented as unrecoverable, and the
// caller is expected to terminate rather than continue operating on a
// partially-migrated root set.
func (c *Collector) CollectPool(pool *geometry.Pool, roots []Root) error {
	c.mu.Lock()
	if c.inProgress {
		c.mu.Unlock()
		return status.ErrCollectInProgress
	}
	c.inProgress = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inProgress = false
		c.mu.Unlock()
	}()

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.collectDuration.Observe(time.Since(start).Seconds())
			c.metrics.collectionsTotal.Inc()
		}
	}()

	row := pool.Row()
	kind := iterator.KindForRefFieldCount(row.RefFieldCount)
	if kind == iterator.Simple {
		return fmt.Errorf("colpool: collect_pool: topology %v has no roots to move", kind)
	}

	dst, err := c.runtime.CreatePool(pool.TypeID())
	if err != nil {
		return fmt.Errorf("colpool: collect_pool: %w", err)
	}

	seen := mapset.NewThreadUnsafeSet[uint32]()
	for _, root := range roots {
		if root.IsNull {
			continue
		}
		if seen.Contains(root.Abs) {
			continue
		}
		seen.Add(root.Abs)

		var newAbs uint32
		var newIsNull bool
		switch kind {
		case iterator.List:
			newAbs, newIsNull, err = moveList(pool, dst, c.table, row, root.Abs, false)
		case iterator.Btree:
			newAbs, newIsNull, err = moveBtree(pool, dst, c.table, row, root.Abs, false)
		case iterator.Ntree:
			newAbs, newIsNull, err = moveNtree(pool, dst, c.table, row, root.Abs, false)
		}
		if err != nil {
			c.runtime.Discard(dst.ID())
			return fmt.Errorf("colpool: collect_pool: %w", err)
		}
		if root.Set != nil && !newIsNull {
			root.Set(pool.HandleFromAbs(newAbs))
		}
	}

	c.table.DeleteAllForPool(uint16(pool.ID()))
	pool.AdoptFrom(dst)
	c.runtime.Discard(dst.ID())
	c.runtime.Replace(pool.ID(), pool)
	return nil
}
