package geometry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/colpool/colpool/bitset"
	"github.com/colpool/colpool/status"
	"github.com/colpool/colpool/typetable"
)

// Metrics are the pool-geometry gauges/counters exported to Prometheus,
// generalizing differ.StateDiffer's injected-Registerer pattern
// (differ/differ.go's NewMetrics(cfg.Registry)) to pool lifecycle
// events instead of protocol diffs.
type Metrics struct {
	poolsCreated   prometheus.Counter
	subpoolsMapped prometheus.Gauge
	bytesReserved  prometheus.Gauge
}

// NewMetrics registers the geometry gauges/counters against reg. reg may
// be nil, in which case metrics calls are no-ops — mirroring
// prometheus.NewRegistry()'s own tolerance of a nil Registerer in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "colpool_pools_created_total",
			Help: "Number of pools created over the process lifetime.",
		}),
		subpoolsMapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colpool_subpools_mapped",
			Help: "Number of subpools currently mapped across all pools.",
		}),
		bytesReserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colpool_bytes_reserved",
			Help: "Bytes reserved across all mapped subpool lanes.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.poolsCreated, m.subpoolsMapped, m.bytesReserved)
	}
	return m
}

// Runtime owns the process-wide pool directory and the monotonic pool
// id counter. Per spec.md §5, pool_create may be called concurrently by
// multiple callers, so the counter is bumped with a relaxed-ordering
// atomic; every other operation on a given Pool assumes the caller holds
// exclusive access to it (single-writer), exactly as spec.md states.
//
// This replaces the original's global mutable state (type table, pool
// counter) with an explicit value the caller constructs and threads
// through — REDESIGN FLAGS "Process-wide mutable state", resolved in
// favor of an explicit runtime context.
type Runtime struct {
	table       *typetable.Table
	nextPoolID  atomic.Uint32
	metrics     *Metrics
	mu          sync.Mutex // guards pools map membership, not per-pool mutation
	pools       map[PoolID]*Pool
}

// NewRuntime constructs a Runtime over the given type table.
func NewRuntime(table *typetable.Table, reg prometheus.Registerer) *Runtime {
	r := &Runtime{
		table:   table,
		metrics: NewMetrics(reg),
		pools:   make(map[PoolID]*Pool),
	}
	r.nextPoolID.Store(1) // pool ids are 1-based, spec.md §4.2
	return r
}

// Table returns the runtime's type table.
func (r *Runtime) Table() *typetable.Table { return r.table }

// CreatePool reserves the next pool id and maps its first subpool
// (spec.md §4.2's pool_create). The pool id reservation is lock-free;
// registering it into the pool directory is serialized by r.mu, which is
// uncontended in the common single-collector-thread case.
func (r *Runtime) CreatePool(typeID uint16) (*Pool, error) {
	row, err := r.table.Row(typeID)
	if err != nil {
		return nil, err
	}

	n := r.nextPoolID.Add(1) - 1
	if n > 0xFFFF {
		// Counter ran past uint16 range: no more pool ids available.
		return nil, fmt.Errorf("%w: pool id space exhausted", status.ErrNullPool)
	}
	id := PoolID(n)

	p := &Pool{
		id:       id,
		typeID:   typeID,
		row:      row,
		subpools: []subpool{newSubpool(row)},
		compact:  true,
		holes:    bitset.NewBitSet(PAGE),
	}

	r.mu.Lock()
	r.pools[id] = p
	r.mu.Unlock()

	r.metrics.poolsCreated.Inc()
	r.refreshGauges()
	return p, nil
}

// Get returns the pool registered under id.
func (r *Runtime) Get(id PoolID) (*Pool, error) {
	r.mu.Lock()
	p, ok := r.pools[id]
	r.mu.Unlock()
	if !ok || p.destroyed {
		return nil, fmt.Errorf("%w: pool %d", status.ErrNullPool, id)
	}
	return p, nil
}

// Destroy unmaps pool id's storage and removes it from the directory.
func (r *Runtime) Destroy(id PoolID) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	p.Destroy()

	r.mu.Lock()
	delete(r.pools, id)
	r.mu.Unlock()

	r.refreshGauges()
	return nil
}

// Replace atomically swaps the pool registered under id for fresh —
// used by the collector to install a compacted pool in place of the one
// it just traversed (spec.md §4.7 step 5).
func (r *Runtime) Replace(id PoolID, fresh *Pool) {
	r.mu.Lock()
	r.pools[id] = fresh
	r.mu.Unlock()
	r.refreshGauges()
}

// Discard removes id from the pool directory without clearing its
// storage. Used by the collector once it has copied a scratch pool's
// subpools into the pool being collected via Pool.AdoptFrom, so the
// scratch pool's id doesn't linger in Get lookups or metrics.
func (r *Runtime) Discard(id PoolID) {
	r.mu.Lock()
	delete(r.pools, id)
	r.mu.Unlock()
	r.refreshGauges()
}

// Stats reports the pool count, mapped subpool count, and total reserved
// bytes across every pool this Runtime directs — the same figures
// refreshGauges exports to Prometheus, returned directly for callers
// (colpoolctl's diag command) that want them without scraping metrics.
func (r *Runtime) Stats() (pools int, subpools int, bytesReserved uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		subpools += len(p.subpools)
		bytesReserved += uint64(len(p.subpools)) * uint64(p.row.TypeSize) * PAGE
	}
	return len(r.pools), subpools, bytesReserved
}

func (r *Runtime) refreshGauges() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subpools, bytes uint64
	for _, p := range r.pools {
		subpools += uint64(len(p.subpools))
		bytes += uint64(len(p.subpools)) * uint64(p.row.TypeSize) * PAGE
	}
	r.metrics.subpoolsMapped.Set(float64(subpools))
	r.metrics.bytesReserved.Set(float64(bytes))
}
