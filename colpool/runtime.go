package colpool

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/colpool/colpool/collector"
	"github.com/colpool/colpool/expansion"
	"github.com/colpool/colpool/geometry"
	"github.com/colpool/colpool/typetable"
)

// Runtime is the process-wide colpool context (spec.md §4.2/§5's
// "explicit runtime" resolution of the original's global mutable
// state): one type table, one geometry.Runtime, one shared expansion
// table, and one Collector, constructed once and threaded through every
// subsequent call.
type Runtime struct {
	types     *typetable.Table
	geo       *geometry.Runtime
	expansion *expansion.Table
	collector *collector.Collector

	logger Logger

	telemetry Telemetry

	// construction-time options, consumed by NewRuntime before geo/
	// expansion/collector are built.
	registerer    prometheus.Registerer
	expansionHint int
}

// NewRuntime flattens descriptors into the process type table and
// constructs the pool directory, expansion table, and collector over
// it. descriptors must have dense, unique TypeIDs (typetable.New).
func NewRuntime(descriptors []typetable.Descriptor, opts ...Option) (*Runtime, error) {
	r := &Runtime{logger: noopLogger{}, expansionHint: 4096}
	for _, o := range opts {
		o.apply(r)
	}

	table, err := typetable.New(descriptors)
	if err != nil {
		return nil, fmt.Errorf("colpool: NewRuntime: %w", err)
	}

	r.types = table
	r.geo = geometry.NewRuntime(table, r.registerer)
	r.expansion = expansion.NewTable(r.expansionHint)
	r.collector = collector.New(r.geo, r.expansion, r.registerer)

	r.logger.Info("colpool runtime initialized", "types", len(descriptors))
	return r, nil
}

// Types returns the flattened type table this Runtime was built with.
func (r *Runtime) Types() *typetable.Table { return r.types }

// Stats reports the pool count, mapped subpool count, and total reserved
// byte count across every pool in this Runtime.
func (r *Runtime) Stats() (pools int, subpools int, bytesReserved uint64) {
	return r.geo.Stats()
}

// Close releases the Runtime's resources. colpool holds no OS handles
// (pools are ordinary Go slices), so this only exists to give callers a
// symmetric lifecycle hook and a place to flush a future telemetry
// sink from.
func (r *Runtime) Close() error {
	r.logger.Info("colpool runtime closed")
	return nil
}

// PoolCreate implements spec.md §4.2's pool_create: maps a fresh pool of
// typeID, backed by one subpool.
func (r *Runtime) PoolCreate(typeID uint16) (*Pool, error) {
	p, err := r.geo.CreatePool(typeID)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("pool created", "pool_id", p.ID(), "type_id", typeID)
	if r.telemetry != nil {
		r.telemetry.Publish(telemetryEventPoolCreated, map[string]any{
			"pool_id": p.ID(),
			"type_id": typeID,
		})
	}
	return &Pool{rt: r, p: p}, nil
}

// PoolGet resolves a previously created pool by id.
func (r *Runtime) PoolGet(id geometry.PoolID) (*Pool, error) {
	p, err := r.geo.Get(id)
	if err != nil {
		return nil, err
	}
	return &Pool{rt: r, p: p}, nil
}
