package colpool

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Runtime at construction time. The interface method
// is unexported so a Runtime's configuration can't be mutated after
// NewRuntime returns, mirroring chains/ethereum/client.go's Option shape.
type Option interface {
	apply(*Runtime)
}

type funcOption func(*Runtime)

func (f funcOption) apply(r *Runtime) {
	f(r)
}

func newOption(f func(*Runtime)) Option {
	return funcOption(f)
}

// WithLogger sets the Runtime's Logger. Defaults to a no-op logger; a
// nil logger keeps the no-op default.
func WithLogger(logger Logger) Option {
	return newOption(func(r *Runtime) {
		if logger == nil {
			return
		}
		r.logger = logger
	})
}

// WithRegisterer sets the Prometheus registry pool/collector metrics are
// registered against. Defaults to nil (metrics calls become no-ops).
func WithRegisterer(reg prometheus.Registerer) Option {
	return newOption(func(r *Runtime) {
		r.registerer = reg
	})
}

// WithExpansionTableHint sets the initial capacity hint for the shared
// expansion table (spec.md §4.4). Defaults to 4096, the table's own
// minimum growth increment.
func WithExpansionTableHint(capacityHint int) Option {
	return newOption(func(r *Runtime) {
		r.expansionHint = capacityHint
	})
}

// Event type names published through Telemetry, matching
// colpooltelemetry's own constants so a wired *colpooltelemetry.Hub
// needs no translation layer.
const (
	telemetryEventPoolCreated      = "pool_created"
	telemetryEventPoolDestroyed    = "pool_destroyed"
	telemetryEventCollectStarted   = "collect_started"
	telemetryEventCollectCompleted = "collect_completed"
)

// Telemetry publishes pool/collector lifecycle events. *colpooltelemetry.Hub
// satisfies this structurally; colpool never imports colpooltelemetry
// directly so the ambient event stream stays optional.
type Telemetry interface {
	Publish(eventType string, payload any)
}

// WithTelemetry wires a Telemetry publisher. Defaults to nil, in which
// case lifecycle events are not emitted.
func WithTelemetry(t Telemetry) Option {
	return newOption(func(r *Runtime) {
		r.telemetry = t
	})
}
