package colpool

import "github.com/colpool/colpool/collector"

// Root is one entry of the caller's root stack (spec.md §4.7): the
// current reference to a structure's entry point within p, plus a
// callback invoked once the structure has moved so the caller can
// rewrite wherever it keeps that reference. This is colpool's surface
// equivalent of the original's "pointer to a reference-valued location"
// — see collector.Root's doc comment for why a closure stands in for
// it here.
type Root struct {
	Ref    Handle
	IsNull bool
	Set    func(Handle)
}

// CollectPool implements spec.md §4.7's collect_pool: moves every
// structure reachable from roots into a freshly compacted pool, then
// installs that pool's storage in place of p's (p's id and the *Pool
// value remain valid across the call). Only one collection may run on a
// given Runtime at a time; a concurrent call returns
// status.ErrCollectInProgress.
func (rt *Runtime) CollectPool(p *Pool, roots []Root) error {
	crs := make([]collector.Root, len(roots))
	for i, r := range roots {
		r := r
		crs[i] = collector.Root{
			Abs:    p.p.AbsIndex(r.Ref),
			IsNull: r.IsNull,
			Set:    r.Set,
		}
	}

	poolID := p.p.ID()
	if rt.telemetry != nil {
		rt.telemetry.Publish(telemetryEventCollectStarted, map[string]any{"pool_id": poolID})
	}
	err := rt.collector.CollectPool(p.p, crs)
	if rt.telemetry != nil {
		rt.telemetry.Publish(telemetryEventCollectCompleted, map[string]any{
			"pool_id": poolID,
			"error":   errString(err),
		})
	}
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
