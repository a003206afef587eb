package geometry

import "github.com/cespare/xxhash/v2"

// Checksum returns a stable digest over every occupied byte of every
// lane in the pool, in (field, subpool, byte) order. It is a diagnostic
// tool only: nothing in colpool depends on its value, and the geometry
// tests check only that it changes when field data changes. Deliberately
// independent of the expansion table's mandated Wang/Jenkins mixer
// (expansion.Hash64): that algorithm is pinned by spec.md §4.4 for the
// probe sequence's correctness, not chosen for speed, whereas this
// digest has no correctness contract to preserve.
func (p *Pool) Checksum() uint64 {
	h := xxhash.New()
	occupied := p.population
	for fieldIdx, f := range p.row.Fields {
		remaining := occupied
		for _, sp := range p.subpools {
			n := remaining
			if n > PAGE {
				n = PAGE
			}
			lane := sp.lanes[fieldIdx]
			_, _ = h.Write(lane[:uint64(f.Size)*n])
			remaining -= n
			if remaining == 0 {
				break
			}
		}
	}
	return h.Sum64()
}
