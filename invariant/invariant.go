// Package invariant provides the debug-assertion helper used for
// contract violations that spec.md §7 classifies as "structural misuse"
// (not a recoverable runtime condition): setting a reference across
// pools after the caller already bypassed the recoverable error path,
// calling an operation against a cleared handle, and similar cases where
// continuing would corrupt pool state silently.
package invariant

import "fmt"

// Check panics with a formatted message when cond is false. It is the
// Go analogue of the original's debug assertions: always compiled in,
// since colpool has no separate "release" build mode, but reserved for
// conditions that indicate a programming error rather than bad input.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("colpool: invariant violated: "+format, args...))
	}
}
