package expansion

// Hash64 is the 64-bit mixing function prescribed by spec.md §4.4
// (Wang/Jenkins style). It is implemented exactly as specified rather
// than swapped for a library hash (e.g. xxhash, used elsewhere in this
// module for diagnostics — see geometry.Pool.Checksum) because several
// §8 testable properties pin the table's probe-sequence behavior, which
// depends on this exact mixer.
func Hash64(k uint64) uint64 {
	k = ^k + (k << 21)
	k ^= k >> 24
	k = (k + (k << 3)) + (k << 8)
	k ^= k >> 14
	k = (k + (k << 2)) + (k << 4)
	k ^= k >> 28
	k += k << 31
	return k
}
