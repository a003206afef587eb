// Package localref defines the 16-bit local-reference bit layout shared
// by refcodec (which decides near vs. far and reads/writes these bits
// into a pool's reference lane) and expansion (whose Tag embeds a
// local-ref-shaped 16-bit slot encoding, spec.md §4.4's
// "field-slot-encoded-as-local-ref"). Splitting the bit layout into its
// own package avoids a refcodec<->expansion import cycle, since each
// needs to both produce and consume this 16-bit shape.
package localref

// Ref is the 16-bit local reference: index:13 (signed) | is_long_ref:1 |
// gc_state:2 (spec.md §3/§6).
type Ref struct {
	Index      int16 // significant range [-4096, 4095]
	IsLongRef  bool
	GCState    uint8 // 2 bits significant
}

const (
	indexBits = 13
	indexSign = 1 << (indexBits - 1) // 0x1000
	indexMask = 1<<indexBits - 1     // 0x1FFF
)

// Zero is the null/empty-slot encoding: is_long_ref=0, index=0.
var Zero = Ref{}

// Pack encodes r into its 16-bit wire form.
func (r Ref) Pack() uint16 {
	var w uint16
	w |= uint16(r.Index) & indexMask
	if r.IsLongRef {
		w |= 1 << indexBits
	}
	w |= uint16(r.GCState&0x3) << (indexBits + 1)
	return w
}

// Unpack decodes a 16-bit wire local reference, sign-extending the
// 13-bit index field.
func Unpack(w uint16) Ref {
	raw := w & indexMask
	idx := int16(raw)
	if raw&indexSign != 0 {
		idx -= 1 << indexBits // sign-extend
	}
	return Ref{
		Index:     idx,
		IsLongRef: (w>>indexBits)&1 != 0,
		GCState:   uint8((w >> (indexBits + 1)) & 0x3),
	}
}

// IsNull reports whether r is the null reference: near (not long) and a
// zero delta (spec.md §3).
func (r Ref) IsNull() bool {
	return !r.IsLongRef && r.Index == 0
}
