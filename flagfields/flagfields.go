// Package flagfields implements the standalone offset-computation utility
// named in spec.md §4.3: given a flag word and an ordered field descriptor,
// compute the byte offset of each enabled field. It has no dependency on
// the rest of the engine and is usable on its own.
package flagfields

// FieldDescriptor describes one possible optional field, in the fixed order
// the owning header declares them (spec.md §3 "Flag-Fields"): "the order of
// the descriptor defines the field order — when flag i is set, field i
// occupies field_size[i] bytes immediately after any preceding enabled
// field."
type FieldDescriptor struct {
	// Mask is tested against the flag word; the field is enabled when
	// flags&Mask == Mask.
	Mask uint64
	// Size is the field's width in bytes when enabled.
	Size int
}

// Offsets computes, for each entry in descriptor, the byte offset of that
// field relative to the start of the fields area, or -1 if the
// corresponding flag bit is clear (spec.md §4.3).
func Offsets(flags uint64, descriptor []FieldDescriptor) []int {
	offsets := make([]int, len(descriptor))
	running := 0
	for i, d := range descriptor {
		if flags&d.Mask != d.Mask {
			offsets[i] = -1
			continue
		}
		offsets[i] = running
		running += d.Size
	}
	return offsets
}
