package xdp2

import (
	"github.com/xdp2-go/xdp2/flagfields"
	"github.com/xdp2-go/xdp2/internal/dtable"
)

// FlagFieldsOps extends a [ProtoDef] with the callbacks the flag-field
// sub-loop needs (spec.md §3 "Flag-Fields add ...").
type FlagFieldsOps struct {
	// GetFlags reads the flag word out of the header.
	GetFlags func(hdr []byte) uint64
	// StartFieldsOffset returns the byte offset, within hdr, one past the
	// fixed part of the header — where the optional fields begin.
	StartFieldsOffset func(hdr []byte) int
	// Descriptor is the ordered flag-mask/field-size table that defines
	// field order and size (spec.md §3 "Flag-Fields").
	Descriptor []flagfields.FieldDescriptor
}

// FlagFieldNode holds the callbacks run over one enabled field's bytes.
type FlagFieldNode struct {
	Name string
	Ops  Ops // PostHandler is not used for flag fields.
}

// FlagFieldsTable maps a descriptor index to the node that processes that
// field when it is enabled (spec.md §4.3 "For each enabled field look up a
// Parse Node in the flag-fields table").
type FlagFieldsTable struct {
	Table *dtable.Plain[int, *FlagFieldNode]
}

// runFlagFieldsLoop implements spec.md §4.3. Handler return values are
// intentionally ignored: "Handlers may not terminate the sub-loop by
// returning non-OKAY — return values are ignored for consistency with flag
// ordering."
func runFlagFieldsLoop(ops *FlagFieldsOps, table *FlagFieldsTable, hdr, frame []byte, ctrl *Control) StopCode {
	flagWord := ops.GetFlags(hdr)
	base := ops.StartFieldsOffset(hdr)

	offs := flagfields.Offsets(flagWord, ops.Descriptor)
	for i, off := range offs {
		if off < 0 {
			continue
		}
		node, hit := table.Table.Lookup(i)
		if !hit || node == nil {
			continue
		}
		size := ops.Descriptor[i].Size
		start := base + off
		if start+size > len(hdr) {
			return StopLength
		}
		field := hdr[start : start+size]
		if node.Ops.ExtractMetadata != nil {
			node.Ops.ExtractMetadata(field, frame, ctrl)
		}
		if node.Ops.Handler != nil {
			node.Ops.Handler(field, frame, ctrl) // return value ignored, see above.
		}
	}

	return Okay
}
