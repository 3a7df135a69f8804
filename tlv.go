package xdp2

import "github.com/xdp2-go/xdp2/internal/dtable"

// TLVOps extends a [ProtoDef] with the callbacks the TLV sub-loop needs
// (spec.md §3 "TLVs add ...", §4.2). Set ProtoDef.TLV to a non-nil TLVOps
// on any ProtoDef belonging to a [NodeKindTLVs] node.
type TLVOps struct {
	// StartOffset returns the byte offset, within hdr, where the TLV area
	// begins.
	StartOffset func(hdr []byte) int
	// Type reads the TLV type code from the start of one TLV entry.
	Type func(cp []byte) int64
	// Len computes one TLV entry's total length (type+length+value,
	// whatever the wire format dictates) from its start, or a negative
	// user-op StopCode. Optional: when nil, the entry's node's
	// ProtoDef.MinLen is used instead.
	Len func(cp []byte, remaining int) int

	Pad1Enable bool
	Pad1Val    byte
	EOLEnable  bool
	EOLVal     byte
}

// TLVNode is one entry's worth of behavior in a [TLVTable] (spec.md §3 "A
// TLV Parse Node").
type TLVNode struct {
	Name     string
	ProtoDef *ProtoDef // only MinLen is consulted by the engine.
	Ops      Ops       // PostHandler is not used for TLV entries.

	// Nested, when set, is walked recursively over
	// [hdr+NestedOffset(hdr,tlvLen), tlvLen) before the overlay step.
	Nested *TLVTable
	// NestedOps supplies the Type/Len/padding contract for entries inside
	// Nested. Required whenever Nested is set: the nested area is its own
	// TLV stream and may use a different wire format than its parent.
	NestedOps *TLVOps
	// NestedOffset computes the start of the nested area. Optional: nil
	// means offset 0.
	NestedOffset func(hdr []byte, tlvLen int) int

	Overlay *TLVOverlayTable
}

// TLVOverlayTable lets one TLV entry's bytes be reinterpreted as another TLV
// entry keyed by type or by length (spec.md §4.2.1 step 4).
type TLVOverlayTable struct {
	// OverlayType computes the overlay dispatch key from hdr, or a negative
	// user-op StopCode. Optional: nil means the key is the entry's own
	// tlv_len.
	OverlayType func(hdr []byte) int64
	Table       *dtable.Plain[int64, *TLVNode]
	Wildcard    *TLVNode
	UnknownRet  StopCode
}

// TLVTable is a [NodeKindTLVs] node's dispatch table plus loop-wide policy
// (spec.md §3 "A TLV table maps TLV type codes...").
type TLVTable struct {
	Table             *dtable.Plain[int64, *TLVNode]
	Wildcard          *TLVNode
	UnknownTLVTypeRet StopCode
	// MaxTLVs caps the number of entries walked in one invocation of the
	// loop; 0 means unlimited.
	MaxTLVs int
}

// runTLVLoop implements spec.md §4.2 over hdr[startOffset:hlen].
func runTLVLoop(tlvOps *TLVOps, table *TLVTable, hdr, frame []byte, hlen int, ctrl *Control) StopCode {
	start := 0
	if tlvOps.StartOffset != nil {
		start = tlvOps.StartOffset(hdr)
	}
	cp := start
	count := 0

	for cp < hlen {
		b := hdr[cp]
		if tlvOps.Pad1Enable && b == tlvOps.Pad1Val {
			cp++
			continue
		}
		if tlvOps.EOLEnable && b == tlvOps.EOLVal {
			cp++
			break
		}

		if table.MaxTLVs > 0 && count >= table.MaxTLVs {
			return StopOptionLimit
		}
		count++

		remaining := hlen - cp
		tlvLen := 0
		if tlvOps.Len != nil {
			n := tlvOps.Len(hdr[cp:hlen], remaining)
			if n < 0 {
				return StopCode(n)
			}
			tlvLen = n
		}

		tlvType := tlvOps.Type(hdr[cp:hlen])
		node, hit := table.Table.Lookup(tlvType)
		if !hit {
			node = table.Wildcard
			if node == nil {
				if table.UnknownTLVTypeRet == Okay {
					// Skip silently: spec.md §4.2 "skip silently if that
					// is OKAY". Length must still be known, non-zero and
					// in range to advance.
					if tlvOps.Len == nil || tlvLen == 0 || tlvLen > remaining {
						return StopTLVLength
					}
					cp += tlvLen
					continue
				}
				return table.UnknownTLVTypeRet
			}
		}
		if tlvOps.Len == nil {
			tlvLen = node.ProtoDef.MinLen
		}
		if tlvLen == 0 || tlvLen > remaining {
			return StopTLVLength
		}

		code := processOneTLV(table, node, hdr[cp:cp+tlvLen], frame, ctrl)
		if code.terminal() {
			return code
		}

		cp += tlvLen
	}

	return Okay
}

// processOneTLV implements spec.md §4.2.1, including the overlay "goto step
// 1" loop.
func processOneTLV(table *TLVTable, node *TLVNode, tlv, frame []byte, ctrl *Control) StopCode {
	for {
		if node.ProtoDef != nil && node.ProtoDef.MinLen > 0 && len(tlv) < node.ProtoDef.MinLen {
			if node == table.Wildcard {
				// The wildcard itself is too short: fall back to the
				// unknown-type return instead of retrying it.
				node = nil
			} else {
				node = table.Wildcard
			}
			if node == nil {
				if table.UnknownTLVTypeRet == Okay {
					return Okay
				}
				return table.UnknownTLVTypeRet
			}
			continue
		}

		if node.Ops.ExtractMetadata != nil {
			node.Ops.ExtractMetadata(tlv, frame, ctrl)
		}
		if node.Ops.Handler != nil {
			if code := node.Ops.Handler(tlv, frame, ctrl); code.terminal() {
				return code
			}
		}

		if node.Nested != nil {
			nestedOffset := 0
			if node.NestedOffset != nil {
				nestedOffset = node.NestedOffset(tlv, len(tlv))
			}
			ctrl.Var.TLVLevels++
			code := runTLVLoop(node.NestedOps, node.Nested, tlv[nestedOffset:], frame, len(tlv)-nestedOffset, ctrl)
			ctrl.Var.TLVLevels--
			if code.terminal() {
				return code
			}
		}

		if node.Overlay == nil {
			return Okay
		}

		var key int64
		if node.Overlay.OverlayType != nil {
			k := node.Overlay.OverlayType(tlv)
			if k < 0 {
				return StopCode(k)
			}
			key = k
		} else {
			key = int64(len(tlv))
		}

		next, hit := node.Overlay.Table.Lookup(key)
		if !hit {
			next = node.Overlay.Wildcard
			if next == nil {
				return node.Overlay.UnknownRet
			}
		}
		node, table = next, overlayAsTable(node.Overlay)
	}
}

// overlayAsTable adapts a TLVOverlayTable into the TLVTable shape
// processOneTLV's loop variable expects, so that an overlay chain that
// (unusually) specifies its own wildcard/unknown-ret policy is honored on
// the next iteration of the "goto step 1" loop.
func overlayAsTable(o *TLVOverlayTable) *TLVTable {
	return &TLVTable{Table: o.Table, Wildcard: o.Wildcard, UnknownTLVTypeRet: o.UnknownRet}
}
