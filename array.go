package xdp2

import "github.com/xdp2-go/xdp2/internal/dtable"

// ArrayOps extends a [ProtoDef] with the callbacks the array sub-loop needs
// (spec.md §3 "Arrays add ...").
type ArrayOps struct {
	// StartOffset returns the byte offset, within hdr, where the array
	// begins.
	StartOffset func(hdr []byte) int
	// NumEls computes the element count from the bytes available to the
	// array (hlen - StartOffset(hdr)).
	NumEls func(hdr []byte, avail int) int
	// ElType reads the element-type discriminant from one element's bytes,
	// or a negative user-op StopCode. Optional: nil means every element has
	// type 0.
	ElType func(cp []byte) int64
	// ElLength is the fixed stride, in bytes, of every element.
	ElLength int
}

// ArrayTable maps an element-type discriminant to the node that processes
// elements of that type (spec.md §3 "an array table mapping element type to
// per-element Parse Nodes").
type ArrayTable struct {
	Table             *dtable.Plain[int64, *ArrayNode]
	Wildcard          *ArrayNode
	UnknownArrayTypeRet StopCode
}

// ArrayNode holds the callbacks run over one array element's bytes.
type ArrayNode struct {
	Name string
	Ops  Ops // PostHandler is not used for array elements.
}

// runArrayLoop implements spec.md §4.4 over hdr[startOffset:hlen].
func runArrayLoop(ops *ArrayOps, table *ArrayTable, hdr, frame []byte, hlen int, ctrl *Control) StopCode {
	start := 0
	if ops.StartOffset != nil {
		start = ops.StartOffset(hdr)
	}
	avail := hlen - start
	numEls := ops.NumEls(hdr, avail)

	if numEls*ops.ElLength > avail {
		return StopLength
	}

	cp := start
	for range numEls {
		var elType int64
		if ops.ElType != nil {
			t := ops.ElType(hdr[cp:hlen])
			if t < 0 {
				return StopCode(t)
			}
			elType = t
		}

		node, hit := table.Table.Lookup(elType)
		if !hit {
			node = table.Wildcard
			if node == nil {
				if table.UnknownArrayTypeRet == Okay {
					cp += ops.ElLength
					continue
				}
				return table.UnknownArrayTypeRet
			}
		}

		el := hdr[cp : cp+ops.ElLength]
		if node.Ops.ExtractMetadata != nil {
			node.Ops.ExtractMetadata(el, frame, ctrl)
		}
		if node.Ops.Handler != nil {
			if code := node.Ops.Handler(el, frame, ctrl); code.terminal() {
				return code
			}
		}

		cp += ops.ElLength
	}

	return Okay
}
