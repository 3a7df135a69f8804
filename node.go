// Package xdp2 implements a declarative packet-parsing engine: a caller
// builds a static graph of parse nodes, protocol definitions, and dispatch
// tables, then repeatedly walks it over raw packet bytes with [Parse] (or
// the restricted, faster [ParseFast]), extracting fields into caller-owned
// metadata frames through user-supplied callbacks.
//
// The engine treats protocol definitions as opaque: it never hardcodes
// Ethernet, IP, or TCP. A caller supplies [ProtoDef] values whose callbacks
// answer "how long is this header" and "what comes next", and [Ops]
// callbacks that copy bytes out of the header into the metadata frame.
package xdp2

import "github.com/xdp2-go/xdp2/internal/dtable"

// NodeKind selects which sub-structure loop, if any, a [Node] drives after
// its own header has been consumed (spec.md §3 "Parse Node", §4.1 step 4).
type NodeKind int

const (
	// NodeKindPlain nodes have no sub-structure; they run straight from
	// header extraction to dispatch.
	NodeKindPlain NodeKind = iota
	// NodeKindTLVs nodes walk a type-length-value options area (spec.md
	// §4.2).
	NodeKindTLVs
	// NodeKindFlagFields nodes walk an optional-field area driven by a flag
	// word (spec.md §4.3).
	NodeKindFlagFields
	// NodeKindArray nodes walk a fixed-stride element array (spec.md §4.4).
	NodeKindArray
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindPlain:
		return "plain"
	case NodeKindTLVs:
		return "tlvs"
	case NodeKindFlagFields:
		return "flag-fields"
	case NodeKindArray:
		return "array"
	default:
		return "unknown-node-kind"
	}
}

// Flags is a bitset of per-node behavior flags (spec.md §3 "Parse Node").
type Flags uint32

const (
	// ZeroLenOK marks a node that may be reached with zero bytes of packet
	// remaining: the parse then ends there with StopOkay, without visiting
	// the node, rather than failing with StopLength.
	ZeroLenOK Flags = 1 << iota
)

// Ops is the set of callbacks the engine runs around a plain [Node]'s
// header (spec.md §3 "Parse Node" ops, §4.1 steps 3 and 5). All three are
// optional.
type Ops struct {
	// ExtractMetadata copies fields out of hdr into frame. It runs before
	// Handler and cannot fail: validation belongs in Handler.
	ExtractMetadata func(hdr, frame []byte, ctrl *Control)
	// Handler may inspect hdr and frame and signal a terminal condition by
	// returning anything other than Okay. It runs after ExtractMetadata and
	// before the node's sub-structure loop, if any.
	Handler func(hdr, frame []byte, ctrl *Control) StopCode
	// PostHandler runs after the sub-structure loop and before dispatch. Its
	// return value is ignored, matching the reference implementation: by
	// the time post-processing runs, the node's own data has already been
	// fully and successfully extracted, so there is nothing left for it to
	// veto.
	PostHandler func(hdr, frame []byte, ctrl *Control)
}

// Node is one vertex of a parse graph (spec.md §3 "Parse Node").
//
// A Node is built once, through [GraphBuilder], and is immutable and safe
// for concurrent use by multiple in-flight Parse calls thereafter (spec.md
// §5 "Shared resources").
type Node struct {
	Name     string
	Kind     NodeKind
	ProtoDef *ProtoDef
	Ops      Ops

	// ProtoTable maps a next-protocol key (spec.md §3 "Protocol Table") to a
	// successor Node. Nil for a leaf node.
	ProtoTable *dtable.Plain[int64, *Node]
	// WildcardNode is the successor adopted when ProtoTable misses or is
	// nil. Nil means "no wildcard".
	WildcardNode *Node
	// UnknownRet is the terminal code returned when neither ProtoTable nor
	// WildcardNode produces a successor.
	UnknownRet StopCode
	// KeySel indexes Control.Key.Keys when ProtoDef.NextProtoKeyIn is used
	// instead of ProtoDef.NextProto.
	KeySel int
	Flags  Flags

	// Variant-specific tables; exactly one is non-nil when Kind is not
	// NodeKindPlain, selected by Kind.
	tlvs       *TLVTable
	flagFields *FlagFieldsTable
	array      *ArrayTable
}

// TLVs returns the node's TLV table. Valid only when Kind == NodeKindTLVs.
func (n *Node) TLVs() *TLVTable { return n.tlvs }

// FlagFields returns the node's flag-fields table. Valid only when Kind ==
// NodeKindFlagFields.
func (n *Node) FlagFields() *FlagFieldsTable { return n.flagFields }

// Array returns the node's array table. Valid only when Kind ==
// NodeKindArray.
func (n *Node) Array() *ArrayTable { return n.array }

// ProtoDef is the contract the engine uses to ask a caller's protocol
// module about header shape and dispatch (spec.md §3 "Protocol Definition").
type ProtoDef struct {
	// MinLen is the minimum header length; checked before Len runs.
	MinLen int
	// Len computes the exact header length from the header bytes seen so
	// far (up to maxLen bytes available). A negative return is a user-op
	// StopCode and aborts the parse (spec.md §4.1 step 2: "ops.len(hdr,
	// maxlen) -> ssize_t"). Optional: when nil, MinLen is also the exact
	// length.
	Len func(hdr []byte, maxLen int) int
	// NextProto computes the next-protocol dispatch key from the header,
	// or a negative user-op StopCode. At most one of NextProto and
	// NextProtoKeyIn is set.
	NextProto func(hdr []byte) int64
	// NextProtoKeyIn is like NextProto, but reads the dispatch key out of
	// the control block's key vector (Control.Key.Keys[Node.KeySel])
	// instead of the header.
	NextProtoKeyIn func(hdr []byte, key int64) int64
	// Overlay, when true, means the successor node parses the same bytes
	// (the cursor does not advance past this header).
	Overlay bool
	// Encap, when true, means the successor begins a new encapsulation
	// frame: exit hooks fire and the metadata frame may advance.
	Encap bool
	// NodeKind must match the owning Node's Kind for the corresponding
	// sub-structure loop to run; a mismatch silently skips that loop
	// (spec.md §4.1 step 4).
	NodeKind NodeKind

	// Exactly one of the following is set, matching NodeKind.
	TLV        *TLVOps
	FlagFields *FlagFieldsOps
	Array      *ArrayOps
}
