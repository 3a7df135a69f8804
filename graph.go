package xdp2

import "github.com/xdp2-go/xdp2/internal/dtable"

// GraphOption configures a [GraphBuilder]. Wrapping the closure in a struct,
// rather than using a bare function type, keeps the option opaque in godoc
// output, matching the teacher's own [CompileOption].
type GraphOption struct{ apply func(*GraphBuilder) }

// GraphBuilder assembles a [Node] tree programmatically and freezes it with
// [GraphBuilder.Build] (spec.md §3 "Parse Graph ... built once, then treated
// as read-only"). Nodes are added depth-first; a child is attached to its
// parent's dispatch table or wildcard slot as soon as it's built, so cycles
// are only possible by holding onto a *Node returned from an earlier Build
// call and wiring it in by hand afterward.
type GraphBuilder struct {
	name       string
	kind       NodeKind
	protoDef   *ProtoDef
	ops        Ops
	keySel     int
	flags      Flags
	entries    map[int64]*Node
	wildcard   *Node
	unknownRet StopCode

	tlvs       *TLVTable
	flagFields *FlagFieldsTable
	array      *ArrayTable
}

// NewGraphBuilder starts a node under construction.
func NewGraphBuilder(name string, kind NodeKind, protoDef *ProtoDef) *GraphBuilder {
	return &GraphBuilder{
		name:       name,
		kind:       kind,
		protoDef:   protoDef,
		entries:    make(map[int64]*Node),
		unknownRet: StopUnknownProto,
	}
}

// WithOps sets the node's extract/handler/post_handler callbacks.
func WithOps(ops Ops) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.ops = ops }}
}

// WithFlags sets the node's behavior flags (e.g. [ZeroLenOK]).
func WithFlags(flags Flags) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.flags = flags }}
}

// WithKeySelector sets the Control.Key.Keys index consulted when this
// node's ProtoDef.NextProtoKeyIn is used.
func WithKeySelector(i int) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.keySel = i }}
}

// WithSuccessor wires key to successor in this node's protocol table.
func WithSuccessor(key int64, successor *Node) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.entries[key] = successor }}
}

// WithWildcard sets the successor adopted when the protocol table misses.
func WithWildcard(successor *Node) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.wildcard = successor }}
}

// WithUnknownRet overrides the terminal code returned when neither the
// protocol table nor the wildcard produces a successor. Defaults to
// [StopUnknownProto].
func WithUnknownRet(code StopCode) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.unknownRet = code }}
}

// WithTLVTable attaches a TLV dispatch table; only meaningful when kind is
// [NodeKindTLVs].
func WithTLVTable(t *TLVTable) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.tlvs = t }}
}

// WithFlagFieldsTable attaches a flag-fields dispatch table; only
// meaningful when kind is [NodeKindFlagFields].
func WithFlagFieldsTable(t *FlagFieldsTable) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.flagFields = t }}
}

// WithArrayTable attaches an array dispatch table; only meaningful when
// kind is [NodeKindArray].
func WithArrayTable(t *ArrayTable) GraphOption {
	return GraphOption{func(b *GraphBuilder) { b.array = t }}
}

// Build freezes the node. A nil *dtable.Plain is installed instead of an
// empty one whenever there are no table entries, so the engine's leaf check
// (ProtoTable == nil && WildcardNode == nil) sees a true leaf when there is
// no wildcard either.
func (b *GraphBuilder) Build(opts ...GraphOption) *Node {
	for _, o := range opts {
		o.apply(b)
	}

	n := &Node{
		Name:         b.name,
		Kind:         b.kind,
		ProtoDef:     b.protoDef,
		Ops:          b.ops,
		WildcardNode: b.wildcard,
		UnknownRet:   b.unknownRet,
		KeySel:       b.keySel,
		Flags:        b.flags,
		tlvs:         b.tlvs,
		flagFields:   b.flagFields,
		array:        b.array,
	}
	if len(b.entries) > 0 {
		n.ProtoTable = dtable.NewPlain(b.entries)
	}
	return n
}
