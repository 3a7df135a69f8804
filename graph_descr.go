package xdp2

import (
	"fmt"

	"github.com/xdp2-go/xdp2/internal/descr"
	"github.com/xdp2-go/xdp2/internal/dtable"
)

// NodeRegistry is the set of named Go implementations a
// [descr.GraphDescription] resolves against (SPEC_FULL "Declarative
// construction": "resolved against a caller-supplied registry of named
// ProtoDef/op implementations"). The YAML never carries a callback; it only
// names one of these entries.
type NodeRegistry struct {
	ProtoDefs       map[string]*ProtoDef
	Ops             map[string]Ops
	TLVTables       map[string]*TLVTable
	FlagFieldsTables map[string]*FlagFieldsTable
	ArrayTables     map[string]*ArrayTable
}

var unknownRetByName = map[string]StopCode{
	"okay":                Okay,
	"stop-okay":           StopOkay,
	"stop-fail":           StopFail,
	"stop-length":         StopLength,
	"stop-unknown-proto":  StopUnknownProto,
	"stop-encap-depth":    StopEncapDepth,
	"stop-max-nodes":      StopMaxNodes,
	"stop-option-limit":   StopOptionLimit,
	"stop-tlv-length":     StopTLVLength,
}

var kindByName = map[string]NodeKind{
	"plain":       NodeKindPlain,
	"tlvs":        NodeKindTLVs,
	"flag-fields": NodeKindFlagFields,
	"array":       NodeKindArray,
}

var flagByName = map[string]Flags{
	"zero-len-ok": ZeroLenOK,
}

// BuildGraph resolves desc against reg and returns the root node (SPEC_FULL
// "Declarative construction", the Go-native analogue of the C
// implementation's statically-declared parse_node tables). Nodes are built
// in two passes so that successor references may name any node in the
// description, including an ancestor: the graph is free to contain cycles,
// the same as one hand-wired through [GraphBuilder] and [WithSuccessor].
func BuildGraph(desc *descr.GraphDescription, reg NodeRegistry) (*Node, error) {
	built := make(map[string]*Node, len(desc.Nodes))
	for name, entry := range desc.Nodes {
		kind, ok := kindByName[entry.Kind]
		if entry.Kind != "" && !ok {
			return nil, fmt.Errorf("xdp2: node %q: unknown kind %q", name, entry.Kind)
		}

		var protoDef *ProtoDef
		if entry.ProtoDef != "" {
			protoDef, ok = reg.ProtoDefs[entry.ProtoDef]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unregistered proto_def %q", name, entry.ProtoDef)
			}
		}

		b := NewGraphBuilder(name, kind, protoDef)
		if entry.Ops != "" {
			ops, ok := reg.Ops[entry.Ops]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unregistered ops %q", name, entry.Ops)
			}
			b.ops = ops
		}
		b.keySel = entry.KeySelector

		for _, f := range entry.Flags {
			bit, ok := flagByName[f]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unknown flag %q", name, f)
			}
			b.flags |= bit
		}

		if entry.UnknownRet != "" {
			code, ok := unknownRetByName[entry.UnknownRet]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unknown unknown_ret %q", name, entry.UnknownRet)
			}
			b.unknownRet = code
		}

		switch {
		case entry.TLVTable != "":
			t, ok := reg.TLVTables[entry.TLVTable]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unregistered tlv_table %q", name, entry.TLVTable)
			}
			b.tlvs = t
		case entry.FlagFieldsTable != "":
			t, ok := reg.FlagFieldsTables[entry.FlagFieldsTable]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unregistered flag_fields_table %q", name, entry.FlagFieldsTable)
			}
			b.flagFields = t
		case entry.ArrayTable != "":
			t, ok := reg.ArrayTables[entry.ArrayTable]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unregistered array_table %q", name, entry.ArrayTable)
			}
			b.array = t
		}

		built[name] = b.Build()
	}

	for name, entry := range desc.Nodes {
		n := built[name]
		if entry.Wildcard != "" {
			w, ok := built[entry.Wildcard]
			if !ok {
				return nil, fmt.Errorf("xdp2: node %q: unknown wildcard successor %q", name, entry.Wildcard)
			}
			n.WildcardNode = w
		}
		if len(entry.Successors) > 0 {
			entries := make(map[int64]*Node, len(entry.Successors))
			for keyStr, succName := range entry.Successors {
				key, err := descr.ParseKey(keyStr)
				if err != nil {
					return nil, fmt.Errorf("xdp2: node %q: %w", name, err)
				}
				succ, ok := built[succName]
				if !ok {
					return nil, fmt.Errorf("xdp2: node %q: unknown successor %q", name, succName)
				}
				entries[key] = succ
			}
			n.ProtoTable = dtable.NewPlain(entries)
		}
	}

	root, ok := built[desc.Root]
	if !ok {
		return nil, fmt.Errorf("xdp2: root node %q not found in description", desc.Root)
	}
	return root, nil
}
