package xdp2

import "github.com/xdp2-go/xdp2/internal/dbg"

// ParseFlags modifies a single [Parse] call.
type ParseFlags uint32

// DebugFlag turns on structural tracing for this call only, regardless of
// the package-wide [dbg.Enabled] setting (spec.md §6.1 "flags includes a
// DEBUG bit").
const DebugFlag ParseFlags = 1 << 0

// Parse walks packet starting at parser's root node, extracting metadata
// into meta and flowing ctrl through every callback, per spec.md §4.1. meta
// must be at least MetaMetaSize + MaxFrames*FrameSize bytes and the caller
// is responsible for zeroing it before the call (spec.md §6.1).
func Parse(parser *Parser, packet []byte, meta []byte, ctrl *Control, flags ParseFlags) StopCode {
	if flags&DebugFlag != 0 && !dbg.Enabled {
		dbg.Enabled = true
		defer func() { dbg.Enabled = false }()
	}

	cfg := parser.config
	ctrl.reset(cfg, packet)

	frame := meta[min(cfg.MetaMetaSize, len(meta)):]
	if len(frame) > cfg.FrameSize {
		frame = frame[:cfg.FrameSize]
	}

	code := runLoop(parser, packet, frame, meta, ctrl)
	ctrl.Var.RetCode = code
	runExitHooks(parser, code, meta, ctrl, frame)
	return code
}

// runLoop is spec.md §4.1 steps 1-10.
func runLoop(parser *Parser, packet, frame, meta []byte, ctrl *Control) StopCode {
	node := parser.root
	cfg := parser.config

	offset := 0
	remaining := len(packet)
	frameNum := 0
	nodesLeft := cfg.MaxNodes

	for {
		ctrl.Var.LastNode = node
		pd := node.ProtoDef
		dbg.Log(nil, "visit", "node=%s offset=%d remaining=%d", node.Name, offset, remaining)

		// Step 2: length check.
		hlen := pd.MinLen
		if remaining < hlen {
			dbg.Log(nil, "stop", "node=%s reason=length need=%d have=%d", node.Name, hlen, remaining)
			return StopLength
		}
		if pd.Len != nil {
			hdr := packet[offset:]
			n := pd.Len(hdr, remaining)
			if n < 0 {
				return StopCode(n)
			}
			hlen = n
			if remaining < hlen || hlen < pd.MinLen {
				return StopLength
			}
		}

		hdr := packet[offset : offset+hlen]
		ctrl.Hdr.HdrOffset = offset
		ctrl.Hdr.HdrLen = hlen

		// Step 3: extract_metadata, then handler.
		if node.Ops.ExtractMetadata != nil {
			node.Ops.ExtractMetadata(hdr, frame, ctrl)
		}
		if node.Ops.Handler != nil {
			if code := node.Ops.Handler(hdr, frame, ctrl); code.terminal() {
				return code
			}
		}

		// Step 4: sub-structure, only when the node and its proto_def agree
		// on node kind.
		if node.Kind == pd.NodeKind {
			var code StopCode
			switch node.Kind {
			case NodeKindTLVs:
				code = runTLVLoop(pd.TLV, node.tlvs, hdr, frame, hlen, ctrl)
			case NodeKindFlagFields:
				code = runFlagFieldsLoop(pd.FlagFields, node.flagFields, hdr, frame, ctrl)
			case NodeKindArray:
				code = runArrayLoop(pd.Array, node.array, hdr, frame, hlen, ctrl)
			}
			if code.terminal() {
				return code
			}
		}

		// Step 5: post_handler.
		if node.Ops.PostHandler != nil {
			node.Ops.PostHandler(hdr, frame, ctrl)
		}

		// Step 6: leaf check.
		if node.ProtoTable == nil && node.WildcardNode == nil {
			return StopOkay
		}

		// Step 7: encapsulation.
		if pd.Encap {
			if cfg.AtEncapNode != nil {
				if code := runExitNode(cfg.AtEncapNode, meta, ctrl, frame); code.terminal() {
					return code
				}
			}
			ctrl.Var.Encaps++
			if ctrl.Var.Encaps > cfg.MaxEncaps {
				return StopEncapDepth
			}
			if frameNum < cfg.MaxFrames-1 {
				base := cfg.MetaMetaSize + (frameNum+1)*cfg.FrameSize
				if base+cfg.FrameSize <= len(meta) {
					frame = meta[base : base+cfg.FrameSize]
					frameNum++
				}
			}
		}

		// Step 8: dispatch.
		var next *Node
		if node.ProtoTable != nil && (pd.NextProto != nil || pd.NextProtoKeyIn != nil) {
			var key int64
			if pd.NextProtoKeyIn != nil {
				key = pd.NextProtoKeyIn(hdr, ctrl.Key.Keys[node.KeySel])
			} else {
				key = pd.NextProto(hdr)
			}
			if key < 0 {
				return StopCode(key)
			}
			if n, hit := node.ProtoTable.Lookup(key); hit {
				next = n
			}
		}

		// Step 9: wildcard.
		if next == nil {
			next = node.WildcardNode
			if next == nil {
				dbg.Log(nil, "stop", "node=%s reason=unknown-proto", node.Name)
				return node.UnknownRet
			}
			dbg.Log(nil, "dispatch", "node=%s -> %s (wildcard)", node.Name, next.Name)
		} else {
			dbg.Log(nil, "dispatch", "node=%s -> %s", node.Name, next.Name)
		}

		// Step 10: advance.
		if !pd.Overlay {
			offset += hlen
			remaining -= hlen
			if remaining == 0 && next.Flags&ZeroLenOK != 0 {
				node = next
				ctrl.Var.LastNode = node
				return StopOkay
			}
		}
		nodesLeft--
		if nodesLeft <= 0 {
			return StopMaxNodes
		}

		node = next
	}
}

// runExitHooks implements the "Exit hook" paragraph of spec.md §4.1.
func runExitHooks(parser *Parser, code StopCode, meta []byte, ctrl *Control, frame []byte) {
	cfg := parser.config
	if code.ok() {
		if cfg.OkayNode != nil {
			runExitNode(cfg.OkayNode, meta, ctrl, frame)
		}
		return
	}
	if cfg.FailNode != nil {
		runExitNode(cfg.FailNode, meta, ctrl, frame)
	}
}
