package xdp2

// validateFastPath implements the graph-wide check in spec.md §4.6: a
// depth-first walk that rejects any node using features the restricted
// interpreter cannot run. A visited-set cap breaks cycles introduced by
// wildcard/table back-edges.
func validateFastPath(root *Node, cfg ParserConfig) bool {
	if cfg.OkayNode != nil || cfg.FailNode != nil || cfg.AtEncapNode != nil {
		return false
	}
	if cfg.NumCounters != 0 || cfg.NumKeys != 0 {
		return false
	}

	const visitCap = 1 << 20
	seen := make(map[*Node]bool)
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if n == nil {
			return true
		}
		if seen[n] {
			return true
		}
		if len(seen) >= visitCap {
			return false
		}
		seen[n] = true

		if n.Ops.PostHandler != nil {
			return false
		}
		if n.ProtoDef.NextProtoKeyIn != nil {
			return false
		}
		if n.Kind != NodeKindPlain && n.Kind == n.ProtoDef.NodeKind {
			switch n.Kind {
			case NodeKindTLVs:
				if !validateTLVFastPath(n.tlvs, seen) {
					return false
				}
			case NodeKindFlagFields:
				// Flag-field nodes carry no post_handler or next_proto of
				// their own; nothing further to check.
			case NodeKindArray:
				if !validateArrayFastPath(n.array, seen) {
					return false
				}
			}
		}

		if !walk(n.WildcardNode) {
			return false
		}
		if n.ProtoTable != nil {
			ok := true
			n.ProtoTable.Range(func(_ int64, succ *Node) bool {
				if !walk(succ) {
					ok = false
					return false
				}
				return true
			})
			if !ok {
				return false
			}
		}
		return true
	}

	return walk(root)
}

func validateTLVFastPath(t *TLVTable, seen map[*Node]bool) bool {
	if t == nil {
		return true
	}
	valid := true
	visit := func(n *TLVNode) bool {
		if n == nil {
			return true
		}
		if n.Ops.PostHandler != nil {
			return false
		}
		if n.Nested != nil && !validateTLVFastPath(n.Nested, seen) {
			return false
		}
		if n.Overlay != nil {
			ok := true
			n.Overlay.Table.Range(func(_ int64, on *TLVNode) bool {
				if !visit(on) {
					ok = false
					return false
				}
				return true
			})
			if !ok || !visit(n.Overlay.Wildcard) {
				return false
			}
		}
		return true
	}
	if t.Table != nil {
		t.Table.Range(func(_ int64, n *TLVNode) bool {
			if !visit(n) {
				valid = false
				return false
			}
			return true
		})
	}
	if valid {
		valid = visit(t.Wildcard)
	}
	return valid
}

func validateArrayFastPath(t *ArrayTable, seen map[*Node]bool) bool {
	// Array element nodes carry only ExtractMetadata/Handler in this
	// engine; neither is restricted by the fast-path contract.
	return true
}

// ParseFast is the restricted interpreter of spec.md §4.6: it implements
// steps 1-8 of the main loop with no exit-node machinery and no
// max-nodes/max-encaps bookkeeping, usable only when
// [Parser.FastPathEligible] reports true. Termination then relies solely on
// the packet length strictly decreasing on every non-overlay step (spec.md
// §5).
func ParseFast(parser *Parser, packet []byte, meta []byte, ctrl *Control, flags ParseFlags) StopCode {
	if !parser.fast {
		panic("xdp2: ParseFast called on a parser whose graph is not fast-path eligible")
	}

	cfg := parser.config
	ctrl.reset(cfg, packet)

	frame := meta[min(cfg.MetaMetaSize, len(meta)):]
	if len(frame) > cfg.FrameSize {
		frame = frame[:cfg.FrameSize]
	}

	node := parser.root
	offset := 0
	remaining := len(packet)
	frameNum := 0

	for {
		ctrl.Var.LastNode = node
		pd := node.ProtoDef

		hlen := pd.MinLen
		if remaining < hlen {
			return StopLength
		}
		if pd.Len != nil {
			n := pd.Len(packet[offset:], remaining)
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

		if node.Ops.ExtractMetadata != nil {
			node.Ops.ExtractMetadata(hdr, frame, ctrl)
		}
		if node.Ops.Handler != nil {
			if code := node.Ops.Handler(hdr, frame, ctrl); code.terminal() {
				return code
			}
		}

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

		if node.ProtoTable == nil && node.WildcardNode == nil {
			ctrl.Var.RetCode = StopOkay
			return StopOkay
		}

		if pd.Encap {
			ctrl.Var.Encaps++
			if frameNum < cfg.MaxFrames-1 {
				base := cfg.MetaMetaSize + (frameNum+1)*cfg.FrameSize
				if base+cfg.FrameSize <= len(meta) {
					frame = meta[base : base+cfg.FrameSize]
					frameNum++
				}
			}
		}

		var next *Node
		if node.ProtoTable != nil && pd.NextProto != nil {
			key := pd.NextProto(hdr)
			if key < 0 {
				return StopCode(key)
			}
			if n, hit := node.ProtoTable.Lookup(key); hit {
				next = n
			}
		}

		if next == nil {
			next = node.WildcardNode
			if next == nil {
				ctrl.Var.RetCode = node.UnknownRet
				return node.UnknownRet
			}
		}

		if !pd.Overlay {
			offset += hlen
			remaining -= hlen
			if remaining == 0 && next.Flags&ZeroLenOK != 0 {
				ctrl.Var.RetCode = StopOkay
				return StopOkay
			}
		}

		node = next
	}
}
