package xdp2

// runExitNode executes a node's three callbacks without performing any
// dispatch (spec.md §4.5 "Exit-Node Runner"). Used for OkayNode, FailNode,
// and AtEncapNode. An exit node runs outside of any single header's parse
// step, so it is given no header window of its own — ctrl.Hdr still
// reflects whichever node triggered the exit, which is what callbacks
// typically want to inspect.
func runExitNode(node *Node, meta []byte, ctrl *Control, frame []byte) StopCode {
	var hdr []byte
	if node.Ops.ExtractMetadata != nil {
		node.Ops.ExtractMetadata(hdr, frame, ctrl)
	}
	var code StopCode
	if node.Ops.Handler != nil {
		code = node.Ops.Handler(hdr, frame, ctrl)
	}
	if node.Ops.PostHandler != nil {
		node.Ops.PostHandler(hdr, frame, ctrl)
	}
	return code
}
