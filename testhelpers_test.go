package xdp2

// A tiny two-node graph shared by several _test.go files: root reads a
// 4-byte header whose first byte is the dispatch key, leaf reads a 2-byte
// header and terminates.

func testLeafProtoDef(minLen int) *ProtoDef {
	return &ProtoDef{MinLen: minLen}
}

func testRootProtoDef(minLen int) *ProtoDef {
	return &ProtoDef{
		MinLen:    minLen,
		NextProto: func(hdr []byte) int64 { return int64(hdr[0]) },
	}
}

func buildTwoNodeGraph(leafKey int64) (root, leaf *Node) {
	leaf = NewGraphBuilder("leaf", NodeKindPlain, testLeafProtoDef(2)).Build()
	root = NewGraphBuilder("root", NodeKindPlain, testRootProtoDef(4)).Build(WithSuccessor(leafKey, leaf))
	return root, leaf
}
