package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdp2-go/xdp2/internal/descr"
)

const twoNodeYAML = `
root: root
nodes:
  root:
    proto_def: root-proto
    successors:
      "6": leaf
    unknown_ret: stop-unknown-proto
  leaf:
    proto_def: leaf-proto
`

func TestBuildGraphResolvesRegistryAndSuccessors(t *testing.T) {
	desc, err := descr.ParseGraphDescription([]byte(twoNodeYAML))
	require.NoError(t, err)

	reg := NodeRegistry{ProtoDefs: map[string]*ProtoDef{
		"root-proto": testRootProtoDef(4),
		"leaf-proto": testLeafProtoDef(2),
	}}

	root, err := BuildGraph(desc, reg)
	require.NoError(t, err)

	parser := NewParser(root, ParserConfig{FrameSize: 16, MaxFrames: 1})
	code := Parse(parser, []byte{6, 0, 0, 0, 9, 9}, make([]byte, 16), &Control{}, 0)
	assert.Equal(t, StopOkay, code)
}

func TestBuildGraphSupportsCycles(t *testing.T) {
	const cyclicYAML = `
root: a
nodes:
  a:
    proto_def: root-proto
    successors:
      "1": b
  b:
    proto_def: root-proto
    successors:
      "1": a
      "2": leaf
  leaf:
    proto_def: leaf-proto
`
	desc, err := descr.ParseGraphDescription([]byte(cyclicYAML))
	require.NoError(t, err)

	reg := NodeRegistry{ProtoDefs: map[string]*ProtoDef{
		"root-proto": testRootProtoDef(4),
		"leaf-proto": testLeafProtoDef(2),
	}}

	a, err := BuildGraph(desc, reg)
	require.NoError(t, err)

	b, hit := a.ProtoTable.Lookup(1)
	require.True(t, hit)
	back, hit := b.ProtoTable.Lookup(1)
	require.True(t, hit)
	assert.Same(t, a, back, "b's successor 1 should cycle back to a")

	leaf, hit := b.ProtoTable.Lookup(2)
	require.True(t, hit)
	assert.Nil(t, leaf.ProtoTable)
}

func TestBuildGraphRejectsUnregisteredProtoDef(t *testing.T) {
	desc, err := descr.ParseGraphDescription([]byte(twoNodeYAML))
	require.NoError(t, err)

	_, err = BuildGraph(desc, NodeRegistry{})
	assert.Error(t, err)
}
