package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphBuilderLeafHasNoTables(t *testing.T) {
	leaf := NewGraphBuilder("leaf", NodeKindPlain, testLeafProtoDef(2)).Build()
	assert.Nil(t, leaf.ProtoTable)
	assert.Nil(t, leaf.WildcardNode)
}

func TestGraphBuilderWiresSuccessorsAndWildcard(t *testing.T) {
	leaf := NewGraphBuilder("leaf", NodeKindPlain, testLeafProtoDef(2)).Build()
	other := NewGraphBuilder("other", NodeKindPlain, testLeafProtoDef(2)).Build()
	root := NewGraphBuilder("root", NodeKindPlain, testRootProtoDef(4)).
		Build(WithSuccessor(6, leaf), WithWildcard(other))

	require.NotNil(t, root.ProtoTable)
	got, hit := root.ProtoTable.Lookup(6)
	require.True(t, hit)
	assert.Same(t, leaf, got)
	assert.Same(t, other, root.WildcardNode)
}

func TestGraphBuilderDefaultUnknownRetIsStopUnknownProto(t *testing.T) {
	n := NewGraphBuilder("n", NodeKindPlain, testLeafProtoDef(2)).Build()
	assert.Equal(t, StopUnknownProto, n.UnknownRet)
}

func TestGraphBuilderWithUnknownRetOverride(t *testing.T) {
	n := NewGraphBuilder("n", NodeKindPlain, testLeafProtoDef(2)).Build(WithUnknownRet(StopFail))
	assert.Equal(t, StopFail, n.UnknownRet)
}

func TestGraphBuilderEndToEndParse(t *testing.T) {
	root, _ := buildTwoNodeGraph(6)
	parser := NewParser(root, ParserConfig{FrameSize: 16, MaxFrames: 1})

	packet := []byte{6, 0, 0, 0, 9, 9}
	meta := make([]byte, 16)
	code := Parse(parser, packet, meta, &Control{}, 0)
	assert.Equal(t, StopOkay, code)
}
