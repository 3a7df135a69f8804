package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParserConfigNormalizedFillsDefaults(t *testing.T) {
	c := ParserConfig{}.normalized()
	assert.Equal(t, DefaultMaxEncaps, c.MaxEncaps)
	assert.Equal(t, DefaultMaxNodes, c.MaxNodes)
	assert.Equal(t, 1, c.MaxFrames)
}

func TestParserConfigNormalizedPreservesExplicitValues(t *testing.T) {
	c := ParserConfig{MaxEncaps: 2, MaxNodes: 10, MaxFrames: 3}.normalized()
	assert.Equal(t, 2, c.MaxEncaps)
	assert.Equal(t, 10, c.MaxNodes)
	assert.Equal(t, 3, c.MaxFrames)
}

func TestParserConfigCloneIsIndependentOfOriginal(t *testing.T) {
	okay := &Node{Name: "okay"}
	c := ParserConfig{MaxEncaps: 2, OkayNode: okay}
	clone := c.Clone()

	clone.MaxEncaps = 99
	assert.Equal(t, 2, c.MaxEncaps, "mutating the clone must not affect the original")
	assert.Same(t, okay, clone.OkayNode, "exit-hook pointers must alias the shared graph, not be duplicated")
}

func TestNewParserBuildsAndBindsRoot(t *testing.T) {
	root, _ := buildTwoNodeGraph(1)
	p := NewParser(root, ParserConfig{})

	assert.Same(t, root, p.Root())
	assert.NotEqual(t, p.ID().String(), "")
	assert.Equal(t, DefaultMaxEncaps, p.Config().MaxEncaps)
}

func TestNewParserComputesFastPathEligibilityOnce(t *testing.T) {
	root, _ := buildTwoNodeGraph(1)
	p := NewParser(root, ParserConfig{})
	assert.True(t, p.FastPathEligible())

	root2, _ := buildTwoNodeGraph(1)
	p2 := NewParser(root2, ParserConfig{OkayNode: &Node{}})
	assert.False(t, p2.FastPathEligible())
}
