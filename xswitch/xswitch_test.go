package xswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalFirstMatchWins(t *testing.T) {
	var ran []string
	cases := []Case{
		{Kind: Equal, Key: 6, Run: func() { ran = append(ran, "tcp") }},
		{Kind: Equal, Key: 6, Run: func() { ran = append(ran, "tcp-again") }},
		{Kind: Equal, Key: 17, Run: func() { ran = append(ran, "udp") }},
	}
	Eval(6, cases, func() { ran = append(ran, "default") })
	assert.Equal(t, []string{"tcp"}, ran)
}

func TestEvalRunsDefaultOnNoMatch(t *testing.T) {
	hit := false
	Eval(99, []Case{{Kind: Equal, Key: 6}}, func() { hit = true })
	assert.True(t, hit)
}

func TestEvalNoMatchNoDefaultIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Eval(99, []Case{{Kind: Equal, Key: 6}}, nil) })
}

func TestTernaryMatchesMaskedBitsOnly(t *testing.T) {
	c := Case{Kind: Ternary, Key: 0b1010, Mask: 0b1100}
	assert.True(t, matches(0b1011, c), "low bits are outside the mask and should be ignored")
	assert.False(t, matches(0b0010, c))
}

func TestPrefixMatchesTopBits(t *testing.T) {
	c := Case{Kind: Prefix, Key: 0xC0A80000 << 32, Bits: 16}
	assert.True(t, matches(0xC0A8FFFF<<32, c))
	assert.False(t, matches(0xC0A90000<<32, c))
}

func TestRangeIsHalfOpen(t *testing.T) {
	c := Case{Kind: Range, Key: 10, Mask: 20}
	assert.True(t, matches(10, c))
	assert.True(t, matches(19, c))
	assert.False(t, matches(20, c))
	assert.False(t, matches(9, c))
}

func TestMaskKind(t *testing.T) {
	c := Case{Kind: Mask, Key: 0x08, Mask: 0x0F}
	assert.True(t, matches(0x18, c))
	assert.False(t, matches(0x10, c))
}

func TestPrefixMaskEdgeBits(t *testing.T) {
	assert.Equal(t, uint64(0), prefixMask(0))
	assert.Equal(t, ^uint64(0), prefixMask(64))
	assert.Equal(t, ^uint64(0), prefixMask(100))
}
