package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildFrame(srcIP, dstIP [4]byte, sport, dport uint16) []byte {
	f := make([]byte, 12)
	copy(f[0:4], srcIP[:])
	copy(f[4:8], dstIP[:])
	f[8] = byte(sport >> 8)
	f[9] = byte(sport)
	f[10] = byte(dport >> 8)
	f[11] = byte(dport)
	return f
}

func fourTupleWindow() HashWindow {
	return HashWindow{
		Start: 0, End: 12,
		AddrPairs: []AddrPair{
			{AStart: 0, AEnd: 4, BStart: 4, BEnd: 8},
			{AStart: 8, AEnd: 10, BStart: 10, BEnd: 12},
		},
	}
}

func TestHashFrameIsSymmetricForForwardAndReverseFlow(t *testing.T) {
	fwd := buildFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 4000, 443)
	rev := buildFrame([4]byte{10, 0, 0, 2}, [4]byte{10, 0, 0, 1}, 443, 4000)

	assert.Equal(t, HashFrame(fwd, fourTupleWindow(), nil), HashFrame(rev, fourTupleWindow(), nil))
}

func TestHashFrameDiffersForDifferentFlows(t *testing.T) {
	a := buildFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 4000, 443)
	b := buildFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 3}, 4000, 443)

	assert.NotEqual(t, HashFrame(a, fourTupleWindow(), nil), HashFrame(b, fourTupleWindow(), nil))
}

func TestHashFrameDoesNotMutateInput(t *testing.T) {
	fwd := buildFrame([4]byte{10, 0, 0, 2}, [4]byte{10, 0, 0, 1}, 443, 4000)
	cp := append([]byte(nil), fwd...)
	HashFrame(fwd, fourTupleWindow(), nil)
	assert.Equal(t, cp, fwd)
}

func TestHashFrameHonorsCustomPRF(t *testing.T) {
	frame := buildFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 1, 2)
	constPRF := fakePRF(func([]byte) uint64 { return 42 })
	assert.Equal(t, uint64(42), HashFrame(frame, fourTupleWindow(), constPRF))
}

type fakePRF func([]byte) uint64

func (f fakePRF) Sum64(data []byte) uint64 { return f(data) }

func TestSwapCanonicalIgnoresOutOfRangeIndices(t *testing.T) {
	window := []byte{1, 2, 3}
	assert.NotPanics(t, func() { swapCanonical(window, 0, 2, 5, 7) })
	assert.Equal(t, []byte{1, 2, 3}, window)
}
