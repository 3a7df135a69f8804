package xdp2

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// FramePRF is the callable contract a flow hash is computed through
// (spec.md §1 keeps SipHash itself out of scope, "specified only by its
// callable contract"). A FramePRF must be deterministic for a fixed key and
// input.
type FramePRF interface {
	Sum64(data []byte) uint64
}

// defaultFramePRF is the package-wide default, a keyed blake2b instance
// truncated to 64 bits. A shared hash.Hash would not be concurrency-safe,
// so it recomputes a fresh digest per call instead of holding one open; see
// blake2bPRF.Sum64.
var defaultFramePRF FramePRF = newBlake2bPRF(defaultFrameHashKey)

// defaultFrameHashKey is an arbitrary fixed key: hash_frame has no wire
// requirement to be unpredictable across processes, only stable within one
// (spec.md §6.1 only requires forward/reverse flow collision, not
// resistance to off-path guessing).
var defaultFrameHashKey = []byte("xdp2-hash-frame-default-key-0001")

type blake2bPRF struct{ key []byte }

func newBlake2bPRF(key []byte) *blake2bPRF { return &blake2bPRF{key: key} }

func (p *blake2bPRF) Sum64(data []byte) uint64 {
	h, err := blake2b.New(8, p.key)
	if err != nil {
		// Only possible if len(key) > 64, which defaultFrameHashKey never
		// is; a caller-supplied FramePRF with a bad key is their bug.
		panic("xdp2: invalid FramePRF key: " + err.Error())
	}
	h.Write(data)
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// HashWindow names the byte ranges within a metadata frame that
// hash_frame consistentifies and feeds to the PRF (spec.md §6.1). Address
// pairs are the fields most often compared for forward/reverse flow
// collision (e.g. {src,dst} IP, {sport,dport}); AddrPairs lists each pair as
// the two half-ranges to be endian-swapped into a canonical order together.
type HashWindow struct {
	// Start and End bound the byte range of frame fed to the PRF, [Start, End).
	Start, End int
	// AddrPairs lists symmetric field pairs within [Start, End). Each pair's two
	// ranges are compared byte-for-byte and, if the first sorts after the
	// second, swapped before hashing — this is the "consistentifying" step
	// that makes a forward flow's hash equal its reverse flow's hash.
	AddrPairs []AddrPair
}

// AddrPair is one pair of byte ranges within a frame that must be ordered
// canonically before hashing, each relative to the frame's own start (not
// HashWindow.Start).
type AddrPair struct {
	AStart, AEnd int
	BStart, BEnd int
}

// HashFrame computes a flow hash over frame's hash window using prf (or the
// package default if prf is nil), after consistentifying every declared
// address pair so a forward flow and its reverse collide (spec.md §6.1).
// frame is not mutated; the swap, if any, happens on a scratch copy.
func HashFrame(frame []byte, win HashWindow, prf FramePRF) uint64 {
	if prf == nil {
		prf = defaultFramePRF
	}
	end := win.End
	if end > len(frame) {
		end = len(frame)
	}
	start := win.Start
	if start > end {
		start = end
	}

	window := append([]byte(nil), frame[start:end]...)
	for _, pair := range win.AddrPairs {
		swapCanonical(window, pair.AStart-start, pair.AEnd-start, pair.BStart-start, pair.BEnd-start)
	}
	return prf.Sum64(window)
}

// swapCanonical compares window[aStart:aEnd] against window[bStart:bEnd]
// lexicographically and swaps them in place if a sorts after b, so that
// {a, b} and {b, a} hash identically. Out-of-range indices are a no-op: a
// caller describing a HashWindow for a frame shape that doesn't apply to
// every packet (e.g. an IPv6 pair on an IPv4 frame) should not crash.
func swapCanonical(window []byte, aStart, aEnd, bStart, bEnd int) {
	if aStart < 0 || bStart < 0 || aEnd > len(window) || bEnd > len(window) {
		return
	}
	if aEnd-aStart != bEnd-bStart {
		return
	}
	a := window[aStart:aEnd]
	b := window[bStart:bEnd]
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return
			}
			break
		}
	}
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
}
