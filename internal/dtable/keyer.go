package dtable

import "golang.org/x/crypto/blake2b"

// Blake2Keyer is the default [Keyer]: a keyed BLAKE2b hash truncated to 64
// bits. spec.md names SipHash as the intended keyed PRF for dispatch tables
// but places its implementation out of scope ("specified only by their
// callable contract"); BLAKE2b's keyed mode satisfies the same contract —
// uniform, keyed, not attacker-predictable without the key — using a real
// dependency already present in the wider example corpus, rather than
// hand-rolling SipHash here.
type Blake2Keyer struct {
	key []byte
}

// NewBlake2Keyer builds a Keyer seeded with key, which must be at most 64
// bytes (BLAKE2b's maximum key size).
func NewBlake2Keyer(key []byte) (*Blake2Keyer, error) {
	// Validate eagerly so construction-time mistakes surface at graph-build
	// time, not on the first packet.
	if _, err := blake2b.New512(key); err != nil {
		return nil, err
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return &Blake2Keyer{key: cp}, nil
}

// Hash64 implements [Keyer].
func (k *Blake2Keyer) Hash64(data []byte) uint64 {
	h, err := blake2b.New512(k.key)
	if err != nil {
		// Unreachable: NewBlake2Keyer already validated the key.
		panic(err)
	}
	h.Write(data)
	sum := h.Sum(nil)
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(sum[i])
	}
	return v
}
