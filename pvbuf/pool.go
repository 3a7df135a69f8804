package pvbuf

// AllocConfig configures the power-of-two bucket allocator backing pbuf
// requests (spec.md §4.7 "Allocation").
type AllocConfig struct {
	// BaseShift and CeilShift bound the bucket exponents: buckets exist for
	// sizes 2^BaseShift .. 2^CeilShift.
	BaseShift, CeilShift int
	// Fact is the slack policy threshold in [0, 65536]: an n-byte request
	// into a bucket of size B uses that bucket exactly when
	// n > Fact*B/65536; otherwise it is routed to progressively smaller
	// buckets (spec.md §4.7).
	Fact uint32
}

// bucketAllocator classifies pbuf requests into power-of-two size buckets,
// grounded in the teacher's internal/arena block-per-size-class structure
// (arena.go's `blocks []*byte` indexed by size-class log2) but reimplemented
// as a free-list per bucket instead of a bump allocator, since pbufs here
// are freed individually and reused — the arena, by contrast, is never
// freed a block at a time.
type bucketAllocator struct {
	fact    uint32
	buckets []*bucket
}

type bucket struct {
	size int
	free [][]byte
}

func newBucketAllocator(cfg AllocConfig) *bucketAllocator {
	if cfg.CeilShift < cfg.BaseShift {
		cfg.CeilShift = cfg.BaseShift
	}
	n := cfg.CeilShift - cfg.BaseShift + 1
	buckets := make([]*bucket, n)
	for i := range buckets {
		buckets[i] = &bucket{size: 1 << (cfg.BaseShift + i)}
	}
	return &bucketAllocator{fact: cfg.Fact, buckets: buckets}
}

// classify picks the bucket index for an n-byte request, applying the Fact
// slack policy (spec.md §4.7).
func (a *bucketAllocator) classify(n int) int {
	idx := len(a.buckets) - 1
	for i, b := range a.buckets {
		if b.size >= n {
			idx = i
			break
		}
	}
	for idx > 0 {
		threshold := int64(a.fact) * int64(a.buckets[idx].size) / 65536
		if int64(n) > threshold {
			break
		}
		idx--
	}
	return idx
}

// alloc returns a byte slice of the size of the bucket classify picks for n
// and the bucket index, reusing a freed slice when one is available. The
// slack policy can pick a bucket smaller than n; [Manager.Alloc] chains such
// requests instead of calling alloc with them.
func (a *bucketAllocator) alloc(n int) ([]byte, int) {
	idx := a.classify(n)
	b := a.buckets[idx]
	if len(b.free) > 0 {
		buf := b.free[len(b.free)-1]
		b.free = b.free[:len(b.free)-1]
		for i := range buf {
			buf[i] = 0
		}
		return buf, idx
	}
	return make([]byte, b.size), idx
}

func (a *bucketAllocator) freeBuf(idx int, buf []byte) {
	b := a.buckets[idx]
	if cap(buf) < b.size {
		// A front-trimmed pbuf (see popLeaf) no longer spans its bucket.
		return
	}
	b.free = append(b.free, buf[:cap(buf)])
}

func (a *bucketAllocator) maxSize() int {
	return a.buckets[len(a.buckets)-1].size
}
