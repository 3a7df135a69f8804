package pvbuf

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// PVbufConfig sizes the PVbuf node pool: every node in one Manager has
// Capacity iovec slots.
type PVbufConfig struct {
	Capacity int
}

// ShortRegion is one of the three external regions a short-address [Paddr]
// may index into (spec.md §3). Stride bytes are addressed per index.
type ShortRegion struct {
	Base   []byte
	Stride int
}

// Manager owns every pool a PVbuf graph is built from: the pbuf byte
// allocator, the PVbuf node pool, and the three short-address regions
// (spec.md §6.4 "pvbuf_init(pbuf_alloc_cfg, pvbuf_alloc_cfg, flags,
// short_cfg, long_cfg)"). A Manager is safe for concurrent use: every
// exported method holds its mutex, which protects every pool, and PBuf
// reference-count updates additionally use sync/atomic (spec.md §5 "PVbuf reference counts: atomically incremented/decremented;
// the only inter-thread synchronization").
type Manager struct {
	id uuid.UUID

	mu sync.Mutex

	alloc *bucketAllocator

	pvbufCap  int
	pvbufs    []*pvbufNode
	pvbufFree []uint64

	pbufs      [][]byte
	pbufBucket []int
	pbufFree   []uint64
	refcounts  []int32

	shorts [3]ShortRegion
}

// NewManager builds a Manager per the configuration groups spec.md §6.4
// names (pbuf_alloc_cfg, pvbuf_alloc_cfg, and the three short regions;
// "flags" and long_cfg have no observable effect at this layer and are not
// modeled).
func NewManager(allocCfg AllocConfig, pvbufCfg PVbufConfig, shorts [3]ShortRegion) *Manager {
	if pvbufCfg.Capacity < 2 {
		pvbufCfg.Capacity = 2
	}
	return &Manager{
		id:       uuid.New(),
		alloc:    newBucketAllocator(allocCfg),
		pvbufCap: pvbufCfg.Capacity,
		shorts:   shorts,
	}
}

// ID returns the manager's instance identifier, used only in debug traces.
func (m *Manager) ID() uuid.UUID { return m.id }

// Alloc reserves n bytes and returns a PBUF_1REF paddr to them (spec.md
// §6.4 "pvbuf_alloc(size) -> paddr"). A request larger than the bucket the
// slack policy picks for it (in particular, larger than the allocator's
// largest bucket) is satisfied by a chain of pbufs linked under a fresh
// PVbuf (spec.md §4.7 "A single request n may be satisfied by a chain of
// pbufs appended into iovec slots of successive pvbufs").
func (m *Manager) Alloc(n int) (Paddr, error) {
	if n <= 0 {
		return Nil, fmt.Errorf("pvbuf: alloc size must be positive, got %d", n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.alloc.buckets[m.alloc.classify(n)].size >= n {
		return m.allocOnePbuf(n), nil
	}

	root, node := m.reservePvbufNode()
	remaining := n
	for remaining > 0 {
		chunk := remaining
		if size := m.alloc.buckets[m.alloc.classify(chunk)].size; chunk > size {
			chunk = size
		}
		p := m.allocOnePbuf(chunk)
		if !node.pushBack(iovec{occupied: true, child: p, off: 0, len: chunk}) {
			return Nil, fmt.Errorf("pvbuf: alloc of %d bytes needs more chain links than capacity %d allows", n, m.pvbufCap)
		}
		remaining -= chunk
	}
	return root, nil
}

func (m *Manager) allocOnePbuf(n int) Paddr {
	buf, bucketIdx := m.alloc.alloc(n)
	idx := m.reservePbufSlot()
	m.pbufs[idx] = buf[:n]
	m.pbufBucket[idx] = bucketIdx
	m.refcounts[idx] = 0
	return makePaddr(TagPBuf1Ref, idx)
}

func (m *Manager) reservePbufSlot() uint64 {
	if len(m.pbufFree) > 0 {
		idx := m.pbufFree[len(m.pbufFree)-1]
		m.pbufFree = m.pbufFree[:len(m.pbufFree)-1]
		return idx
	}
	m.pbufs = append(m.pbufs, nil)
	m.pbufBucket = append(m.pbufBucket, 0)
	m.refcounts = append(m.refcounts, 0)
	return uint64(len(m.pbufs) - 1)
}

func (m *Manager) reservePvbufNode() (Paddr, *pvbufNode) {
	node := newPvbufNode(m.pvbufCap)
	var idx uint64
	if len(m.pvbufFree) > 0 {
		idx = m.pvbufFree[len(m.pvbufFree)-1]
		m.pvbufFree = m.pvbufFree[:len(m.pvbufFree)-1]
		m.pvbufs[idx] = node
	} else {
		m.pvbufs = append(m.pvbufs, node)
		idx = uint64(len(m.pvbufs) - 1)
	}
	return makePaddr(TagPVbuf, idx), node
}

// Free releases paddr (spec.md §6.4 "pvbuf_free(paddr)"): a PVBUF frees its
// occupied children recursively before returning its slot; a PBUF
// decrements its refcount and only releases the backing buffer at zero; a
// PBUF_1REF releases immediately unless a Clone has promoted its buffer, in
// which case it is decremented like a PBUF.
func (m *Manager) Free(p Paddr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.free(p)
}

func (m *Manager) free(p Paddr) {
	switch p.Tag() {
	case TagPVbuf:
		node := m.pvbufs[p.index()]
		for _, s := range node.slots {
			if s.occupied && !s.isLongCont {
				m.free(s.child)
			}
		}
		m.pvbufs[p.index()] = nil
		m.pvbufFree = append(m.pvbufFree, p.index())
	case TagPBuf1Ref:
		// A Clone's reference leaves a refcount that counts this holder too.
		if m.refcounts[p.index()] > 0 {
			if atomic.AddInt32(&m.refcounts[p.index()], -1) <= 0 {
				m.releasePbuf(p.index())
			}
			return
		}
		m.releasePbuf(p.index())
	case TagPBuf:
		if atomic.AddInt32(&m.refcounts[p.index()], -1) <= 0 {
			m.releasePbuf(p.index())
		}
	default:
		// Short/long-address regions are externally owned.
	}
}

func (m *Manager) releasePbuf(idx uint64) {
	m.alloc.freeBuf(m.pbufBucket[idx], m.pbufs[idx])
	m.pbufs[idx] = nil
	m.pbufFree = append(m.pbufFree, idx)
}

// reference bumps a leaf's refcount, promoting PBUF_1REF to PBUF on first
// clone (spec.md §4.7 "Reference counting").
func (m *Manager) reference(p Paddr) Paddr {
	switch p.Tag() {
	case TagPBuf1Ref:
		idx := p.index()
		m.refcounts[idx] = 2
		return makePaddr(TagPBuf, idx)
	case TagPBuf:
		atomic.AddInt32(&m.refcounts[p.index()], 1)
		return p
	default:
		return p
	}
}

// bytesOf resolves a leaf paddr to its backing bytes. Returns nil for a
// PVBUF or long-address paddr, neither of which is a leaf.
func (m *Manager) bytesOf(p Paddr) []byte {
	switch p.Tag() {
	case TagPBuf, TagPBuf1Ref:
		return m.pbufs[p.index()]
	case TagShort0, TagShort1, TagShort2:
		r := m.shorts[p.Tag()-TagShort0]
		start := int(p.index()) * r.Stride
		end := start + r.Stride
		if end > len(r.Base) {
			end = len(r.Base)
		}
		if start > len(r.Base) {
			return nil
		}
		return r.Base[start:end]
	default:
		return nil
	}
}

func (m *Manager) subtreeLength(p Paddr) int {
	if p.Tag() != TagPVbuf {
		return len(m.bytesOf(p))
	}
	node := m.pvbufs[p.index()]
	total := 0
	for _, s := range node.slots {
		if s.occupied && !s.isLongCont {
			total += s.length(m)
		}
	}
	return total
}
