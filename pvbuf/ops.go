package pvbuf

import (
	"errors"
	"fmt"
)

// maxEncodedLength is the largest value an optimistic length hint may hold
// before it is reset to 0 ("unknown, sum from subtree", spec.md §4.7
// "Slot lengths are updated optimistically").
const maxEncodedLength = 1<<31 - 1

func childIovec(p Paddr, off, length int) iovec {
	hint := length
	if p.Tag() != TagPVbuf {
		return iovec{occupied: true, child: p, off: off, len: length}
	}
	if hint < 0 || hint >= maxEncodedLength {
		hint = 0
	}
	return iovec{occupied: true, child: p, lengthHint: hint}
}

// Prepend attempts, in order, to place addend at the front of host (spec.md
// §4.7 "Prepend and append"):
//  1. an empty slot at the front of host;
//  2. if full and the first slot is itself a PVBUF, recurse into it;
//  3. otherwise allocate a new PVbuf, move the first slot into it, add the
//     addend, and replace the original slot with the new PVbuf.
//
// host may be any paddr, not only a PVBUF: a bare leaf is auto-wrapped in a
// new single-slot PVbuf before insertion. The returned paddr is the one
// callers must use going forward.
func (m *Manager) Prepend(host, addend Paddr, length int) (Paddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAt(host, addend, length, true)
}

// Append is [Manager.Prepend]'s symmetric counterpart, inserting at the
// back of host.
func (m *Manager) Append(host, addend Paddr, length int) (Paddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertAt(host, addend, length, false)
}

func (m *Manager) insertAt(host, addend Paddr, length int, front bool) (Paddr, error) {
	if host.Tag() != TagPVbuf {
		wrapped, node := m.reservePvbufNode()
		node.pushBack(childIovec(host, 0, len(m.bytesOf(host))))
		host = wrapped
	}

	node := m.pvbufs[host.index()]
	newSlot := childIovec(addend, 0, length)
	if (front && node.pushFront(newSlot)) || (!front && node.pushBack(newSlot)) {
		return host, nil
	}

	var edge iovec
	var edgeIdx int
	var has bool
	if front {
		edge, edgeIdx, has = node.frontSlot()
	} else {
		edge, edgeIdx, has = node.backSlot()
	}
	if !has {
		return host, fmt.Errorf("pvbuf: node has no slots to split")
	}

	if edge.child.Tag() == TagPVbuf {
		_, err := m.insertAt(edge.child, addend, length, front)
		return host, err
	}

	if len(node.slots) < 2 {
		return host, fmt.Errorf("pvbuf: node capacity %d too small to split", len(node.slots))
	}
	newPaddr, newNode := m.reservePvbufNode()
	// Grow from the middle in both directions so capacity 2 holds both.
	if front {
		newNode.pushBack(edge)
		newNode.pushFront(newSlot)
	} else {
		newNode.pushFront(edge)
		newNode.pushBack(newSlot)
	}
	node.slots[edgeIdx] = childIovec(newPaddr, 0, edge.length(m)+length)
	return host, nil
}

// Clone walks src's iovecs, skipping offset bytes, then references each
// visited leaf (bumping refcount, promoting PBUF_1REF to PBUF) into a
// freshly allocated pvbuf (spec.md §4.7 "Clone"). It returns the new paddr
// and the number of bytes actually referenced, which is less than length
// when src runs out of bytes first or, together with an error, when the
// clone needs more slots than one PVbuf holds.
func (m *Manager) Clone(src Paddr, offset, length int) (Paddr, int, error) {
	if length <= 0 {
		return Nil, 0, errors.New("pvbuf: clone length must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dstPaddr, dstNode := m.reservePvbufNode()
	remainingSkip := offset
	remainingLen := length
	overflowed := false

	var walk func(p Paddr) bool
	walk = func(p Paddr) bool {
		if remainingLen <= 0 {
			return false
		}
		if p.Tag() == TagPVbuf {
			node := m.pvbufs[p.index()]
			for _, s := range node.slots {
				if !s.occupied || s.isLongCont {
					continue
				}
				if !walk(s.child) {
					return false
				}
			}
			return true
		}

		total := len(m.bytesOf(p))
		if remainingSkip >= total {
			remainingSkip -= total
			return true
		}
		off := remainingSkip
		remainingSkip = 0
		take := total - off
		if take > remainingLen {
			take = remainingLen
		}
		ref := m.reference(p)
		if !dstNode.pushBack(iovec{occupied: true, child: ref, off: off, len: take}) {
			overflowed = true
			return false
		}
		remainingLen -= take
		return remainingLen > 0
	}
	walk(src)

	actual := length - remainingLen
	if remainingLen > 0 {
		m.fixupLengthHints(dstPaddr)
	}
	if overflowed {
		return dstPaddr, actual, fmt.Errorf("pvbuf: clone of %d bytes needs more slots than capacity %d allows", length, m.pvbufCap)
	}
	return dstPaddr, actual, nil
}

// fixupLengthHints recomputes every length hint in p's subtree from its
// actual contents (spec.md §4.7 "a fix-up pass walks the result to correct
// per-pvbuf length hints") and returns p's own total length.
func (m *Manager) fixupLengthHints(p Paddr) int {
	if p.Tag() != TagPVbuf {
		return len(m.bytesOf(p))
	}
	node := m.pvbufs[p.index()]
	total := 0
	for i, s := range node.slots {
		if !s.occupied || s.isLongCont {
			continue
		}
		l := s.len
		if s.child.Tag() == TagPVbuf {
			l = m.fixupLengthHints(s.child)
			node.slots[i].lengthHint = l
		}
		total += l
	}
	return total
}

// PopHeaders removes n bytes from the front of p (spec.md §4.7 "Pop head
// and pop tail"). If out is non-nil, the popped bytes are copied into it in
// logical order. compress requests the "uplevel" fold: a PVbuf left with
// exactly one occupied slot is replaced by that slot's child when the slot
// covers the whole child; a slot selecting part of a leaf is kept as is.
func (m *Manager) PopHeaders(p Paddr, n int, compress bool, out []byte) (Paddr, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pop(p, n, compress, out, true)
}

// PopTrailers is [Manager.PopHeaders]'s symmetric counterpart, removing
// from the back and walking iovecs in reverse.
func (m *Manager) PopTrailers(p Paddr, n int, compress bool, out []byte) (Paddr, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pop(p, n, compress, out, false)
}

func (m *Manager) pop(p Paddr, n int, compress bool, out []byte, front bool) (Paddr, int) {
	if n <= 0 {
		return p, 0
	}
	if p.Tag() != TagPVbuf {
		return m.popLeaf(p, n, out, front)
	}
	node := m.pvbufs[p.index()]
	popped, outOff := 0, 0

	for _, i := range node.order(front) {
		if n <= 0 {
			break
		}
		s := node.slots[i]
		if !s.occupied || s.isLongCont {
			continue
		}

		childLen := s.length(m)
		switch {
		case childLen <= n:
			if out != nil && outOff+childLen <= len(out) {
				m.copyLeafOrSubtree(s, out[outOff:outOff+childLen])
				outOff += childLen
			}
			m.free(s.child)
			node.slots[i] = iovec{}
			if front {
				node.front++
			} else {
				node.back--
			}
			n -= childLen
			popped += childLen

		case s.child.Tag() == TagPVbuf:
			newChild, took := m.pop(s.child, n, compress, sliceOrNil(out, outOff), front)
			node.slots[i].child = newChild
			if s.lengthHint > 0 {
				node.slots[i].lengthHint -= took
			}
			outOff += took
			popped += took
			n -= took

		default:
			data := m.bytesOf(s.child)[s.off : s.off+s.len]
			if out != nil && outOff+n <= len(out) {
				if front {
					copy(out[outOff:outOff+n], data[:n])
				} else {
					copy(out[outOff:outOff+n], data[s.len-n:])
				}
				outOff += n
			}
			if front {
				node.slots[i].off += n
			}
			node.slots[i].len -= n
			popped += n
			n = 0
		}
	}

	if compress {
		only, ok := node.onlyOccupied()
		if ok && only.child.Tag() != TagPVbuf && (only.off != 0 || only.len != len(m.bytesOf(only.child))) {
			ok = false
		}
		if ok {
			m.pvbufs[p.index()] = nil
			m.pvbufFree = append(m.pvbufFree, p.index())
			return only.child, popped
		}
	}
	return p, popped
}

// popLeaf handles [Manager.pop] when called directly on a bare leaf paddr
// rather than a PVBUF (spec.md §6.4's pop_hdrs/pop_trailers take any
// paddr). A leaf has no parent iovec to adjust off/len on, so it is trimmed
// in place by reslicing the manager's own backing buffer.
func (m *Manager) popLeaf(p Paddr, n int, out []byte, front bool) (Paddr, int) {
	if p.Tag() != TagPBuf && p.Tag() != TagPBuf1Ref {
		return p, 0
	}
	idx := p.index()
	data := m.pbufs[idx]
	total := len(data)
	take := n
	if take > total {
		take = total
	}
	if out != nil && take <= len(out) {
		if front {
			copy(out[:take], data[:take])
		} else {
			copy(out[:take], data[total-take:])
		}
	}
	if take >= total {
		m.free(p)
		return Nil, take
	}
	if front {
		m.pbufs[idx] = data[take:]
	} else {
		m.pbufs[idx] = data[:total-take]
	}
	return p, take
}

func sliceOrNil(b []byte, off int) []byte {
	if b == nil || off >= len(b) {
		return nil
	}
	return b[off:]
}

func (m *Manager) copyLeafOrSubtree(s iovec, dst []byte) {
	if s.child.Tag() == TagPVbuf {
		off := 0
		m.iterate(s.child, func(data []byte) bool {
			if off >= len(dst) {
				return false
			}
			off += copy(dst[off:], data)
			return off < len(dst)
		})
		return
	}
	copy(dst, m.bytesOf(s.child)[s.off:s.off+s.len])
}

// Iterate performs a depth-first walk of p, delivering flat (data) chunks
// to cb in visit order (spec.md §4.7 "iterate(paddr, cb, ctx) performs
// depth-first visits, delivering flat (ptr, len) chunks"). cb returns false
// to abort early. The iterator is restartable only by calling Iterate again
// from the root.
func (m *Manager) Iterate(p Paddr, cb func(data []byte) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterate(p, cb)
}

func (m *Manager) iterate(p Paddr, cb func([]byte) bool) bool {
	switch p.Tag() {
	case TagPVbuf:
		node := m.pvbufs[p.index()]
		for _, s := range node.slots {
			if !s.occupied || s.isLongCont {
				continue
			}
			if s.child.Tag() == TagPVbuf {
				if !m.iterate(s.child, cb) {
					return false
				}
				continue
			}
			data := m.bytesOf(s.child)[s.off : s.off+s.len]
			if !cb(data) {
				return false
			}
		}
		return true
	case TagPBuf, TagPBuf1Ref, TagShort0, TagShort1, TagShort2:
		return cb(m.bytesOf(p))
	default:
		return true
	}
}

// CopyTo copies up to length bytes starting at offset from src into dst
// (spec.md §4.7 "copy_to/from_pvbuf ... byte copy through the iterator").
// It returns the number of bytes written.
func (m *Manager) CopyTo(src Paddr, dst []byte, length, offset int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	written, skip := 0, offset
	max := length
	if len(dst) < max {
		max = len(dst)
	}
	m.iterate(src, func(data []byte) bool {
		if written >= max {
			return false
		}
		if skip > 0 {
			if skip >= len(data) {
				skip -= len(data)
				return true
			}
			data = data[skip:]
			skip = 0
		}
		written += copy(dst[written:max], data)
		return written < max
	})
	return written
}

// CopyFrom writes src's bytes into the PVbuf graph rooted at dst, starting
// at offset. Since the slices Iterate hands the callback alias the
// manager's own backing arrays, the copy is a plain write through them — no
// separate mutable-iteration path is needed.
func (m *Manager) CopyFrom(dst Paddr, src []byte, offset int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	written, skip := 0, offset
	m.iterate(dst, func(data []byte) bool {
		if written >= len(src) {
			return false
		}
		if skip > 0 {
			if skip >= len(data) {
				skip -= len(data)
				return true
			}
			data = data[skip:]
			skip = 0
		}
		written += copy(data, src[written:])
		return written < len(src)
	})
	return written
}

// Checksum computes the running 16-bit one's-complement sum of length bytes
// starting at offset, carrying an odd trailing byte across iovec boundaries
// (spec.md §4.7 "checksum(paddr, len, offset) ... maintaining an odd-byte
// carry between iovecs").
func (m *Manager) Checksum(p Paddr, length, offset int) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum uint32
	var carry byte
	haveCarry := false
	skip := offset
	remaining := length

	m.iterate(p, func(data []byte) bool {
		if remaining <= 0 {
			return false
		}
		if skip > 0 {
			if skip >= len(data) {
				skip -= len(data)
				return true
			}
			data = data[skip:]
			skip = 0
		}
		if len(data) > remaining {
			data = data[:remaining]
		}
		i := 0
		if haveCarry && len(data) > 0 {
			sum += uint32(carry)<<8 | uint32(data[0])
			i = 1
			haveCarry = false
		}
		for ; i+1 < len(data); i += 2 {
			sum += uint32(data[i])<<8 | uint32(data[i+1])
		}
		if i < len(data) {
			carry = data[i]
			haveCarry = true
		}
		remaining -= len(data)
		return remaining > 0
	})
	if haveCarry {
		sum += uint32(carry) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xFFFF + sum>>16
	}
	return uint16(sum)
}

// RawIovec is one flattened (data) chunk returned by [Manager.MakeIovecs].
type RawIovec struct {
	Data []byte
}

// ErrTooManyIovecs is returned by [Manager.MakeIovecs] when p flattens to
// more than max chunks (spec.md §4.7 "make_iovecs ... return the count (or
// a sentinel if max is exceeded)").
var ErrTooManyIovecs = errors.New("pvbuf: flattened iovec count exceeds max")

// MakeIovecs flattens p into a standard iovec array of at most max entries.
func (m *Manager) MakeIovecs(p Paddr, max int) ([]RawIovec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RawIovec
	overflow := false
	m.iterate(p, func(data []byte) bool {
		if len(out) >= max {
			overflow = true
			return false
		}
		out = append(out, RawIovec{Data: data})
		return true
	})
	if overflow {
		return out, ErrTooManyIovecs
	}
	return out, nil
}
