// Package pvbuf implements the scatter-gather packet buffer manager named
// in spec.md §3 "PVbuf Data Model" and specified in full in §4.7 and §6.4:
// packets built from non-contiguous memory, referenced through a tagged
// 64-bit address and manipulated without ever copying more than necessary.
package pvbuf

// Tag identifies what a [Paddr] addresses (spec.md §3 "A packet address
// (paddr) is a 64-bit tagged pointer").
type Tag uint8

const (
	// TagPVbuf addresses an index into the manager's pool of PVbuf nodes,
	// each an array of 2..n iovecs.
	TagPVbuf Tag = iota
	// TagPBuf addresses a packet-buffer slot with an external refcount.
	TagPBuf
	// TagPBuf1Ref addresses a packet-buffer slot that promises a single
	// logical reference; promoted to TagPBuf on first Clone.
	TagPBuf1Ref
	// TagShort0, TagShort1, TagShort2 index one of three external regions
	// registered with the manager (spec.md §3 "short-address variants
	// (indexing one of three external regions)").
	TagShort0
	TagShort1
	TagShort2
	// TagLongAddr marks a 128-bit address occupying two adjacent iovec
	// slots; the second slot is never iterated as an independent entry.
	TagLongAddr
	tagInvalid
)

const tagBits = 3
const tagMask = uint64(1<<tagBits - 1)

// Paddr is a tagged packet address: a [Tag] in the low bits and an index
// into one of the manager's pools in the high bits.
type Paddr uint64

// Nil is the absent/invalid address. It is not the zero value of Paddr:
// Paddr(0) is tag 0, index 0, a legitimate PVBUF slot, so a zero-valued
// Paddr field addresses PVBUF slot zero and IsNil reports false for it.
const Nil Paddr = Paddr(tagInvalid)

func makePaddr(tag Tag, index uint64) Paddr {
	return Paddr(index<<tagBits | uint64(tag))
}

// Tag reports which pool p addresses.
func (p Paddr) Tag() Tag { return Tag(uint64(p) & tagMask) }

func (p Paddr) index() uint64 { return uint64(p) >> tagBits }

// IsNil reports whether p is the absent address.
func (p Paddr) IsNil() bool { return p.Tag() == tagInvalid }
