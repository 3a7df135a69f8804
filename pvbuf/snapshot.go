package pvbuf

import "github.com/tiendc/go-deepcopy"

// PbufSnapshot is one pbuf slot's state as of a [Manager.Snapshot] call.
type PbufSnapshot struct {
	Bytes    []byte
	Bucket   int
	RefCount int32
	Freed    bool
}

// IovecSnapshot mirrors one occupied slot of a PVbuf node.
type IovecSnapshot struct {
	Child      Paddr
	Off        int
	Len        int
	LengthHint int
	IsLongCont bool
	LongCont   uint64
}

// PvbufNodeSnapshot is one PVbuf node's occupied window as of a
// [Manager.Snapshot] call. Slots covers only [front, back), in forward
// order; freed slots in the surrounding array carry no information.
type PvbufNodeSnapshot struct {
	Slots []IovecSnapshot
	Front int
	Back  int
	Freed bool
}

// ManagerSnapshot is an independent, deep copy of a Manager's pool state:
// no slice or backing array in a ManagerSnapshot aliases the Manager it was
// taken from. Intended for property tests that mutate a Manager and then
// assert every pbuf or pvbuf the mutation should not have touched is still
// byte-for-byte identical to a snapshot taken before the call.
type ManagerSnapshot struct {
	Pbufs  []PbufSnapshot
	Pvbufs []PvbufNodeSnapshot
}

// Snapshot captures a deep copy of m's current pool state.
func (m *Manager) Snapshot() ManagerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := ManagerSnapshot{
		Pbufs:  make([]PbufSnapshot, len(m.pbufs)),
		Pvbufs: make([]PvbufNodeSnapshot, len(m.pvbufs)),
	}
	for i := range m.pbufs {
		src.Pbufs[i] = PbufSnapshot{
			Bytes:    m.pbufs[i],
			Bucket:   m.pbufBucket[i],
			RefCount: m.refcounts[i],
			Freed:    m.pbufs[i] == nil,
		}
	}
	for i, node := range m.pvbufs {
		if node == nil {
			src.Pvbufs[i] = PvbufNodeSnapshot{Freed: true}
			continue
		}
		slots := make([]IovecSnapshot, 0, node.back-node.front)
		for _, s := range node.slots[node.front:node.back] {
			slots = append(slots, IovecSnapshot{
				Child: s.child, Off: s.off, Len: s.len,
				LengthHint: s.lengthHint, IsLongCont: s.isLongCont, LongCont: s.longCont,
			})
		}
		src.Pvbufs[i] = PvbufNodeSnapshot{Slots: slots, Front: node.front, Back: node.back}
	}

	var dst ManagerSnapshot
	if err := deepcopy.Copy(&dst, &src); err != nil {
		// src holds only plain value slices; Copy cannot fail on this
		// shape.
		panic(err)
	}
	return dst
}
