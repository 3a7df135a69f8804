package xdp2

import "github.com/xdp2-go/xdp2/internal/sync2"

// Control is the control block flowed through every engine call (spec.md
// §3 "Control Block", §6.3). A caller allocates one per Parse call (or
// reuses one across calls); the engine resets Var at the start of each call
// and owns it for the duration of the call.
type Control struct {
	Pkt struct {
		Packet []byte
		PktLen int
		Seqno  uint64
	}
	Hdr struct {
		HdrOffset int
		HdrLen    int
	}
	// Var holds engine-owned bookkeeping. Callers should treat it as
	// read-only; the engine resets it at the start of every Parse call.
	Var struct {
		Encaps     int
		TLVLevels  int
		RetCode    StopCode
		LastNode   *Node
	}
	Key struct {
		Keys     []int64
		Counters []int64
	}
}

// reset clears the engine-owned half of the control block and sizes the
// user-scratch vectors per the parser's configuration (spec.md §3 "A
// Parser binds ... num_counters, num_keys").
func (c *Control) reset(cfg ParserConfig, packet []byte) {
	c.Pkt.Packet = packet
	c.Pkt.PktLen = len(packet)
	c.Hdr.HdrOffset = 0
	c.Hdr.HdrLen = 0
	c.Var.Encaps = 0
	c.Var.TLVLevels = 0
	c.Var.RetCode = Okay
	c.Var.LastNode = nil
	if cap(c.Key.Keys) < cfg.NumKeys {
		c.Key.Keys = make([]int64, cfg.NumKeys)
	} else {
		c.Key.Keys = c.Key.Keys[:cfg.NumKeys]
		clear(c.Key.Keys)
	}
	if cap(c.Key.Counters) < cfg.NumCounters {
		c.Key.Counters = make([]int64, cfg.NumCounters)
	} else {
		c.Key.Counters = c.Key.Counters[:cfg.NumCounters]
		clear(c.Key.Counters)
	}
}

// controlPool recycles Control blocks, including their Key.Keys and
// Key.Counters backing arrays, across Parse calls in a high-rate caller
// (spec.md §3: "A caller allocates one per Parse call ... or reuses one
// across calls").
var controlPool = sync2.Pool[Control]{
	Reset: func(c *Control) {
		c.Pkt.Packet = nil
		c.Var.LastNode = nil
	},
}

// AcquireControl returns a pooled Control and a function to release it back
// to the pool once the caller is done with the result of a Parse call.
// reset still runs at the start of the next Parse call, so the returned
// Control need not be zeroed by the caller.
func AcquireControl() (ctrl *Control, release func()) {
	return controlPool.Get()
}
