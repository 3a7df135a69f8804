package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xdp2-go/xdp2/internal/dtable"
)

func testTLVOps() *TLVOps {
	return &TLVOps{
		Type: func(cp []byte) int64 { return int64(cp[0]) },
		Len:  func(cp []byte, remaining int) int { return int(cp[1]) },
	}
}

func TestRunTLVLoopWalksEntriesAndExtracts(t *testing.T) {
	var seen []byte
	node := &TLVNode{Name: "opt1", ProtoDef: &ProtoDef{MinLen: 2}, Ops: Ops{
		ExtractMetadata: func(tlv, frame []byte, ctrl *Control) { seen = append(seen, tlv...) },
	}}
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: node}), UnknownTLVTypeRet: StopUnknownProto}

	hdr := []byte{1, 4, 0xAA, 0xBB, 1, 2}
	code := runTLVLoop(testTLVOps(), table, hdr, make([]byte, 8), len(hdr), &Control{})

	assert.Equal(t, Okay, code)
	assert.Equal(t, []byte{1, 4, 0xAA, 0xBB, 1, 2}, seen)
}

func TestRunTLVLoopEnforcesMaxTLVs(t *testing.T) {
	node := &TLVNode{ProtoDef: &ProtoDef{MinLen: 2}}
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: node}), MaxTLVs: 1}

	hdr := []byte{1, 2, 1, 2}
	code := runTLVLoop(testTLVOps(), table, hdr, nil, len(hdr), &Control{})
	assert.Equal(t, StopOptionLimit, code)
}

func TestRunTLVLoopUnknownTypeFallsBackToRet(t *testing.T) {
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{}), UnknownTLVTypeRet: StopFail}
	hdr := []byte{9, 2}
	code := runTLVLoop(testTLVOps(), table, hdr, nil, len(hdr), &Control{})
	assert.Equal(t, StopFail, code)
}

func TestRunTLVLoopZeroLengthIsStopTLVLength(t *testing.T) {
	node := &TLVNode{ProtoDef: &ProtoDef{MinLen: 2}}
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: node})}
	hdr := []byte{1, 0}
	code := runTLVLoop(testTLVOps(), table, hdr, nil, len(hdr), &Control{})
	assert.Equal(t, StopTLVLength, code)
}

func TestRunTLVLoopLengthExceedingRemainingIsStopTLVLength(t *testing.T) {
	node := &TLVNode{ProtoDef: &ProtoDef{MinLen: 2}}
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: node})}
	hdr := []byte{1, 99}
	code := runTLVLoop(testTLVOps(), table, hdr, nil, len(hdr), &Control{})
	assert.Equal(t, StopTLVLength, code)
}

func TestProcessOneTLVRecursesIntoNestedTable(t *testing.T) {
	var innerSeen []byte
	inner := &TLVNode{Name: "inner", ProtoDef: &ProtoDef{MinLen: 2}, Ops: Ops{
		ExtractMetadata: func(tlv, frame []byte, ctrl *Control) { innerSeen = append(innerSeen, tlv...) },
	}}
	innerTable := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: inner}), UnknownTLVTypeRet: StopUnknownProto}

	outer := &TLVNode{
		Name:      "outer",
		ProtoDef:  &ProtoDef{MinLen: 2},
		Nested:    innerTable,
		NestedOps: testTLVOps(),
		// The nested TLV starts after the outer type and length bytes.
		NestedOffset: func(hdr []byte, tlvLen int) int { return 2 },
	}
	outerTable := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: outer}), UnknownTLVTypeRet: StopUnknownProto}

	// outer TLV: type=1, len=6, value is itself one nested TLV: type=1, len=4, {0xAA,0xBB}.
	hdr := []byte{1, 6, 1, 4, 0xAA, 0xBB}
	ctrl := &Control{}
	code := runTLVLoop(testTLVOps(), outerTable, hdr, nil, len(hdr), ctrl)

	assert.Equal(t, Okay, code)
	assert.Equal(t, []byte{1, 4, 0xAA, 0xBB}, innerSeen)
	assert.Equal(t, 0, ctrl.Var.TLVLevels, "level counter must be restored after recursion")
}

func TestRunTLVLoopPad1SkipsAndEOLStops(t *testing.T) {
	node := &TLVNode{ProtoDef: &ProtoDef{MinLen: 2}}
	table := &TLVTable{Table: dtable.NewPlain(map[int64]*TLVNode{1: node})}
	ops := &TLVOps{
		Type:       func(cp []byte) int64 { return int64(cp[0]) },
		Len:        func(cp []byte, remaining int) int { return int(cp[1]) },
		Pad1Enable: true,
		Pad1Val:    0,
		EOLEnable:  true,
		EOLVal:     0xFF,
	}
	hdr := []byte{0, 0, 1, 2, 0xFF, 1, 2}
	code := runTLVLoop(ops, table, hdr, nil, len(hdr), &Control{})
	assert.Equal(t, Okay, code)
}
