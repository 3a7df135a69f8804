package xdp2

import "github.com/xdp2-go/xdp2/internal/dtable"

// ParserTable maps a dispatch key (spec.md §6.1 "e.g., EtherType") to the
// [Parser] that handles packets keyed that way. Built once with
// [NewParserTable] and frozen thereafter, like every other dispatch table in
// this package.
type ParserTable struct {
	table   *dtable.Plain[int64, *Parser]
	unknown StopCode
}

// NewParserTable builds a frozen parser table. unknownRet is returned by
// [ParseFromTable] when key has no entry.
func NewParserTable(entries map[int64]*Parser, unknownRet StopCode) *ParserTable {
	return &ParserTable{table: dtable.NewPlain(entries), unknown: unknownRet}
}

// ParseFromTable looks up the parser bound to key and runs [Parse] with it
// (spec.md §6.1 "parse_from_table ... looks up one of several parsers by key
// ... and dispatches").
func ParseFromTable(pt *ParserTable, key int64, packet, meta []byte, ctrl *Control, flags ParseFlags) StopCode {
	parser, hit := pt.table.Lookup(key)
	if !hit {
		return pt.unknown
	}
	return Parse(parser, packet, meta, ctrl, flags)
}
