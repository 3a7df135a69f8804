package xdp2

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopCodeStringNamesKnownCodes(t *testing.T) {
	assert.Equal(t, "stop-okay", StopOkay.String())
	assert.Equal(t, "stop-tlv-length", StopTLVLength.String())
}

func TestStopCodeStringFormatsUserErrorsByNumber(t *testing.T) {
	assert.Equal(t, "user-error(-5)", StopCode(-5).String())
}

func TestStopCodeTerminal(t *testing.T) {
	assert.False(t, Okay.terminal())
	assert.True(t, StopOkay.terminal())
	assert.True(t, StopFail.terminal())
	assert.True(t, StopCode(-1).terminal())
}

func TestStopCodeOk(t *testing.T) {
	assert.True(t, Okay.ok())
	assert.True(t, StopOkay.ok())
	assert.False(t, StopFail.ok())
	assert.False(t, StopCode(-1).ok())
}

func TestParseErrorUnwrapsKnownCodes(t *testing.T) {
	e := &ParseError{Code: StopLength, Offset: 10, Node: "ipv4"}
	assert.Equal(t, io.ErrUnexpectedEOF, e.Unwrap())
}

func TestParseErrorUnwrapsNegativeCodesToNil(t *testing.T) {
	e := &ParseError{Code: StopCode(-7), Offset: 0, Node: "leaf"}
	assert.Nil(t, e.Unwrap())
}

func TestParseErrorMessageIncludesNodeAndOffset(t *testing.T) {
	e := &ParseError{Code: StopUnknownProto, Offset: 14, Node: "eth"}
	msg := e.Error()
	assert.Contains(t, msg, "eth")
	assert.Contains(t, msg, "14")
}
