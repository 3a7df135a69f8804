package dbg

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNoopWhenDisabled(t *testing.T) {
	Enabled = false

	tmp, err := os.CreateTemp(t.TempDir(), "dbg")
	require.NoError(t, err)
	defer tmp.Close()
	SetOutput(tmp)

	Log(nil, "visit", "node=%s", "eth")

	out, err := os.ReadFile(tmp.Name())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLogWritesFormattedLineWhenEnabled(t *testing.T) {
	Enabled = true
	defer func() { Enabled = false }()

	tmp, err := os.CreateTemp(t.TempDir(), "dbg")
	require.NoError(t, err)
	defer tmp.Close()
	SetOutput(tmp)

	Log([]any{"parser[%s]", "p1"}, "visit", "node=%s offset=%d", "eth", 0)

	out, err := os.ReadFile(tmp.Name())
	require.NoError(t, err)
	line := string(out)
	assert.True(t, strings.Contains(line, "parser[p1]"))
	assert.True(t, strings.Contains(line, "visit"))
	assert.True(t, strings.Contains(line, "node=eth offset=0"))
}

func TestFuncFormatsKnownFunctionName(t *testing.T) {
	s := Func(TestFuncFormatsKnownFunctionName).String()
	assert.Contains(t, s, "TestFuncFormatsKnownFunctionName")
}
