package pvbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(t *testing.T, m *Manager, p Paddr) []byte {
	t.Helper()
	var got []byte
	m.Iterate(p, func(data []byte) bool {
		got = append(got, data...)
		return true
	})
	return got
}

// TestCloneFullLengthIteratesToTheSameBytes is §8 property 5:
// clone(src, 0, total_len(src)) yields a pvbuf whose iterate produces the
// same byte sequence as iterate(src).
func TestCloneFullLengthIteratesToTheSameBytes(t *testing.T) {
	m := testManager()
	src := mustAlloc(t, m, "the quick brown fox jumps over")

	clone, actual, err := m.Clone(src, 0, len("the quick brown fox jumps over"))
	require.NoError(t, err)
	assert.Equal(t, len("the quick brown fox jumps over"), actual)

	assert.Equal(t, flatten(t, m, src), flatten(t, m, clone))
}

// TestPopHeadersThenPrependRestoresIterate is §8 property 6: pop_hdrs(p, n)
// followed by prepend_*(p, popped) restores iterate(p).
func TestPopHeadersThenPrependRestoresIterate(t *testing.T) {
	m := testManager()
	p := mustAlloc(t, m, "HELLOWORLD")
	original := flatten(t, m, p)

	popped := make([]byte, 4)
	rest, n := m.PopHeaders(p, 4, false, popped)
	require.Equal(t, 4, n)

	addend, err := m.Alloc(4)
	require.NoError(t, err)
	m.CopyFrom(addend, popped, 0)

	restored, err := m.Prepend(rest, addend, 4)
	require.NoError(t, err)

	assert.Equal(t, original, flatten(t, m, restored))
}
