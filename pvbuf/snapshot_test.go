package pvbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCapturesPbufBytesIndependently(t *testing.T) {
	m := testManager()
	p, err := m.Alloc(16)
	require.NoError(t, err)
	m.CopyFrom(p, []byte("0123456789abcdef"), 0)

	before := m.Snapshot()
	require.Len(t, before.Pbufs, 1)
	assert.Equal(t, []byte("0123456789abcdef"), before.Pbufs[0].Bytes)

	m.CopyFrom(p, []byte("################"), 0)

	assert.Equal(t, []byte("0123456789abcdef"), before.Pbufs[0].Bytes,
		"snapshot bytes must not alias the live pbuf")
}

func TestSnapshotMarksFreedPbufsAndPvbufs(t *testing.T) {
	m := testManager()
	p, err := m.Alloc(5000)
	require.NoError(t, err)

	live := m.Snapshot()
	require.Len(t, live.Pvbufs, 1)
	assert.False(t, live.Pvbufs[0].Freed)
	assert.NotEmpty(t, live.Pvbufs[0].Slots)

	m.Free(p)

	after := m.Snapshot()
	assert.True(t, after.Pvbufs[0].Freed)
	for _, pb := range after.Pbufs {
		assert.True(t, pb.Freed)
	}
}

func TestSnapshotReflectsRefcountAfterClone(t *testing.T) {
	m := testManager()
	p, err := m.Alloc(8)
	require.NoError(t, err)

	before := m.Snapshot()
	assert.Equal(t, int32(0), before.Pbufs[0].RefCount)

	_, _, err = m.Clone(p, 0, 8)
	require.NoError(t, err)

	after := m.Snapshot()
	assert.Equal(t, int32(2), after.Pbufs[0].RefCount)
}
