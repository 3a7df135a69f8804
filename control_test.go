package xdp2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlResetSizesKeyVectors(t *testing.T) {
	var c Control
	c.reset(ParserConfig{NumKeys: 3, NumCounters: 2}, []byte("hello"))

	assert.Len(t, c.Key.Keys, 3)
	assert.Len(t, c.Key.Counters, 2)
	assert.Equal(t, 5, c.Pkt.PktLen)
	assert.Equal(t, Okay, c.Var.RetCode)
}

func TestControlResetClearsStaleKeyValues(t *testing.T) {
	var c Control
	c.reset(ParserConfig{NumKeys: 2}, nil)
	c.Key.Keys[0] = 42
	c.Var.Encaps = 7

	c.reset(ParserConfig{NumKeys: 2}, nil)

	assert.Equal(t, []int64{0, 0}, c.Key.Keys)
	assert.Equal(t, 0, c.Var.Encaps)
}

func TestAcquireControlReturnsUsableControl(t *testing.T) {
	ctrl, release := AcquireControl()
	a := assert.New(t)
	a.NotNil(ctrl)

	ctrl.reset(ParserConfig{NumKeys: 1}, []byte("x"))
	ctrl.Key.Keys[0] = 9
	release()

	ctrl2, release2 := AcquireControl()
	defer release2()
	ctrl2.reset(ParserConfig{NumKeys: 1}, []byte("y"))
	a.Equal(int64(0), ctrl2.Key.Keys[0])
}
