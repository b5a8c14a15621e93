package serial

import "testing"

import "github.com/stretchr/testify/assert"

func TestBufferOverflowKeepsSuffix(t *testing.T) {
	// overflow keeps the trailing bytes, dropping the oldest ones.
	b := newBuffer(4)
	b.append([]byte("ABCDE"))
	assert.Equal(t, []byte("BCDE"), b.snapshot())
	assert.LessOrEqual(t, b.len(), 4)
}

func TestBufferAppendAcrossChunks(t *testing.T) {
	b := newBuffer(0)
	b.append([]byte("PO"))
	b.append([]byte("NG\n"))
	assert.Equal(t, []byte("PONG\n"), b.snapshot())
}

func TestBufferDiscardThrough(t *testing.T) {
	b := newBuffer(0)
	b.append([]byte("garbage!ok#trailing"))
	idx := len("garbage!ok#") - 1
	b.discardThrough(idx)
	assert.Equal(t, []byte("trailing"), b.snapshot())
}

func TestBufferClear(t *testing.T) {
	b := newBuffer(0)
	b.append([]byte("xyz"))
	b.clear()
	assert.Equal(t, 0, b.len())
	assert.Nil(t, b.snapshot())
}
