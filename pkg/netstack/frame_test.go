package netstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTags(t *testing.T) {
	f := &Frame{Payload: make([]byte, 64)}
	f.SetTag(TagLink, 0)
	f.SetTag(TagNetwork, 14)
	f.SetTag(TagTransport, 34)
	f.SetTag(TagApp, 42)

	assert.Equal(t, 0, f.Tag(TagLink))
	assert.Equal(t, 14, f.Tag(TagNetwork))
	assert.Equal(t, 34, f.Tag(TagTransport))
	assert.Equal(t, 42, f.Tag(TagApp))
	assert.Equal(t, 64, f.Len())
}

func TestFrameClone(t *testing.T) {
	f := &Frame{
		Payload:   []byte{1, 2, 3, 4},
		Index:     2,
		Interface: 3,
		User:      true,
	}
	f.SetTag(TagNetwork, 1)

	c := f.Clone()
	assert.Equal(t, f.Payload, c.Payload)
	assert.Equal(t, f.Index, c.Index)
	assert.Equal(t, f.Interface, c.Interface)
	assert.Equal(t, f.Tag(TagNetwork), c.Tag(TagNetwork))

	// Clones are kernel-owned regardless of the source.
	assert.False(t, c.User)

	// The copy is independent of the original buffer.
	c.Payload[0] = 9
	assert.Equal(t, byte(1), f.Payload[0])
}

func TestFrameRelease(t *testing.T) {
	f := &Frame{Payload: []byte{1}}
	f.Release()
	assert.Nil(t, f.Payload)
	assert.Zero(t, f.Len())
}
