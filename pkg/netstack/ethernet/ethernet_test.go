package ethernet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/pkg/netstack"
)

func testInterface() *netstack.Interface {
	iface := &netstack.Interface{
		ID:      0,
		Name:    "test0",
		Enabled: true,
		MAC:     net.HardwareAddr{0x52, 0x54, 0x00, 0x12, 0x34, 0x56},
		IP:      net.IPv4(10, 0, 2, 15).To4(),
	}
	iface.InitQueues(8)
	return iface
}

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderLength)
	src := net.HardwareAddr{0x52, 0x54, 0x00, 0xAA, 0xBB, 0xCC}
	PutHeader(buf, Broadcast, src, TypeIPv4)

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, Broadcast, h.Dst)
	assert.Equal(t, src, h.Src)
	assert.Equal(t, TypeIPv4, h.Type)
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderLength-1))
	assert.Error(t, err)
}

func TestPrepare(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, HeaderLength+10)

	f, err := Prepare(buf, iface, 10, TypeIPv4)
	require.NoError(t, err)

	assert.Equal(t, HeaderLength, f.Index)
	assert.Equal(t, 0, f.Tag(netstack.TagLink))
	assert.Equal(t, iface.ID, f.Interface)
	assert.Len(t, f.Payload, HeaderLength+10)

	h, err := ParseHeader(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, Broadcast, h.Dst)
	assert.Equal(t, iface.MAC, h.Src)
}

func TestPrepareBufferTooSmall(t *testing.T) {
	_, err := Prepare(make([]byte, HeaderLength), testInterface(), 10, TypeIPv4)
	assert.Error(t, err)
}

func TestFinalizeClonesUserFrames(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, HeaderLength+4)

	f, err := Prepare(buf, iface, 4, TypeIPv4)
	require.NoError(t, err)
	f.User = true

	require.NoError(t, Finalize(iface, f))

	out := iface.NextOutbound()
	require.NotNil(t, out)
	assert.False(t, out.User)
	assert.Equal(t, f.Payload, out.Payload)
	assert.NotSame(t, &f.Payload[0], &out.Payload[0])
}

func TestFinalizeKernelFramesQueueDirectly(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, HeaderLength)

	f, err := Prepare(buf, iface, 0, TypeIPv4)
	require.NoError(t, err)

	require.NoError(t, Finalize(iface, f))
	assert.Same(t, f, iface.NextOutbound())
}

func TestDecode(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, HeaderLength+4)
	PutHeader(buf, Broadcast, iface.MAC, TypeARP)

	f := &netstack.Frame{Payload: buf}
	et, err := Decode(iface, f)
	require.NoError(t, err)
	assert.Equal(t, TypeARP, et)
	assert.Equal(t, HeaderLength, f.Index)
	assert.Equal(t, 0, f.Tag(netstack.TagLink))
}
