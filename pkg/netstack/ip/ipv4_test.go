package ipv4

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/pkg/netstack"
	"helios/pkg/netstack/ethernet"
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

func TestChecksum(t *testing.T) {
	// Worked example from the internet checksum definition.
	data := []byte{0x00, 0x01, 0xF2, 0x03, 0xF4, 0xF5, 0xF6, 0xF7}
	assert.Equal(t, uint16(0x220D), Checksum(data, 0))

	// Appending the computed checksum makes the sum come out zero.
	withSum := append(data, 0x22, 0x0D)
	assert.Zero(t, Checksum(withSum, 0))

	// Odd lengths pad the trailing byte.
	assert.Equal(t, ^uint16(0x0100), Checksum([]byte{0x01}, 0))
}

func TestPrepare(t *testing.T) {
	iface := testInterface()
	target := net.IPv4(10, 0, 2, 2)
	buf := make([]byte, ethernet.HeaderLength+HeaderLength+8)

	f, err := Prepare(buf, iface, target, 8, ProtoUDP)
	require.NoError(t, err)

	assert.Equal(t, ethernet.HeaderLength, f.Tag(netstack.TagNetwork))
	assert.Equal(t, ethernet.HeaderLength+HeaderLength, f.Index)

	h, err := ParseHeader(f.Payload[ethernet.HeaderLength:])
	require.NoError(t, err)
	assert.Equal(t, uint8(4), h.Version)
	assert.Equal(t, uint8(5), h.IHL)
	assert.Equal(t, uint16(HeaderLength+8), h.Length)
	assert.Equal(t, ProtoUDP, h.Protocol)
	assert.Equal(t, iface.IP, h.SrcIP)
	assert.Equal(t, target.To4(), h.DstIP)
}

func TestFinalizeWritesValidChecksum(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, ethernet.HeaderLength+HeaderLength)

	f, err := Prepare(buf, iface, net.IPv4(10, 0, 2, 2), 0, ProtoUDP)
	require.NoError(t, err)
	require.NoError(t, Finalize(iface, f))

	hdr := buf[ethernet.HeaderLength : ethernet.HeaderLength+HeaderLength]
	assert.Zero(t, Checksum(hdr, 0))
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", make([]byte, HeaderLength-1)},
		{"bad version", append([]byte{0x65}, make([]byte, HeaderLength-1)...)},
		{"bad ihl", append([]byte{0x44}, make([]byte, HeaderLength-1)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestDecodeAdvancesByIHL(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, ethernet.HeaderLength+HeaderLength+4)
	f, err := Prepare(buf, iface, net.IPv4(10, 0, 2, 2), 4, ProtoICMP)
	require.NoError(t, err)

	in := &netstack.Frame{Payload: f.Payload, Index: ethernet.HeaderLength}
	h, err := Decode(iface, in)
	require.NoError(t, err)
	assert.Equal(t, ProtoICMP, h.Protocol)
	assert.Equal(t, ethernet.HeaderLength, in.Tag(netstack.TagNetwork))
	assert.Equal(t, ethernet.HeaderLength+HeaderLength, in.Index)
}

func TestPrepareICMP(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, ethernet.HeaderLength+HeaderLength+ICMPHeaderLength+4)

	f, err := PrepareICMP(buf, iface, net.IPv4(127, 0, 0, 1), 4, ICMPEcho, 0)
	require.NoError(t, err)

	assert.Equal(t, ethernet.HeaderLength+HeaderLength, f.Tag(netstack.TagTransport))
	assert.Equal(t, ethernet.HeaderLength+HeaderLength+ICMPHeaderLength, f.Index)

	h, err := ParseICMPHeader(f.Payload[f.Tag(netstack.TagTransport):])
	require.NoError(t, err)
	assert.Equal(t, ICMPEcho, h.Type)
	assert.Zero(t, h.Code)
}

func TestFinalizeICMPChecksumCoversMessage(t *testing.T) {
	iface := testInterface()
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	buf := make([]byte, ethernet.HeaderLength+HeaderLength+ICMPHeaderLength+len(data))

	f, err := PrepareICMP(buf, iface, net.IPv4(127, 0, 0, 1), len(data), ICMPEcho, 0)
	require.NoError(t, err)
	copy(f.Payload[f.Index:], data)

	require.NoError(t, FinalizeICMP(iface, f))

	msg := buf[ethernet.HeaderLength+HeaderLength:]
	assert.Zero(t, Checksum(msg, 0))

	h, err := ParseICMPHeader(msg)
	require.NoError(t, err)
	assert.NotZero(t, h.Checksum)
}

func TestDecodeICMPKeepsIndexAtHeader(t *testing.T) {
	iface := testInterface()
	buf := make([]byte, ethernet.HeaderLength+HeaderLength+ICMPHeaderLength)
	f, err := PrepareICMP(buf, iface, net.IPv4(127, 0, 0, 1), 0, ICMPEchoReply, 0)
	require.NoError(t, err)

	in := &netstack.Frame{Payload: f.Payload, Index: ethernet.HeaderLength + HeaderLength}
	h, err := DecodeICMP(in)
	require.NoError(t, err)
	assert.Equal(t, ICMPEchoReply, h.Type)

	// Raw subscribers see the whole ICMP message: the index stays put.
	assert.Equal(t, ethernet.HeaderLength+HeaderLength, in.Index)
	assert.Equal(t, in.Index, in.Tag(netstack.TagTransport))
}
