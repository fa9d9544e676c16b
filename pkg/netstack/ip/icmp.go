package ipv4

import (
	"encoding/binary"
	"fmt"
	"net"

	"helios/pkg/netstack"
)

// ICMPHeaderLength is the ICMP header length in bytes.
const ICMPHeaderLength = 8

// ICMP types.
const (
	ICMPEchoReply uint8 = 0
	ICMPEcho      uint8 = 8
)

// ICMPHeader represents an ICMP header.
type ICMPHeader struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// ParseICMPHeader parses an ICMP header from raw bytes.
func ParseICMPHeader(data []byte) (*ICMPHeader, error) {
	if len(data) < ICMPHeaderLength {
		return nil, fmt.Errorf("icmp: header too short: %d bytes", len(data))
	}
	return &ICMPHeader{
		Type:     data[0],
		Code:     data[1],
		Checksum: binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		Seq:      binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

// PrepareICMP extends an outbound frame with an ICMP header of the
// given type and code. The returned frame's index points at the ICMP
// payload; the checksum is computed by FinalizeICMP.
func PrepareICMP(buf []byte, iface *netstack.Interface, target net.IP, payloadSize int, typ, code uint8) (*netstack.Frame, error) {
	f, err := Prepare(buf, iface, target, ICMPHeaderLength+payloadSize, ProtoICMP)
	if err != nil {
		return nil, err
	}

	h := f.Payload[f.Index:]
	h[0] = typ
	h[1] = code
	binary.BigEndian.PutUint16(h[2:4], 0)
	binary.BigEndian.PutUint16(h[4:6], 0)
	binary.BigEndian.PutUint16(h[6:8], 0)

	f.SetTag(netstack.TagTransport, f.Index)
	f.Index += ICMPHeaderLength
	return f, nil
}

// FinalizeICMP computes the ICMP checksum over the whole message and
// hands the frame down the pipeline.
func FinalizeICMP(iface *netstack.Interface, f *netstack.Frame) error {
	start := f.Tag(netstack.TagTransport)
	msg := f.Payload[start:]
	msg[2], msg[3] = 0, 0
	cs := Checksum(msg, 0)
	binary.BigEndian.PutUint16(msg[2:4], cs)
	return Finalize(iface, f)
}

// DecodeICMP parses the ICMP header of an inbound frame and records
// the transport tag. The frame index stays at the ICMP header: raw
// sockets receive the whole message.
func DecodeICMP(f *netstack.Frame) (*ICMPHeader, error) {
	h, err := ParseICMPHeader(f.Payload[f.Index:])
	if err != nil {
		return nil, err
	}
	f.SetTag(netstack.TagTransport, f.Index)
	return h, nil
}
