// Package udp provides UDP handling for the network stack.
package udp

import (
	"encoding/binary"
	"fmt"
	"net"

	"helios/pkg/netstack"
	ipv4 "helios/pkg/netstack/ip"
)

// HeaderLength is the UDP header length in bytes.
const HeaderLength = 8

// Header represents a UDP header.
type Header struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

// ParseHeader parses a UDP header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("udp: header too short: %d bytes", len(data))
	}
	return &Header{
		SrcPort:  binary.BigEndian.Uint16(data[0:2]),
		DstPort:  binary.BigEndian.Uint16(data[2:4]),
		Length:   binary.BigEndian.Uint16(data[4:6]),
		Checksum: binary.BigEndian.Uint16(data[6:8]),
	}, nil
}

// Prepare extends an outbound frame with a UDP header between the
// given ports. The checksum is computed by Finalize.
func Prepare(buf []byte, iface *netstack.Interface, target net.IP, srcPort, dstPort uint16, payloadSize int) (*netstack.Frame, error) {
	f, err := ipv4.Prepare(buf, iface, target, HeaderLength+payloadSize, ipv4.ProtoUDP)
	if err != nil {
		return nil, err
	}

	h := f.Payload[f.Index:]
	binary.BigEndian.PutUint16(h[0:2], srcPort)
	binary.BigEndian.PutUint16(h[2:4], dstPort)
	binary.BigEndian.PutUint16(h[4:6], uint16(HeaderLength+payloadSize))
	binary.BigEndian.PutUint16(h[6:8], 0)

	f.SetTag(netstack.TagTransport, f.Index)
	f.Index += HeaderLength
	return f, nil
}

// Finalize computes the UDP checksum over the pseudo-header and
// datagram, then hands the frame down the pipeline.
func Finalize(iface *netstack.Interface, f *netstack.Frame) error {
	start := f.Tag(netstack.TagTransport)
	h := f.Payload[start:]
	h[6], h[7] = 0, 0
	cs := ipv4.TransportChecksum(f, ipv4.ProtoUDP)
	if cs == 0 {
		cs = 0xFFFF
	}
	binary.BigEndian.PutUint16(h[6:8], cs)
	return ipv4.Finalize(iface, f)
}

// Decode parses the UDP header of an inbound frame, records the
// transport tag and advances the frame index past the header.
func Decode(f *netstack.Frame) (*Header, error) {
	h, err := ParseHeader(f.Payload[f.Index:])
	if err != nil {
		return nil, err
	}
	f.SetTag(netstack.TagTransport, f.Index)
	f.Index += HeaderLength
	return h, nil
}

// TargetPort reads the destination port embedded at the frame's
// transport tag. The demultiplexer matches it against datagram
// sockets' bound local ports.
func TargetPort(f *netstack.Frame) uint16 {
	off := f.Tag(netstack.TagTransport)
	return binary.BigEndian.Uint16(f.Payload[off+2 : off+4])
}
