// Package ipv4 provides IPv4 and ICMP handling for the network stack.
package ipv4

import (
	"encoding/binary"
	"fmt"
	"net"

	"helios/pkg/netstack"
	"helios/pkg/netstack/ethernet"
)

// HeaderLength is the IPv4 header length without options.
const HeaderLength = 20

// IP protocol numbers.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// Default time-to-live for outbound packets.
const defaultTTL = 64

// Header represents an IPv4 header.
type Header struct {
	Version  uint8
	IHL      uint8
	Length   uint16
	ID       uint16
	TTL      uint8
	Protocol uint8
	Checksum uint16
	SrcIP    net.IP
	DstIP    net.IP
}

// ParseHeader parses an IPv4 header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("ipv4: header too short: %d bytes", len(data))
	}
	h := &Header{
		Version:  data[0] >> 4,
		IHL:      data[0] & 0x0F,
		Length:   binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		TTL:      data[8],
		Protocol: data[9],
		Checksum: binary.BigEndian.Uint16(data[10:12]),
		SrcIP:    net.IPv4(data[12], data[13], data[14], data[15]).To4(),
		DstIP:    net.IPv4(data[16], data[17], data[18], data[19]).To4(),
	}
	if h.Version != 4 || h.IHL < 5 {
		return nil, fmt.Errorf("ipv4: bad version/ihl %d/%d", h.Version, h.IHL)
	}
	return h, nil
}

// Checksum computes the internet checksum over data, folded into 16
// bits, starting from the given partial sum.
func Checksum(data []byte, sum uint32) uint16 {
	for i := 0; i+1 < len(data); i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}
	return ^uint16(sum)
}

// Prepare extends an outbound frame with an IPv4 header carrying the
// given payload protocol, from the interface's address to target. The
// header checksum is left for Finalize.
func Prepare(buf []byte, iface *netstack.Interface, target net.IP, payloadSize int, proto uint8) (*netstack.Frame, error) {
	f, err := ethernet.Prepare(buf, iface, HeaderLength+payloadSize, ethernet.TypeIPv4)
	if err != nil {
		return nil, err
	}

	h := f.Payload[f.Index:]
	h[0] = 4<<4 | 5
	h[1] = 0
	binary.BigEndian.PutUint16(h[2:4], uint16(HeaderLength+payloadSize))
	binary.BigEndian.PutUint16(h[4:6], 0)
	binary.BigEndian.PutUint16(h[6:8], 0)
	h[8] = defaultTTL
	h[9] = proto
	binary.BigEndian.PutUint16(h[10:12], 0)
	copy(h[12:16], iface.IP.To4())
	copy(h[16:20], target.To4())

	f.SetTag(netstack.TagNetwork, f.Index)
	f.Index += HeaderLength
	return f, nil
}

// Finalize computes the IPv4 header checksum and hands the frame to
// the link layer.
func Finalize(iface *netstack.Interface, f *netstack.Frame) error {
	off := f.Tag(netstack.TagNetwork)
	h := f.Payload[off : off+HeaderLength]
	h[10], h[11] = 0, 0
	cs := Checksum(h, 0)
	binary.BigEndian.PutUint16(h[10:12], cs)
	return ethernet.Finalize(iface, f)
}

// Decode parses the network-layer header of an inbound frame, records
// the network tag and advances the frame index past the header. It
// returns the parsed header for the caller to dispatch on.
func Decode(iface *netstack.Interface, f *netstack.Frame) (*Header, error) {
	h, err := ParseHeader(f.Payload[f.Index:])
	if err != nil {
		return nil, err
	}
	f.SetTag(netstack.TagNetwork, f.Index)
	f.Index += int(h.IHL) * 4
	return h, nil
}

// pseudoHeaderSum computes the partial checksum of the IPv4
// pseudo-header for the transport segment of length segLen.
func pseudoHeaderSum(f *netstack.Frame, proto uint8, segLen int) uint32 {
	off := f.Tag(netstack.TagNetwork)
	h := f.Payload[off:]
	var sum uint32
	for i := 12; i < 20; i += 2 {
		sum += uint32(h[i])<<8 | uint32(h[i+1])
	}
	sum += uint32(proto)
	sum += uint32(segLen)
	return sum
}

// TransportChecksum computes the transport checksum (UDP or TCP) of
// the segment starting at the transport tag, pseudo-header included.
// The checksum field inside the segment must be zeroed by the caller.
func TransportChecksum(f *netstack.Frame, proto uint8) uint16 {
	start := f.Tag(netstack.TagTransport)
	seg := f.Payload[start:]
	return Checksum(seg, pseudoHeaderSum(f, proto, len(seg)))
}
