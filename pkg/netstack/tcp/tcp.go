// Package tcp provides minimal TCP support for the network stack:
// segment encoding for stream sockets and the connection controller
// driving three-way connect and FIN teardown. There is no congestion
// control and no passive listen.
package tcp

import (
	"encoding/binary"
	"fmt"

	"helios/pkg/netstack"
	ipv4 "helios/pkg/netstack/ip"
)

// HeaderLength is the TCP header length without options.
const HeaderLength = 20

// Flags represents TCP header flags.
type Flags uint8

// TCP flags.
const (
	FlagFin Flags = 1 << iota
	FlagSyn
	FlagRst
	FlagPsh
	FlagAck
)

// Default advertised window.
const defaultWindow = 8192

// Header represents a TCP header.
type Header struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8
	Flags      Flags
	Window     uint16
	Checksum   uint16
}

// ParseHeader parses a TCP header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("tcp: header too short: %d bytes", len(data))
	}
	return &Header{
		SrcPort:    binary.BigEndian.Uint16(data[0:2]),
		DstPort:    binary.BigEndian.Uint16(data[2:4]),
		Seq:        binary.BigEndian.Uint32(data[4:8]),
		Ack:        binary.BigEndian.Uint32(data[8:12]),
		DataOffset: data[12] >> 4,
		Flags:      Flags(data[13] & 0x3F),
		Window:     binary.BigEndian.Uint16(data[14:16]),
		Checksum:   binary.BigEndian.Uint16(data[16:18]),
	}, nil
}

// prepareSegment extends an outbound frame with a TCP header carrying
// the socket's connection state and the given flags.
func prepareSegment(buf []byte, iface *netstack.Interface, s *netstack.Socket, flags Flags, payloadSize int) (*netstack.Frame, error) {
	f, err := ipv4.Prepare(buf, iface, s.ServerAddr, HeaderLength+payloadSize, ipv4.ProtoTCP)
	if err != nil {
		return nil, err
	}

	h := f.Payload[f.Index:]
	binary.BigEndian.PutUint16(h[0:2], uint16(s.LocalPort))
	binary.BigEndian.PutUint16(h[2:4], uint16(s.ServerPort))
	binary.BigEndian.PutUint32(h[4:8], s.SeqNumber)
	binary.BigEndian.PutUint32(h[8:12], s.AckNumber)
	h[12] = (HeaderLength / 4) << 4
	h[13] = byte(flags)
	binary.BigEndian.PutUint16(h[14:16], defaultWindow)
	binary.BigEndian.PutUint16(h[16:18], 0)
	binary.BigEndian.PutUint16(h[18:20], 0)

	f.SetTag(netstack.TagTransport, f.Index)
	f.Index += HeaderLength
	return f, nil
}

// Prepare extends an outbound frame with a data segment (PSH+ACK) for
// a connected stream socket.
func Prepare(buf []byte, iface *netstack.Interface, s *netstack.Socket, payloadSize int) (*netstack.Frame, error) {
	return prepareSegment(buf, iface, s, FlagPsh|FlagAck, payloadSize)
}

// Finalize computes the TCP checksum, advances the socket's sequence
// number by the carried payload and hands the frame down the pipeline.
func Finalize(iface *netstack.Interface, s *netstack.Socket, f *netstack.Frame) error {
	start := f.Tag(netstack.TagTransport)
	h := f.Payload[start:]
	h[16], h[17] = 0, 0
	cs := ipv4.TransportChecksum(f, ipv4.ProtoTCP)
	binary.BigEndian.PutUint16(h[16:18], cs)

	if payload := len(f.Payload) - start - HeaderLength; payload > 0 {
		s.SeqNumber += uint32(payload)
	}
	return ipv4.Finalize(iface, f)
}

// Decode parses the TCP header of an inbound frame, records the
// transport tag and advances the frame index past the header.
func Decode(f *netstack.Frame) (*Header, error) {
	h, err := ParseHeader(f.Payload[f.Index:])
	if err != nil {
		return nil, err
	}
	f.SetTag(netstack.TagTransport, f.Index)
	f.Index += int(h.DataOffset) * 4
	return h, nil
}
