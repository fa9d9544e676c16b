// Package dns provides DNS query encoding over UDP for the network
// stack. Only queries are encoded on the send path; responses arrive
// through the decode pipeline and are delivered to datagram sockets.
package dns

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"helios/pkg/netstack"
	"helios/pkg/netstack/udp"
)

// HeaderLength is the DNS header length in bytes.
const HeaderLength = 12

// Port is the well-known DNS server port.
const Port = 53

// Query flags: recursion desired.
const flagsQuery = 0x0100

// Record types and classes used by the query encoder.
const (
	TypeA   uint16 = 1
	ClassIN uint16 = 1
)

// Header represents a DNS message header.
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Response reports whether the message is a response.
func (h *Header) Response() bool {
	return h.Flags&0x8000 != 0
}

// ParseHeader parses a DNS header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("dns: header too short: %d bytes", len(data))
	}
	return &Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   binary.BigEndian.Uint16(data[2:4]),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

// PrepareQuery extends an outbound frame with UDP and DNS headers for
// a single-question query with the given identification. The returned
// frame's index points at the question section.
func PrepareQuery(buf []byte, iface *netstack.Interface, target net.IP, srcPort, id uint16, payloadSize int) (*netstack.Frame, error) {
	f, err := udp.Prepare(buf, iface, target, srcPort, Port, HeaderLength+payloadSize)
	if err != nil {
		return nil, err
	}

	h := f.Payload[f.Index:]
	binary.BigEndian.PutUint16(h[0:2], id)
	binary.BigEndian.PutUint16(h[2:4], flagsQuery)
	binary.BigEndian.PutUint16(h[4:6], 1)
	binary.BigEndian.PutUint16(h[6:8], 0)
	binary.BigEndian.PutUint16(h[8:10], 0)
	binary.BigEndian.PutUint16(h[10:12], 0)

	f.SetTag(netstack.TagApp, f.Index)
	f.Index += HeaderLength
	return f, nil
}

// Finalize hands a prepared query down the pipeline.
func Finalize(iface *netstack.Interface, f *netstack.Frame) error {
	return udp.Finalize(iface, f)
}

// Decode parses the DNS header of an inbound frame and records the
// application tag. The frame index stays at the DNS header: datagram
// sockets receive the whole message, identification included.
func Decode(f *netstack.Frame) (*Header, error) {
	h, err := ParseHeader(f.Payload[f.Index:])
	if err != nil {
		return nil, err
	}
	f.SetTag(netstack.TagApp, f.Index)
	return h, nil
}

// EncodeQuestion encodes one question section entry: the domain name
// in label form followed by type and class.
func EncodeQuestion(name string, qtype, qclass uint16) []byte {
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	out := make([]byte, 0, len(name)+6)
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}
	out = append(out, 0)
	out = binary.BigEndian.AppendUint16(out, qtype)
	out = binary.BigEndian.AppendUint16(out, qclass)
	return out
}

// QuestionSize returns the encoded size of a question for the name.
func QuestionSize(name string) int {
	return len(EncodeQuestion(name, TypeA, ClassIN))
}
