// Package ethernet provides Ethernet framing for the network stack:
// header encode/decode and the link-layer half of the packet pipeline.
package ethernet

import (
	"encoding/binary"
	"fmt"
	"net"
)

// HeaderLength is the Ethernet header length in bytes.
const HeaderLength = 14

// EtherType identifies the payload protocol of a frame.
type EtherType uint16

// EtherType values.
const (
	TypeIPv4 EtherType = 0x0800
	TypeARP  EtherType = 0x0806
	TypeIPv6 EtherType = 0x86DD
)

// Header represents an Ethernet header.
type Header struct {
	Dst  net.HardwareAddr
	Src  net.HardwareAddr
	Type EtherType
}

// Broadcast is the Ethernet broadcast address.
var Broadcast = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseHeader parses an Ethernet header from raw bytes.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("ethernet: header too short: %d bytes", len(data))
	}
	return &Header{
		Dst:  net.HardwareAddr(data[0:6:6]),
		Src:  net.HardwareAddr(data[6:12:12]),
		Type: EtherType(binary.BigEndian.Uint16(data[12:14])),
	}, nil
}

// PutHeader writes the header into the first HeaderLength bytes of buf.
func PutHeader(buf []byte, dst, src net.HardwareAddr, t EtherType) {
	copy(buf[0:6], dst)
	copy(buf[6:12], src)
	binary.BigEndian.PutUint16(buf[12:14], uint16(t))
}
