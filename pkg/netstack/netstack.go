package netstack

// Domain represents the socket address family.
type Domain uint8

// Socket domains. Only the IPv4 internet family is supported.
const (
	DomainInet Domain = 1
)

// SockType represents the socket type.
type SockType uint8

// Socket types.
const (
	SockRaw SockType = iota + 1
	SockDgram
	SockStream
)

// String returns the conventional name of the socket type.
func (t SockType) String() string {
	switch t {
	case SockRaw:
		return "raw"
	case SockDgram:
		return "dgram"
	case SockStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Protocol represents the socket protocol.
type Protocol uint8

// Socket protocols.
const (
	ProtoICMP Protocol = iota + 1
	ProtoDNS
	ProtoTCP
)

// String returns the conventional name of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtoICMP:
		return "icmp"
	case ProtoDNS:
		return "dns"
	case ProtoTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// ValidCombination reports whether the given socket type may carry the
// given protocol: raw sockets accept any supported protocol, datagram
// sockets carry DNS only and stream sockets carry TCP only.
func ValidCombination(t SockType, p Protocol) bool {
	switch t {
	case SockDgram:
		return p == ProtoDNS
	case SockStream:
		return p == ProtoTCP
	default:
		return true
	}
}

// PacketSink receives classified inbound frames from the decode
// pipeline. The control plane implements it: propagated frames fan out
// to listening sockets, TCP segments go to the connection state.
type PacketSink interface {
	// PropagatePacket delivers one decoded inbound frame to every
	// listening socket whose filter matches it.
	PropagatePacket(f *Frame, proto Protocol)

	// DeliverSegment hands one inbound TCP segment to the
	// connection-specific state. Stream delivery is out of
	// PropagatePacket's scope.
	DeliverSegment(iface *Interface, f *Frame)
}
