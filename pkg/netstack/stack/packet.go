package stack

import (
	"net"

	"helios/pkg/netstack"
	"helios/pkg/netstack/dns"
	ipv4 "helios/pkg/netstack/ip"
)

// ICMPDescriptor describes an outbound ICMP message.
type ICMPDescriptor struct {
	TargetIP    net.IP
	PayloadSize int
	Type        uint8
	Code        uint8
}

// TCPDescriptor describes an outbound stream segment. The connection
// identity lives on the socket.
type TCPDescriptor struct {
	PayloadSize int
}

// DNSDescriptor describes an outbound DNS message. Only queries are
// supported at this entry point.
type DNSDescriptor struct {
	TargetIP       net.IP
	SourcePort     uint16
	Identification uint16
	PayloadSize    int
	Query          bool
}

// PreparePacket builds the protocol headers of an outbound packet into
// the caller's buffer and registers the frame under a fresh per-socket
// packet handle. It returns the handle and the offset at which the
// caller writes its payload before finalizing. The descriptor must
// match the socket's protocol.
func (s *Stack) PreparePacket(pid, fd int, desc any, buf []byte) (int, int, error) {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return 0, 0, err
	}
	if s.Interfaces() == 0 {
		return 0, 0, netstack.ErrNoInterface
	}
	if sock.Type == netstack.SockStream && !sock.Connected() {
		return 0, 0, netstack.ErrNotConnected
	}

	var f *netstack.Frame

	switch sock.Protocol {
	case netstack.ProtoICMP:
		d, ok := desc.(*ICMPDescriptor)
		if !ok {
			return 0, 0, netstack.ErrInvalidPacketDescriptor
		}
		iface := s.SelectInterface(d.TargetIP.To4())
		f, err = ipv4.PrepareICMP(buf, iface, d.TargetIP, d.PayloadSize, d.Type, d.Code)

	case netstack.ProtoTCP:
		d, ok := desc.(*TCPDescriptor)
		if !ok {
			return 0, 0, netstack.ErrInvalidPacketDescriptor
		}
		iface := s.SelectInterface(sock.ServerAddr)
		f, err = s.tcp.PreparePacket(buf, iface, sock, d.PayloadSize)

	case netstack.ProtoDNS:
		d, ok := desc.(*DNSDescriptor)
		if !ok || !d.Query {
			return 0, 0, netstack.ErrInvalidPacketDescriptor
		}
		srcPort := d.SourcePort
		if sock.Type == netstack.SockDgram {
			srcPort = uint16(sock.LocalPort)
		}
		iface := s.SelectInterface(d.TargetIP.To4())
		f, err = dns.PrepareQuery(buf, iface, d.TargetIP, srcPort, d.Identification, d.PayloadSize)

	default:
		return 0, 0, netstack.ErrUnimplemented
	}

	if err != nil {
		return 0, 0, err
	}

	// The frame spans the caller's buffer until finalize clones it.
	f.User = true
	handle := sock.RegisterPacket(f)
	return handle, f.Index, nil
}

// FinalizePacket finishes and transmits a prepared packet. The packet
// handle is erased from the socket's bookkeeping whether or not the
// protocol finalizer succeeds; a failed finalization cannot be
// retried.
func (s *Stack) FinalizePacket(pid, fd, packetFD int) error {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return err
	}
	f, ok := sock.Packet(packetFD)
	if !ok {
		return netstack.ErrInvalidPacketFd
	}
	if sock.Type == netstack.SockStream && !sock.Connected() {
		return netstack.ErrNotConnected
	}

	iface := s.Interface(f.Interface)

	switch sock.Protocol {
	case netstack.ProtoICMP:
		err = ipv4.FinalizeICMP(iface, f)
	case netstack.ProtoTCP:
		err = s.tcp.FinalizePacket(iface, sock, f)
	case netstack.ProtoDNS:
		err = dns.Finalize(iface, f)
	default:
		err = netstack.ErrUnimplemented
	}

	sock.ErasePacket(packetFD)
	return err
}
