package stack

import (
	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/netstack/dns"
	"helios/pkg/netstack/ethernet"
	ipv4 "helios/pkg/netstack/ip"
	"helios/pkg/netstack/udp"
)

// decode runs the layered decode of one inbound frame and routes the
// result: ICMP and DNS frames go to the demultiplexer, TCP segments to
// the connection state. Frames that fail to parse are dropped.
func (s *Stack) decode(iface *netstack.Interface, f *netstack.Frame) {
	et, err := ethernet.Decode(iface, f)
	if err != nil {
		s.log.Debug("dropping frame", zap.String("interface", iface.Name), zap.Error(err))
		return
	}

	if et != ethernet.TypeIPv4 {
		// ARP and IPv6 have no consumers: frames are sent to the
		// broadcast hardware address and fragmentation-free IPv4 is
		// the only network layer.
		return
	}

	ih, err := ipv4.Decode(iface, f)
	if err != nil {
		s.log.Debug("dropping packet", zap.String("interface", iface.Name), zap.Error(err))
		return
	}

	switch ih.Protocol {
	case ipv4.ProtoICMP:
		h, err := ipv4.DecodeICMP(f)
		if err != nil {
			return
		}
		if h.Type == ipv4.ICMPEcho {
			s.echoReply(iface, ih, f)
		}
		s.PropagatePacket(f, netstack.ProtoICMP)

	case ipv4.ProtoUDP:
		uh, err := udp.Decode(f)
		if err != nil {
			return
		}
		if uh.SrcPort == dns.Port || uh.DstPort == dns.Port {
			if _, err := dns.Decode(f); err == nil {
				s.PropagatePacket(f, netstack.ProtoDNS)
			}
		}

	case ipv4.ProtoTCP:
		s.DeliverSegment(iface, f)
	}
}

// echoReply answers an inbound echo request with a kernel-generated
// echo reply carrying the same identifier, sequence and data.
func (s *Stack) echoReply(iface *netstack.Interface, ih *ipv4.Header, f *netstack.Frame) {
	start := f.Tag(netstack.TagTransport)
	payloadSize := len(f.Payload) - start - ipv4.ICMPHeaderLength
	if payloadSize < 0 {
		return
	}

	buf := make([]byte, len(f.Payload))
	r, err := ipv4.PrepareICMP(buf, iface, ih.SrcIP, payloadSize, ipv4.ICMPEchoReply, 0)
	if err != nil {
		return
	}
	rstart := r.Tag(netstack.TagTransport)
	copy(r.Payload[rstart+4:], f.Payload[start+4:])
	if err := ipv4.FinalizeICMP(iface, r); err != nil {
		s.log.Debug("echo reply failed", zap.Error(err))
	}
}
