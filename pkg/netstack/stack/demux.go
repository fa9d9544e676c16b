package stack

import (
	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/netstack/udp"
	"helios/pkg/process"
)

// Demuxer routes one decoded inbound frame to every listening socket
// whose filter matches it. Implementations must preserve the matching
// semantics of the scanning demuxer exactly.
type Demuxer interface {
	Propagate(f *netstack.Frame, proto netstack.Protocol)
}

// scanningDemuxer walks every live process slot and every socket it
// owns, once per inbound frame. O(processes x sockets); replacements
// must keep its matching semantics.
type scanningDemuxer struct {
	procs *process.Manager
	log   *zap.Logger
}

// Propagate implements Demuxer. A socket matches iff it is listening
// and either a raw socket of the frame's protocol, or a datagram
// socket of the frame's protocol whose bound local port equals the
// destination port at the frame's transport tag. Each match receives
// its own kernel-owned copy, delivered with exactly one wake.
func (d *scanningDemuxer) Propagate(f *netstack.Frame, proto netstack.Protocol) {
	for pid := 0; pid < process.MaxProcess; pid++ {
		switch d.procs.State(pid) {
		case process.StateEmpty, process.StateNew, process.StateKilled:
			continue
		}
		p, ok := d.procs.Process(pid)
		if !ok {
			continue
		}

		for _, sock := range p.Sockets() {
			if !sock.Listening() {
				continue
			}

			match := false
			switch sock.Type {
			case netstack.SockRaw:
				match = sock.Protocol == proto
			case netstack.SockDgram:
				match = sock.Protocol == proto && udp.TargetPort(f) == uint16(sock.LocalPort)
			}
			if !match {
				continue
			}

			c := f.Clone()
			if !sock.Deliver(c) {
				c.Release()
				d.log.Debug("pending queue full, frame dropped",
					zap.Int("pid", pid), zap.Int("fd", sock.ID))
			}
		}
	}
}

// PropagatePacket implements netstack.PacketSink: the decode pipeline
// hands every classified inbound frame here.
func (s *Stack) PropagatePacket(f *netstack.Frame, proto netstack.Protocol) {
	s.demux.Propagate(f, proto)
}

// DeliverSegment implements netstack.PacketSink for the stream path:
// TCP segments bypass the demultiplexer and go to connection state.
func (s *Stack) DeliverSegment(iface *netstack.Interface, f *netstack.Frame) {
	s.tcp.HandleSegment(iface, f)
}
