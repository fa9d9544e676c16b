package ethernet

import (
	"fmt"

	"helios/pkg/netstack"
)

// Prepare begins an outbound frame over buf: it writes the Ethernet
// header and returns a frame whose index points at the link-layer
// payload. The destination hardware address is the broadcast address;
// single-segment networks and loopback do not need resolution.
func Prepare(buf []byte, iface *netstack.Interface, payloadSize int, t EtherType) (*netstack.Frame, error) {
	total := HeaderLength + payloadSize
	if len(buf) < total {
		return nil, fmt.Errorf("ethernet: buffer too small: %d < %d", len(buf), total)
	}

	PutHeader(buf, Broadcast, iface.MAC, t)

	f := &netstack.Frame{
		Payload:   buf[:total],
		Index:     HeaderLength,
		Interface: iface.ID,
	}
	f.SetTag(netstack.TagLink, 0)
	return f, nil
}

// Finalize hands a fully encoded frame to the interface's transmit
// queue. Frames backed by a user buffer are cloned into a kernel-owned
// buffer first: the transmit pump releases what it sends, and it must
// never release user memory.
func Finalize(iface *netstack.Interface, f *netstack.Frame) error {
	out := f
	if f.User {
		out = f.Clone()
	}
	iface.Send(out)
	return nil
}

// Decode parses the link-layer header of an inbound frame, records the
// link tag and advances the frame index past the header. It returns
// the payload protocol for the caller to dispatch on.
func Decode(iface *netstack.Interface, f *netstack.Frame) (EtherType, error) {
	h, err := ParseHeader(f.Payload)
	if err != nil {
		return 0, err
	}
	f.SetTag(netstack.TagLink, 0)
	f.Index = HeaderLength
	return h.Type, nil
}
