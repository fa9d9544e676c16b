package stack

import (
	"net"

	"helios/pkg/netstack"
)

// Router selects the outbound interface for a destination address. It
// returns nil when no interface qualifies.
type Router interface {
	Route(ifaces []*netstack.Interface, dst net.IP) *netstack.Interface
}

var loopbackAddr = net.IPv4(127, 0, 0, 1).To4()

// FirstEnabledRouter is the default routing strategy: the loopback
// interface for the loopback address when one is enabled, otherwise
// the first enabled interface in registration order. The system keeps
// no routing table.
type FirstEnabledRouter struct{}

// Route implements Router.
func (FirstEnabledRouter) Route(ifaces []*netstack.Interface, dst net.IP) *netstack.Interface {
	if dst.Equal(loopbackAddr) {
		for _, iface := range ifaces {
			if iface.Enabled && iface.IsLoopback() {
				return iface
			}
		}
	}
	for _, iface := range ifaces {
		if iface.Enabled {
			return iface
		}
	}
	return nil
}
