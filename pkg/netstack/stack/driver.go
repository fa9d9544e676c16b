package stack

import (
	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/pci"
)

// Driver binds an interface to its hardware. Probe identifies the
// device; Init installs the hardware-send hook and driver-private
// state; Finalize runs after every interface exists, before the pumps
// start.
type Driver interface {
	Name() string
	Probe(dev *pci.Device) bool
	Init(iface *netstack.Interface, dev *pci.Device) error
	Finalize(iface *netstack.Interface) error
}

// installLoopback wires the synthetic loopback interface: hardware
// send re-injects a kernel-owned copy of the frame into the same
// interface's receive queue.
func (s *Stack) installLoopback(lo *netstack.Interface) {
	lo.HWSend = func(iface *netstack.Interface, f *netstack.Frame) {
		c := f.Clone()
		c.Interface = iface.ID
		if !iface.Inject(c) {
			c.Release()
			s.log.Debug("loopback: rx queue full, frame dropped",
				zap.String("interface", iface.Name))
		}
	}
}
