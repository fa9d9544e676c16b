// Package rtl8139 is the driver adapter for the one recognized NIC
// model. Register-level programming belongs to the platform; the
// adapter bridges the device's transmit hook and receive interrupts to
// an interface's frame queues.
package rtl8139

import (
	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/pci"
)

// PCI identity of the supported hardware.
const (
	VendorID uint16 = 0x10EC
	DeviceID uint16 = 0x8139
)

// Driver implements stack.Driver for the RTL8139.
type Driver struct {
	log *zap.Logger
}

// New returns the driver. A nil logger disables logging.
func New(log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{log: log}
}

// Name returns the driver name.
func (d *Driver) Name() string { return "rtl8139" }

// Probe reports whether the device is an RTL8139.
func (d *Driver) Probe(dev *pci.Device) bool {
	return dev.VendorID == VendorID && dev.DeviceID == DeviceID
}

// Init installs the hardware-send hook on the interface. The frame
// buffer stays owned by the transmit pump; the device consumes the
// payload synchronously.
func (d *Driver) Init(iface *netstack.Interface, dev *pci.Device) error {
	iface.MAC = dev.MAC
	iface.DriverData = dev
	iface.HWSend = func(i *netstack.Interface, f *netstack.Frame) {
		if dev.Transmit != nil {
			dev.Transmit(f.Payload)
		}
	}
	d.log.Debug("rtl8139 bound", zap.String("interface", iface.Name),
		zap.String("device", dev.String()))
	return nil
}

// Finalize completes driver setup once all interfaces exist.
func (d *Driver) Finalize(iface *netstack.Interface) error {
	return nil
}

// Deliver is the receive path: it copies one frame out of interrupt
// context into a kernel-owned buffer and injects it into the
// interface's receive queue. Full queues drop the frame; the receive
// path never blocks the device.
func (d *Driver) Deliver(iface *netstack.Interface, payload []byte) {
	f := &netstack.Frame{
		Payload:   append([]byte(nil), payload...),
		Interface: iface.ID,
	}
	if !iface.Inject(f) {
		f.Release()
		d.log.Debug("rx queue full, frame dropped",
			zap.String("interface", iface.Name))
	}
}
