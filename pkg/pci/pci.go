// Package pci models the PCI devices handed to the kernel subsystems at
// boot. Bus enumeration itself is the platform's job; consumers receive
// a device slice and probe it for hardware they recognize.
package pci

import (
	"fmt"
	"net"
)

// Class is the PCI device class.
type Class uint8

// Device classes.
const (
	ClassUnknown Class = iota
	ClassStorage
	ClassNetwork
	ClassDisplay
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassStorage:
		return "storage"
	case ClassNetwork:
		return "network"
	case ClassDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// Device describes one enumerated PCI device. Drivers identify their
// hardware by vendor and device id.
type Device struct {
	ID       int
	Class    Class
	VendorID uint16
	DeviceID uint16
	MAC      net.HardwareAddr

	// Transmit is the platform's send hook for network-class devices:
	// the bound driver hands it fully framed payloads.
	Transmit func(payload []byte)
}

// String returns "vendor:device" in the conventional hex form.
func (d *Device) String() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.DeviceID)
}
