package netstack

import (
	"net"
	"sync"
)

// QueueCapacity is the fixed capacity of an interface's inbound and
// outbound frame queues.
const QueueCapacity = 32

// HWSendFunc is the hardware-send hook installed by an interface's
// driver. It is invoked synchronously by the transmit pump; the pump
// keeps ownership of the frame and releases it afterwards.
type HWSendFunc func(iface *Interface, f *Frame)

// Interface is a network-capable device endpoint. Interfaces are
// created once at boot by the registry and never destroyed or
// reconfigured at runtime.
type Interface struct {
	ID      int              // interface id, index into the registry
	Name    string           // interface name ("net0", "loopback")
	Enabled bool             // true once a driver claimed the device
	Driver  string           // name of the bound driver
	Device  int              // underlying hardware device id
	MAC     net.HardwareAddr // hardware address
	IP      net.IP           // bound IPv4 address
	Gateway net.IP           // configured gateway, nil for loopback

	// DriverData is opaque driver-private state.
	DriverData any

	// HWSend transmits one frame on the underlying hardware.
	HWSend HWSendFunc

	// Pids of the RX and TX pump tasks, recorded at finalize time.
	RxTaskPID int
	TxTaskPID int

	// txMu guards transmit-queue admission so that frames are
	// transmitted in the order Send was called.
	txMu sync.Mutex

	rx chan *Frame
	tx chan *Frame
}

// InitQueues allocates the bounded frame queues. Called once by the
// registry when the interface is enabled.
func (i *Interface) InitQueues(capacity int) {
	if capacity <= 0 {
		capacity = QueueCapacity
	}
	i.rx = make(chan *Frame, capacity)
	i.tx = make(chan *Frame, capacity)
}

// IsLoopback reports whether the interface is the synthetic loopback.
func (i *Interface) IsLoopback() bool {
	return i.Driver == "loopback"
}

// Send queues one frame for transmission. The queue push and the
// data-available signal are a single operation on the buffered channel,
// so the signal count never exceeds the number of queued frames; the
// mutex serializes admission so that hardware-send order matches Send
// call order. Ownership of the frame moves to the transmit pump.
// Producers that exceed the queue capacity block until the pump drains.
func (i *Interface) Send(f *Frame) {
	i.txMu.Lock()
	defer i.txMu.Unlock()
	i.tx <- f
}

// Inject places one received frame on the inbound queue, from driver
// receive context. The frame is dropped when the queue is full: the
// receive path never blocks the driver. Reports whether the frame was
// accepted; on rejection the caller still owns it.
func (i *Interface) Inject(f *Frame) bool {
	select {
	case i.rx <- f:
		return true
	default:
		return false
	}
}

// NextInbound blocks until one received frame is available and pops it
// in FIFO order. Ownership moves to the caller. Single consumer: the
// interface's RX pump.
func (i *Interface) NextInbound() *Frame {
	return <-i.rx
}

// NextOutbound blocks until one queued frame is available for transmit
// and pops it in FIFO order. Ownership moves to the caller. Single
// consumer: the interface's TX pump.
func (i *Interface) NextOutbound() *Frame {
	return <-i.tx
}
