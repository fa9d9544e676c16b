package stack

import (
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/netstack/tcp"
	"helios/pkg/pci"
	"helios/pkg/process"
	"helios/pkg/sysfs"
)

// TCPProtocol is the connection-state collaborator consumed by the
// socket API and the packet pipeline for stream sockets.
type TCPProtocol interface {
	Connect(s *netstack.Socket, iface *netstack.Interface) error
	Disconnect(s *netstack.Socket, iface *netstack.Interface) error
	PreparePacket(buf []byte, iface *netstack.Interface, s *netstack.Socket, payloadSize int) (*netstack.Frame, error)
	FinalizePacket(iface *netstack.Interface, s *netstack.Socket, f *netstack.Frame) error
	HandleSegment(iface *netstack.Interface, f *netstack.Frame)
}

// Stack is the network subsystem state: the interface registry, the
// shared ephemeral port counter and the collaborator wiring. A stack
// is explicitly constructed and passed around; independent instances
// are isolated from each other.
type Stack struct {
	cfg   *netstack.Config
	log   *zap.Logger
	procs *process.Manager
	tree  *sysfs.Tree

	router  Router
	demux   Demuxer
	tcp     TCPProtocol
	drivers []Driver

	ifaces    []*netstack.Interface
	bound     map[int]Driver
	localPort atomic.Uint32
}

// Option configures a Stack.
type Option func(*Stack)

// WithLogger sets the stack logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Stack) { s.log = log }
}

// WithRouter replaces the interface-selection strategy.
func WithRouter(r Router) Option {
	return func(s *Stack) { s.router = r }
}

// WithDemuxer replaces the inbound demultiplexer.
func WithDemuxer(d Demuxer) Option {
	return func(s *Stack) { s.demux = d }
}

// WithTCP replaces the TCP connection collaborator.
func WithTCP(t TCPProtocol) Option {
	return func(s *Stack) { s.tcp = t }
}

// WithDrivers registers the hardware drivers probed at Init.
func WithDrivers(drivers ...Driver) Option {
	return func(s *Stack) { s.drivers = append(s.drivers, drivers...) }
}

// WithSysfs sets the diagnostics tree interfaces publish into.
func WithSysfs(t *sysfs.Tree) Option {
	return func(s *Stack) { s.tree = t }
}

// New constructs a stack bound to the scheduler collaborator. Call
// Init to enumerate interfaces and Finalize to start the pumps.
func New(cfg *netstack.Config, procs *process.Manager, opts ...Option) *Stack {
	if cfg == nil {
		cfg = netstack.DefaultConfig()
	}
	s := &Stack{
		cfg:   cfg,
		procs: procs,
		bound: make(map[int]Driver),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.tree == nil {
		s.tree = sysfs.NewTree()
	}
	if s.router == nil {
		s.router = FirstEnabledRouter{}
	}
	if s.demux == nil {
		s.demux = &scanningDemuxer{procs: procs, log: s.log}
	}
	if s.tcp == nil {
		s.tcp = tcp.NewController(s.log, cfg.HandshakeTimeout)
	}
	s.localPort.Store(cfg.PortSeed)
	return s
}

// Init enumerates the network-class devices, creates one interface per
// device, binds recognized drivers and appends the synthetic loopback
// interface. Called once, early at boot.
func (s *Stack) Init(devices []pci.Device) error {
	index := 0
	for i := range devices {
		dev := &devices[i]
		if dev.Class != pci.ClassNetwork {
			continue
		}

		iface := &netstack.Interface{
			ID:     len(s.ifaces),
			Name:   "net" + strconv.Itoa(index),
			Device: dev.ID,
			MAC:    dev.MAC,
		}
		index++

		for _, drv := range s.drivers {
			if !drv.Probe(dev) {
				continue
			}
			iface.Enabled = true
			iface.Driver = drv.Name()
			iface.InitQueues(s.cfg.QueueCapacity)
			iface.IP = s.cfg.InterfaceIP
			iface.Gateway = s.cfg.Gateway
			if err := drv.Init(iface, dev); err != nil {
				return fmt.Errorf("stack: init driver %s on %s: %w", drv.Name(), iface.Name, err)
			}
			s.bound[iface.ID] = drv
			break
		}

		s.publish(iface)
		s.ifaces = append(s.ifaces, iface)
	}

	lo := &netstack.Interface{
		ID:      len(s.ifaces),
		Name:    "loopback",
		Enabled: true,
		Driver:  "loopback",
		MAC:     make(net.HardwareAddr, 6),
		IP:      net.IPv4(127, 0, 0, 1).To4(),
	}
	lo.InitQueues(s.cfg.QueueCapacity)
	s.installLoopback(lo)
	s.publish(lo)
	s.ifaces = append(s.ifaces, lo)

	for _, iface := range s.ifaces {
		if !iface.Enabled {
			continue
		}
		if drv, ok := s.bound[iface.ID]; ok {
			if err := drv.Finalize(iface); err != nil {
				return fmt.Errorf("stack: finalize driver %s on %s: %w", drv.Name(), iface.Name, err)
			}
		}
	}

	s.localPort.Store(s.cfg.PortSeed)
	return nil
}

// Finalize spawns the RX and TX pump tasks of every enabled interface
// and records their pids. Called once the scheduler is initialized.
func (s *Stack) Finalize() error {
	for _, iface := range s.ifaces {
		if !iface.Enabled {
			continue
		}
		iface := iface
		rx, err := s.procs.CreateKernelTask("net_rx_"+iface.Name, 1, process.PriorityDefault, func() { s.rxPump(iface) })
		if err != nil {
			return fmt.Errorf("stack: spawn rx pump for %s: %w", iface.Name, err)
		}
		tx, err := s.procs.CreateKernelTask("net_tx_"+iface.Name, 1, process.PriorityDefault, func() { s.txPump(iface) })
		if err != nil {
			return fmt.Errorf("stack: spawn tx pump for %s: %w", iface.Name, err)
		}
		iface.RxTaskPID = rx.PID
		iface.TxTaskPID = tx.PID
	}
	return nil
}

// Interfaces returns the number of registered interfaces.
func (s *Stack) Interfaces() int {
	return len(s.ifaces)
}

// Interface returns the interface at the given index. The caller
// guarantees the index is valid.
func (s *Stack) Interface(index int) *netstack.Interface {
	return s.ifaces[index]
}

// Sysfs returns the diagnostics tree the stack publishes into.
func (s *Stack) Sysfs() *sysfs.Tree {
	return s.tree
}

// SelectInterface picks the outbound interface for a destination using
// the configured routing strategy. It panics when no interface is
// enabled: callers must have checked Interfaces() beforehand, so an
// empty registry here is a programming error, not a recoverable one.
func (s *Stack) SelectInterface(dst net.IP) *netstack.Interface {
	if iface := s.router.Route(s.ifaces, dst); iface != nil {
		return iface
	}
	panic("stack: no enabled interface")
}

// nextLocalPort returns the next value of the shared ephemeral port
// counter.
func (s *Stack) nextLocalPort() uint32 {
	return s.localPort.Add(1) - 1
}

// publish writes an interface's diagnostic attributes into the tree.
// Published once at creation; never re-queried.
func (s *Stack) publish(iface *netstack.Interface) {
	p := sysfs.Join("net", iface.Name)
	s.tree.SetConstant(sysfs.Join(p, "name"), iface.Name)
	s.tree.SetConstant(sysfs.Join(p, "driver"), iface.Driver)
	s.tree.SetConstant(sysfs.Join(p, "enabled"), strconv.FormatBool(iface.Enabled))
	s.tree.SetConstant(sysfs.Join(p, "device"), strconv.Itoa(iface.Device))
	s.tree.SetConstant(sysfs.Join(p, "mac"), iface.MAC.String())

	if iface.Enabled {
		s.tree.SetConstant(sysfs.Join(p, "ip"), iface.IP.String())
		if !iface.IsLoopback() {
			s.tree.SetConstant(sysfs.Join(p, "gateway"), iface.Gateway.String())
		}
	}
}
