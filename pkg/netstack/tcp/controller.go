package tcp

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"helios/pkg/netstack"
	"helios/pkg/netstack/ethernet"
	ipv4 "helios/pkg/netstack/ip"
)

const segmentBufferLength = ethernet.HeaderLength + ipv4.HeaderLength + HeaderLength

// Controller drives TCP connection state for stream sockets: the
// three-way connect handshake, FIN teardown, and inbound segment
// dispatch. One waiter per local port at a time; the socket API
// serializes connect/disconnect per socket.
type Controller struct {
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	waiters map[uint16]chan *Header
}

// NewController returns a controller bounding each handshake step by
// the given timeout. A nil logger disables logging.
func NewController(log *zap.Logger, timeout time.Duration) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = netstack.DefaultHandshakeTimeout
	}
	return &Controller{
		log:     log,
		timeout: timeout,
		waiters: make(map[uint16]chan *Header),
	}
}

func (c *Controller) register(port uint16) chan *Header {
	w := make(chan *Header, 1)
	c.mu.Lock()
	c.waiters[port] = w
	c.mu.Unlock()
	return w
}

func (c *Controller) unregister(port uint16) {
	c.mu.Lock()
	delete(c.waiters, port)
	c.mu.Unlock()
}

// sendSegment encodes and transmits one bare control segment with the
// socket's current connection state.
func (c *Controller) sendSegment(iface *netstack.Interface, s *netstack.Socket, flags Flags) error {
	buf := make([]byte, segmentBufferLength)
	f, err := prepareSegment(buf, iface, s, flags, 0)
	if err != nil {
		return err
	}
	return Finalize(iface, s, f)
}

// wait blocks for the next segment addressed at the waiter, bounded by
// the controller timeout.
func (c *Controller) wait(w chan *Header) (*Header, error) {
	t := time.NewTimer(c.timeout)
	defer t.Stop()
	select {
	case h := <-w:
		return h, nil
	case <-t.C:
		return nil, netstack.ErrTimeout
	}
}

// Connect performs the three-way handshake for the socket over the
// interface. On success the socket's sequence numbers reflect the
// established connection. On failure the socket's connected state is
// left untouched; the caller decides what to keep.
func (c *Controller) Connect(s *netstack.Socket, iface *netstack.Interface) error {
	port := uint16(s.LocalPort)
	w := c.register(port)
	defer c.unregister(port)

	iss := uint32(time.Now().UnixNano())
	s.SeqNumber = iss
	s.AckNumber = 0

	if err := c.sendSegment(iface, s, FlagSyn); err != nil {
		return err
	}

	for {
		h, err := c.wait(w)
		if err != nil {
			c.log.Debug("tcp: handshake timed out", zap.Uint16("port", port))
			return err
		}
		if h.Flags&(FlagSyn|FlagAck) != FlagSyn|FlagAck {
			continue
		}
		// Lenient acceptance: the ack number is not validated against
		// the initial sequence beyond the port match.
		s.SeqNumber = iss + 1
		s.AckNumber = h.Seq + 1
		break
	}

	if err := c.sendSegment(iface, s, FlagAck); err != nil {
		return err
	}

	c.log.Debug("tcp: connection established", zap.Uint16("port", port))
	return nil
}

// Disconnect performs the FIN teardown for a connected socket.
func (c *Controller) Disconnect(s *netstack.Socket, iface *netstack.Interface) error {
	port := uint16(s.LocalPort)
	w := c.register(port)
	defer c.unregister(port)

	if err := c.sendSegment(iface, s, FlagFin|FlagAck); err != nil {
		return err
	}
	s.SeqNumber++

	for {
		h, err := c.wait(w)
		if err != nil {
			return err
		}
		if h.Flags&FlagAck == 0 {
			continue
		}
		if h.Flags&FlagFin != 0 {
			s.AckNumber = h.Seq + 1
			if err := c.sendSegment(iface, s, FlagAck); err != nil {
				return err
			}
		}
		break
	}

	c.log.Debug("tcp: connection closed", zap.Uint16("port", port))
	return nil
}

// HandleSegment dispatches one inbound TCP segment to the connection
// waiting on its destination port. Segments for unknown ports are
// dropped; there is no passive listen.
func (c *Controller) HandleSegment(iface *netstack.Interface, f *netstack.Frame) {
	h, err := Decode(f)
	if err != nil {
		c.log.Debug("tcp: dropping malformed segment", zap.Error(err))
		return
	}

	c.mu.Lock()
	w, ok := c.waiters[h.DstPort]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case w <- h:
	default:
	}
}

// PreparePacket encodes a data segment for the packet pipeline.
func (c *Controller) PreparePacket(buf []byte, iface *netstack.Interface, s *netstack.Socket, payloadSize int) (*netstack.Frame, error) {
	return Prepare(buf, iface, s, payloadSize)
}

// FinalizePacket finishes a data segment for the packet pipeline.
func (c *Controller) FinalizePacket(iface *netstack.Interface, s *netstack.Socket, f *netstack.Frame) error {
	return Finalize(iface, s, f)
}
