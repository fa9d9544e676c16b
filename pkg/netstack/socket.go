package netstack

import (
	"net"
	"sync"
	"time"
)

// Socket is the state referenced by one socket handle. Storage lives in
// the scheduler's per-process socket table; every field here is mutated
// only through the socket API and the demultiplexer.
//
// The pending-packet queue doubles as the socket's wait primitive: each
// delivery is exactly one wake. It is a single-consumer contract: one
// task blocked in a receive at a time; concurrent multi-waiter use is
// unsupported.
type Socket struct {
	ID       int
	Domain   Domain
	Type     SockType
	Protocol Protocol

	mu        sync.Mutex
	listen    bool
	connected bool

	// LocalPort is assigned at most once per socket lifetime, by
	// either ClientBind or Connect.
	LocalPort  uint32
	ServerPort uint32
	ServerAddr net.IP

	// TCP connection state, maintained by the TCP layer.
	SeqNumber uint32
	AckNumber uint32

	nextPacketFD int
	packets      map[int]*Frame

	pending chan *Frame
}

// NewSocket allocates a socket with the given identity and an empty
// pending queue of the given capacity.
func NewSocket(domain Domain, typ SockType, proto Protocol, queueCapacity int) *Socket {
	if queueCapacity <= 0 {
		queueCapacity = QueueCapacity
	}
	return &Socket{
		Domain:       domain,
		Type:         typ,
		Protocol:     proto,
		nextPacketFD: 1,
		packets:      make(map[int]*Frame),
		pending:      make(chan *Frame, queueCapacity),
	}
}

// SetListen sets or clears the listen flag.
func (s *Socket) SetListen(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listen = v
}

// Listening reports whether the listen flag is set.
func (s *Socket) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listen
}

// SetConnected sets or clears the connected flag.
func (s *Socket) SetConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// Connected reports whether the socket is connected.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// RegisterPacket records an in-flight outbound frame under a fresh
// packet handle and returns the handle.
func (s *Socket) RegisterPacket(f *Frame) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd := s.nextPacketFD
	s.nextPacketFD++
	f.FD = fd
	s.packets[fd] = f
	return fd
}

// Packet returns the in-flight frame registered under the handle.
func (s *Socket) Packet(fd int) (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.packets[fd]
	return f, ok
}

// HasPacket reports whether the handle references an in-flight frame.
func (s *Socket) HasPacket(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.packets[fd]
	return ok
}

// ErasePacket removes the handle from the socket's bookkeeping.
func (s *Socket) ErasePacket(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.packets, fd)
}

// Deliver pushes one inbound frame onto the pending queue, waking the
// blocked receiver if any. Ownership of the frame moves to the socket.
// The frame is dropped when the queue is full; delivery never blocks
// the demultiplexer. Reports whether the frame was accepted.
func (s *Socket) Deliver(f *Frame) bool {
	select {
	case s.pending <- f:
		return true
	default:
		return false
	}
}

// HasPending reports whether a delivered frame is waiting.
func (s *Socket) HasPending() bool {
	return len(s.pending) > 0
}

// NextPending blocks until a frame is delivered and pops the oldest
// one. Single consumer.
func (s *Socket) NextPending() *Frame {
	return <-s.pending
}

// NextPendingTimeout pops the oldest delivered frame, waiting at most
// the given duration. A zero duration never suspends the caller: it
// either pops an already-delivered frame or fails immediately.
func (s *Socket) NextPendingTimeout(d time.Duration) (*Frame, bool) {
	if d == 0 {
		select {
		case f := <-s.pending:
			return f, true
		default:
			return nil, false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case f := <-s.pending:
		return f, true
	case <-t.C:
		return nil, false
	}
}
