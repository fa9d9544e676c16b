package stack

import (
	"time"

	"go.uber.org/zap"

	"helios/pkg/netstack"
)

// copyOut moves a delivered frame into the caller's buffer, releases
// the kernel copy and returns the frame's payload index.
func (s *Stack) copyOut(pid, fd int, f *netstack.Frame, buf []byte) int {
	copy(buf, f.Payload)
	index := f.Index
	f.Release()

	s.log.Debug("packet received", zap.Int("pid", pid), zap.Int("fd", fd))
	return index
}

// WaitForPacket blocks until a frame is delivered to the listening
// socket, copies its payload into buf and returns the frame's payload
// index. One waiter per socket: concurrent receives on the same
// socket are unsupported.
func (s *Stack) WaitForPacket(pid, fd int, buf []byte) (int, error) {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return 0, err
	}
	if !sock.Listening() {
		return 0, netstack.ErrNotListen
	}

	s.log.Debug("waiting for packet", zap.Int("pid", pid), zap.Int("fd", fd))

	f := sock.NextPending()
	return s.copyOut(pid, fd, f, buf), nil
}

// WaitForPacketTimeout is WaitForPacket bounded by a timeout. A zero
// timeout never suspends the caller: it fails with ErrTimeout unless a
// frame is already pending. A positive timeout fails with ErrTimeout
// when it elapses without a delivery.
func (s *Stack) WaitForPacketTimeout(pid, fd int, buf []byte, d time.Duration) (int, error) {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return 0, err
	}
	if !sock.Listening() {
		return 0, netstack.ErrNotListen
	}

	s.log.Debug("waiting for packet", zap.Int("pid", pid), zap.Int("fd", fd),
		zap.Duration("timeout", d))

	f, ok := sock.NextPendingTimeout(d)
	if !ok {
		return 0, netstack.ErrTimeout
	}
	return s.copyOut(pid, fd, f, buf), nil
}
