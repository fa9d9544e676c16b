package stack

import (
	"net"

	"go.uber.org/zap"

	"helios/pkg/netstack"
)

// socket resolves a socket handle within the owning process.
func (s *Stack) socket(pid, fd int) (*netstack.Socket, error) {
	p, ok := s.procs.Process(pid)
	if !ok {
		return nil, netstack.ErrInvalidFd
	}
	sock, ok := p.Socket(fd)
	if !ok {
		return nil, netstack.ErrInvalidFd
	}
	return sock, nil
}

// Open validates the requested identity and allocates a socket in the
// owning process's table. Nothing is allocated on a validation
// failure.
func (s *Stack) Open(pid int, domain netstack.Domain, typ netstack.SockType, proto netstack.Protocol) (int, error) {
	if domain != netstack.DomainInet {
		return 0, netstack.ErrInvalidDomain
	}
	if typ != netstack.SockRaw && typ != netstack.SockDgram && typ != netstack.SockStream {
		return 0, netstack.ErrInvalidType
	}
	if proto != netstack.ProtoICMP && proto != netstack.ProtoDNS && proto != netstack.ProtoTCP {
		return 0, netstack.ErrInvalidProtocol
	}
	if !netstack.ValidCombination(typ, proto) {
		return 0, netstack.ErrInvalidTypeProtocol
	}

	p, ok := s.procs.Process(pid)
	if !ok {
		return 0, netstack.ErrInvalidFd
	}

	sock := netstack.NewSocket(domain, typ, proto, s.cfg.QueueCapacity)
	fd := p.InstallSocket(sock)

	s.log.Debug("socket opened", zap.Int("pid", pid), zap.Int("fd", fd),
		zap.Stringer("type", typ), zap.Stringer("protocol", proto))
	return fd, nil
}

// Close releases the socket handle. Closing an unknown handle is a
// silent no-op.
func (s *Stack) Close(pid, fd int) {
	p, ok := s.procs.Process(pid)
	if !ok {
		return
	}
	if p.HasSocket(fd) {
		p.ReleaseSocket(fd)
		s.log.Debug("socket closed", zap.Int("pid", pid), zap.Int("fd", fd))
	}
}

// Listen sets or clears the socket's listen flag.
func (s *Stack) Listen(pid, fd int, enabled bool) error {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return err
	}
	sock.SetListen(enabled)
	return nil
}

// ClientBind assigns the next ephemeral port to a datagram socket and
// returns it.
func (s *Stack) ClientBind(pid, fd int) (uint32, error) {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return 0, err
	}
	if sock.Type != netstack.SockDgram {
		return 0, netstack.ErrInvalidType
	}

	sock.LocalPort = s.nextLocalPort()

	s.log.Debug("datagram socket bound", zap.Int("pid", pid), zap.Int("fd", fd),
		zap.Uint32("port", sock.LocalPort))
	return sock.LocalPort, nil
}

// Connect binds a fresh ephemeral port plus the server address to a
// stream socket and runs the protocol handshake. The assigned local
// port is kept even when the handshake fails; only success marks the
// socket connected.
func (s *Stack) Connect(pid, fd int, server net.IP, port uint32) (uint32, error) {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return 0, err
	}
	if sock.Type != netstack.SockStream {
		return 0, netstack.ErrInvalidType
	}

	sock.LocalPort = s.nextLocalPort()
	sock.ServerPort = port
	sock.ServerAddr = server.To4()

	s.log.Debug("stream socket bound", zap.Int("pid", pid), zap.Int("fd", fd),
		zap.Uint32("port", sock.LocalPort))

	if sock.Protocol != netstack.ProtoTCP {
		return 0, netstack.ErrInvalidTypeProtocol
	}
	if err := s.tcp.Connect(sock, s.SelectInterface(sock.ServerAddr)); err != nil {
		return 0, err
	}
	sock.SetConnected(true)

	return sock.LocalPort, nil
}

// Disconnect tears down a connected stream socket. The connected flag
// is cleared only when the protocol teardown succeeds.
func (s *Stack) Disconnect(pid, fd int) error {
	sock, err := s.socket(pid, fd)
	if err != nil {
		return err
	}
	if sock.Type != netstack.SockStream {
		return netstack.ErrInvalidType
	}
	if !sock.Connected() {
		return netstack.ErrNotConnected
	}

	s.log.Debug("stream socket disconnecting", zap.Int("pid", pid), zap.Int("fd", fd))

	if sock.Protocol != netstack.ProtoTCP {
		return netstack.ErrInvalidTypeProtocol
	}
	if err := s.tcp.Disconnect(sock, s.SelectInterface(sock.ServerAddr)); err != nil {
		return err
	}
	sock.SetConnected(false)

	return nil
}
