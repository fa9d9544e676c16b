package stack

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/pkg/netstack"
	"helios/pkg/process"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		domain   netstack.Domain
		typ      netstack.SockType
		protocol netstack.Protocol
		wantErr  error
	}{
		{"raw icmp", netstack.DomainInet, netstack.SockRaw, netstack.ProtoICMP, nil},
		{"raw dns", netstack.DomainInet, netstack.SockRaw, netstack.ProtoDNS, nil},
		{"raw tcp", netstack.DomainInet, netstack.SockRaw, netstack.ProtoTCP, nil},
		{"dgram dns", netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS, nil},
		{"stream tcp", netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP, nil},
		{"dgram icmp", netstack.DomainInet, netstack.SockDgram, netstack.ProtoICMP, netstack.ErrInvalidTypeProtocol},
		{"dgram tcp", netstack.DomainInet, netstack.SockDgram, netstack.ProtoTCP, netstack.ErrInvalidTypeProtocol},
		{"stream icmp", netstack.DomainInet, netstack.SockStream, netstack.ProtoICMP, netstack.ErrInvalidTypeProtocol},
		{"stream dns", netstack.DomainInet, netstack.SockStream, netstack.ProtoDNS, netstack.ErrInvalidTypeProtocol},
		{"bad domain", netstack.Domain(9), netstack.SockRaw, netstack.ProtoICMP, netstack.ErrInvalidDomain},
		{"bad type", netstack.DomainInet, netstack.SockType(9), netstack.ProtoICMP, netstack.ErrInvalidType},
		{"bad protocol", netstack.DomainInet, netstack.SockRaw, netstack.Protocol(9), netstack.ErrInvalidProtocol},
		// Domain is checked first, then type, then protocol.
		{"bad domain and type", netstack.Domain(9), netstack.SockType(9), netstack.ProtoICMP, netstack.ErrInvalidDomain},
		{"bad type and protocol", netstack.DomainInet, netstack.SockType(9), netstack.Protocol(9), netstack.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, pid := testStack(t)
			fd, err := s.Open(pid, tt.domain, tt.typ, tt.protocol)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			sock, err := s.socket(pid, fd)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, sock.Type)
			assert.Equal(t, tt.protocol, sock.Protocol)
		})
	}
}

func TestOpenAssignsDistinctFds(t *testing.T) {
	s, pid := testStack(t)

	a, err := s.Open(pid, netstack.DomainInet, netstack.SockRaw, netstack.ProtoICMP)
	require.NoError(t, err)
	b, err := s.Open(pid, netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCloseUnknownFdIsNoop(t *testing.T) {
	s, pid := testStack(t)

	s.Close(pid, 42)

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockRaw, netstack.ProtoICMP)
	require.NoError(t, err)
	s.Close(pid, fd)
	s.Close(pid, fd)

	_, err = s.socket(pid, fd)
	assert.ErrorIs(t, err, netstack.ErrInvalidFd)
}

func TestListen(t *testing.T) {
	s, pid := testStack(t)

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockRaw, netstack.ProtoICMP)
	require.NoError(t, err)

	require.NoError(t, s.Listen(pid, fd, true))
	sock, err := s.socket(pid, fd)
	require.NoError(t, err)
	assert.True(t, sock.Listening())

	require.NoError(t, s.Listen(pid, fd, false))
	assert.False(t, sock.Listening())

	assert.ErrorIs(t, s.Listen(pid, 42, true), netstack.ErrInvalidFd)
}

func TestClientBindAssignsSequentialPorts(t *testing.T) {
	s, pid := testStack(t)

	a, err := s.Open(pid, netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS)
	require.NoError(t, err)
	b, err := s.Open(pid, netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS)
	require.NoError(t, err)

	pa, err := s.ClientBind(pid, a)
	require.NoError(t, err)
	pb, err := s.ClientBind(pid, b)
	require.NoError(t, err)

	assert.Equal(t, uint32(netstack.DefaultPortSeed), pa)
	assert.Equal(t, uint32(netstack.DefaultPortSeed+1), pb)
}

func TestClientBindRejectsNonDatagram(t *testing.T) {
	s, pid := testStack(t)

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockRaw, netstack.ProtoICMP)
	require.NoError(t, err)

	_, err = s.ClientBind(pid, fd)
	assert.ErrorIs(t, err, netstack.ErrInvalidType)
}

func TestConnect(t *testing.T) {
	tcp := &stubTCP{}
	s, pid := testStack(t, WithTCP(tcp))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)

	server := net.IPv4(127, 0, 0, 1)
	port, err := s.Connect(pid, fd, server, 80)
	require.NoError(t, err)
	assert.Equal(t, uint32(netstack.DefaultPortSeed), port)
	assert.Equal(t, 1, tcp.connects)

	sock, err := s.socket(pid, fd)
	require.NoError(t, err)
	assert.True(t, sock.Connected())
	assert.Equal(t, uint32(80), sock.ServerPort)
	assert.Equal(t, server.To4(), sock.ServerAddr)
}

func TestConnectRejectsNonStream(t *testing.T) {
	s, pid := testStack(t, WithTCP(&stubTCP{}))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS)
	require.NoError(t, err)

	_, err = s.Connect(pid, fd, net.IPv4(127, 0, 0, 1), 80)
	assert.ErrorIs(t, err, netstack.ErrInvalidType)
}

// A failed handshake leaves the consumed ephemeral port behind: the
// next bind observes the gap.
func TestConnectFailureKeepsPort(t *testing.T) {
	tcp := &stubTCP{connectErr: netstack.ErrTimeout}
	s, pid := testStack(t, WithTCP(tcp))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)

	_, err = s.Connect(pid, fd, net.IPv4(127, 0, 0, 1), 80)
	require.ErrorIs(t, err, netstack.ErrTimeout)

	sock, err := s.socket(pid, fd)
	require.NoError(t, err)
	assert.False(t, sock.Connected())
	assert.Equal(t, uint32(netstack.DefaultPortSeed), sock.LocalPort)

	dgram, err := s.Open(pid, netstack.DomainInet, netstack.SockDgram, netstack.ProtoDNS)
	require.NoError(t, err)
	port, err := s.ClientBind(pid, dgram)
	require.NoError(t, err)
	assert.Equal(t, uint32(netstack.DefaultPortSeed+1), port)
}

// Same property against the real TCP collaborator: over loopback the
// SYN comes straight back and no SYN-ACK ever arrives, so the
// handshake times out with the port already consumed.
func TestConnectUnreachablePeerTimesOut(t *testing.T) {
	cfg := netstack.DefaultConfig()
	cfg.HandshakeTimeout = 50 * time.Millisecond

	procs := process.NewManager(nil)
	s := New(cfg, procs)
	require.NoError(t, s.Init(nil))
	require.NoError(t, s.Finalize())

	p, err := procs.NewProcess("test")
	require.NoError(t, err)
	p.SetState(process.StateRunning)

	fd, err := s.Open(p.PID, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)

	_, err = s.Connect(p.PID, fd, net.IPv4(127, 0, 0, 1), 80)
	require.ErrorIs(t, err, netstack.ErrTimeout)

	sock, err := s.socket(p.PID, fd)
	require.NoError(t, err)
	assert.False(t, sock.Connected())
	assert.Equal(t, uint32(netstack.DefaultPortSeed), sock.LocalPort)
}

func TestDisconnect(t *testing.T) {
	tcp := &stubTCP{}
	s, pid := testStack(t, WithTCP(tcp))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)

	_, err = s.Connect(pid, fd, net.IPv4(127, 0, 0, 1), 80)
	require.NoError(t, err)

	require.NoError(t, s.Disconnect(pid, fd))
	sock, err := s.socket(pid, fd)
	require.NoError(t, err)
	assert.False(t, sock.Connected())

	// A second teardown finds the socket no longer connected.
	assert.ErrorIs(t, s.Disconnect(pid, fd), netstack.ErrNotConnected)
}

func TestDisconnectFailureStaysConnected(t *testing.T) {
	tcp := &stubTCP{disconnectErr: netstack.ErrTimeout}
	s, pid := testStack(t, WithTCP(tcp))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)
	_, err = s.Connect(pid, fd, net.IPv4(127, 0, 0, 1), 80)
	require.NoError(t, err)

	require.ErrorIs(t, s.Disconnect(pid, fd), netstack.ErrTimeout)

	sock, err := s.socket(pid, fd)
	require.NoError(t, err)
	assert.True(t, sock.Connected())
}

func TestDisconnectNotConnected(t *testing.T) {
	s, pid := testStack(t, WithTCP(&stubTCP{}))

	fd, err := s.Open(pid, netstack.DomainInet, netstack.SockStream, netstack.ProtoTCP)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Disconnect(pid, fd), netstack.ErrNotConnected)
}
