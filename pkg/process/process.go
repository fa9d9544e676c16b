package process

import (
	"sync"

	"helios/pkg/netstack"
)

// State represents the lifecycle state of a process slot.
type State uint8

// Process slot states.
const (
	// StateEmpty marks an unused slot.
	StateEmpty State = iota
	// StateNew marks a created process not yet scheduled.
	StateNew
	// StateReady marks a process ready to run.
	StateReady
	// StateRunning marks a process currently executing.
	StateRunning
	// StateWaiting marks a process blocked on an event.
	StateWaiting
	// StateKilled marks a terminated process.
	StateKilled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Priority represents scheduling priority.
type Priority int

// Priorities.
const (
	PriorityIdle Priority = iota
	PriorityDefault
	PriorityHigh
)

// Process is one process slot: identity, scheduling state and the
// per-process socket table.
type Process struct {
	PID      int
	PPID     int
	Name     string
	Priority Priority

	// System marks kernel-owned tasks (network pumps and the like).
	System bool

	mu      sync.Mutex
	state   State
	nextFD  int
	sockets map[int]*netstack.Socket
}

func newProcess(pid int, name string) *Process {
	return &Process{
		PID:     pid,
		Name:    name,
		state:   StateNew,
		nextFD:  1,
		sockets: make(map[int]*netstack.Socket),
	}
}

// State returns the process state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState moves the process to the given state.
func (p *Process) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// InstallSocket stores a socket under a fresh handle and returns the
// handle. The socket's ID is set to the handle.
func (p *Process) InstallSocket(s *netstack.Socket) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	fd := p.nextFD
	p.nextFD++
	s.ID = fd
	p.sockets[fd] = s
	return fd
}

// Socket returns the socket stored under the handle.
func (p *Process) Socket(fd int) (*netstack.Socket, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sockets[fd]
	return s, ok
}

// HasSocket reports whether the handle references a stored socket.
func (p *Process) HasSocket(fd int) bool {
	_, ok := p.Socket(fd)
	return ok
}

// ReleaseSocket removes the socket stored under the handle. Unknown
// handles are a no-op.
func (p *Process) ReleaseSocket(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sockets, fd)
}

// Sockets returns a snapshot of the process's sockets.
func (p *Process) Sockets() []*netstack.Socket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*netstack.Socket, 0, len(p.sockets))
	for _, s := range p.sockets {
		out = append(out, s)
	}
	return out
}
