package process

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// MaxProcess is the size of the process slot table.
const MaxProcess = 128

// Manager errors.
var (
	ErrTooManyProcesses = errors.New("process: no free slot")
	ErrInvalidPID       = errors.New("process: invalid pid")
)

// Manager owns the process slot table.
type Manager struct {
	log *zap.Logger

	mu    sync.RWMutex
	slots [MaxProcess]*Process
}

// NewManager returns a manager with an empty slot table. A nil logger
// disables logging.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// allocate claims the first free slot. Caller holds m.mu.
func (m *Manager) allocate(name string) (*Process, error) {
	for pid := 1; pid < MaxProcess; pid++ {
		if m.slots[pid] == nil {
			p := newProcess(pid, name)
			m.slots[pid] = p
			return p, nil
		}
	}
	return nil, ErrTooManyProcesses
}

// NewProcess creates a process slot in the New state without starting
// any execution. Callers move it to Ready/Running themselves.
func (m *Manager) NewProcess(name string) (*Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocate(name)
}

// CreateKernelTask creates a system-owned task with a dedicated
// execution context and starts it at the given priority. The task
// function is expected to run for the lifetime of the system; if it
// returns, the slot moves to Killed.
func (m *Manager) CreateKernelTask(name string, ppid int, prio Priority, fn func()) (*Process, error) {
	m.mu.Lock()
	p, err := m.allocate(name)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.PPID = ppid
	p.Priority = prio
	p.System = true
	p.SetState(StateRunning)

	m.log.Debug("kernel task started", zap.String("name", name), zap.Int("pid", p.PID))

	go func() {
		defer p.SetState(StateKilled)
		fn()
	}()

	return p, nil
}

// Process returns the slot for the pid.
func (m *Manager) Process(pid int) (*Process, bool) {
	if pid < 0 || pid >= MaxProcess {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.slots[pid]
	return p, p != nil
}

// State returns the lifecycle state of the slot; empty slots report
// StateEmpty.
func (m *Manager) State(pid int) State {
	p, ok := m.Process(pid)
	if !ok {
		return StateEmpty
	}
	return p.State()
}

// Kill marks the process killed. Its socket table is left in place;
// killed slots are skipped by enumeration-based consumers.
func (m *Manager) Kill(pid int) error {
	p, ok := m.Process(pid)
	if !ok {
		return ErrInvalidPID
	}
	p.SetState(StateKilled)
	return nil
}
