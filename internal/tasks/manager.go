package tasks

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type UnknownTaskError struct {
	Name string
}

func (e UnknownTaskError) Error() string {
	return fmt.Sprintf("no maintenance task named '%s'", e.Name)
}

// Manager holds the registered maintenance tasks and drives their interval
// runs. Registration happens once at startup; afterwards the manager is
// read-mostly and safe for concurrent triggers.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*task
}

func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*task)}
}

// Register adds a task and, for a positive interval, starts its ticker loop.
func (m *Manager) Register(name string, every time.Duration, fn Func) {
	t := &task{
		name:         name,
		every:        every,
		fn:           fn,
		registeredAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[name] = t
	m.mu.Unlock()

	if every > 0 {
		go t.loop()
	}
}

// Trigger starts a run in the background. A run already in flight makes this
// a no-op; the task logs the skip.
func (m *Manager) Trigger(name string) error {
	t, err := m.lookup(name)
	if err != nil {
		return err
	}
	go t.run()
	return nil
}

// TriggerAndWait runs the task synchronously. Startup uses this so the first
// sweep finishes before the server accepts traffic.
func (m *Manager) TriggerAndWait(name string) error {
	t, err := m.lookup(name)
	if err != nil {
		return err
	}
	t.run()
	return nil
}

// ListStatus snapshots every task, ordered by name.
func (m *Manager) ListStatus() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Status, 0, len(m.tasks))
	for _, t := range m.tasks {
		list = append(list, t.snapshot())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// GetLogs returns the captured output of the task's most recent run.
func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	t, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return t.logLines(), nil
}

func (m *Manager) lookup(name string) (*task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[name]
	if !ok {
		return nil, UnknownTaskError{Name: name}
	}
	return t, nil
}
