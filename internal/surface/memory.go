package surface

import (
	"context"
	"sync"
)

// MemoryPublisher records published commands in memory.
type MemoryPublisher struct {
	mu        sync.Mutex
	published map[string]GroupCommand
	publishes int
	retracts  int
	failNext  error
}

// NewMemoryPublisher returns an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{published: make(map[string]GroupCommand)}
}

// Publish implements Publisher.
func (m *MemoryPublisher) Publish(_ context.Context, tenant string, cmd GroupCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.published[tenant] = cmd
	m.publishes++
	return nil
}

// Retract implements Publisher. Retracting an absent command succeeds.
func (m *MemoryPublisher) Retract(_ context.Context, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	delete(m.published, tenant)
	m.retracts++
	return nil
}

// FailNext makes the next Publish or Retract return err.
func (m *MemoryPublisher) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryPublisher) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// Published returns the command currently installed for tenant.
func (m *MemoryPublisher) Published(tenant string) (GroupCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd, ok := m.published[tenant]
	return cmd, ok
}

// Publishes returns the number of successful publishes.
func (m *MemoryPublisher) Publishes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishes
}

// Retracts returns the number of successful retracts.
func (m *MemoryPublisher) Retracts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retracts
}
