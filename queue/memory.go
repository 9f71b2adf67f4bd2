package queue

import (
	"slices"
	"sync"
	"time"
)

// Memory is an in-process queue. The zero value is ready to use.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string
	calls   int
	dups    int
}

// NewMemory returns an empty queue.
func NewMemory() *Memory {
	return &Memory{}
}

// Enqueue stores payload under resourceID unless the id is already queued.
func (m *Memory) Enqueue(resourceID, applicationID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if _, ok := m.records[resourceID]; ok {
		m.dups++
		return nil
	}
	if m.records == nil {
		m.records = make(map[string]Record)
	}
	m.records[resourceID] = Record{
		ResourceID:    resourceID,
		ApplicationID: applicationID,
		Payload:       slices.Clone(payload),
		EnqueuedAt:    time.Now(),
	}
	m.order = append(m.order, resourceID)
	return nil
}

// Get returns the record for resourceID.
func (m *Memory) Get(resourceID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[resourceID]
	return r, ok
}

// List returns every record in enqueue order.
func (m *Memory) List() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// Remove drops a delivered record. It reports whether the record existed.
func (m *Memory) Remove(resourceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[resourceID]; !ok {
		return false
	}
	delete(m.records, resourceID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == resourceID })
	return true
}

// Len returns the number of queued records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Calls returns how many times Enqueue was called, duplicates included.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Duplicates returns how many Enqueue calls named an id already queued.
func (m *Memory) Duplicates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dups
}
