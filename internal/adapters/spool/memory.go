// Package spool stores sealed batches awaiting delivery.
package spool

import (
	"sync"

	"github.com/bft-labs/batchship/internal/domain"
)

type entry struct {
	seq   uint64
	batch domain.Batch
}

// Memory is a volatile spool. Its contents are lost on exit.
type Memory struct {
	mu      sync.Mutex
	entries []entry
	lastSeq uint64
}

// NewMemory creates an empty in-memory spool.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(b domain.Batch) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeq++
	m.entries = append(m.entries, entry{seq: m.lastSeq, batch: b})
	return m.lastSeq, nil
}

func (m *Memory) Oldest() (uint64, domain.Batch, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return 0, domain.Batch{}, false, nil
	}
	e := m.entries[0]
	return e.seq, e.batch, true, nil
}

func (m *Memory) Update(seq uint64, b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].seq == seq {
			m.entries[i].batch = b
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Remove(seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].seq == seq {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close() error {
	return nil
}
