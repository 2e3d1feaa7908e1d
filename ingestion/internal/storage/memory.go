package storage

import (
	"context"
	"sync"

	"github.com/telhawk-systems/relay/common/models"
)

// MemorySink keeps documents in process memory. For development and tests.
type MemorySink struct {
	mu   sync.RWMutex
	docs []models.Document
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Insert(ctx context.Context, rec models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireStamped(rec); err != nil {
		return err
	}

	m.mu.Lock()
	m.docs = append(m.docs, rec.Document())
	m.mu.Unlock()
	return nil
}

func (m *MemorySink) Name() string { return BackendMemory }

func (m *MemorySink) Close(context.Context) error { return nil }

// Documents returns a copy of everything inserted so far, in insert order.
func (m *MemorySink) Documents() []models.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Document, len(m.docs))
	copy(out, m.docs)
	return out
}

func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
