package annotations

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded state in memory. It goes through the same
// encoding as the persistent stores so callers never share maps with it.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	return DecodeState(m.payload)
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	b, err := EncodeState(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.payload = b
	return nil
}

// Payload returns the last saved encoding.
func (m *MemoryStore) Payload() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.payload...)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
