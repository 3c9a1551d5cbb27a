package storage

import (
	"context"
	"sync"

	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// MemoryStore keeps the encoded snapshot in memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (store.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.payload == nil {
		return store.State{}, store.ErrNoState
	}
	return store.Decode(m.payload)
}

func (m *MemoryStore) Save(_ context.Context, st store.State) error {
	data, err := store.Encode(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.payload = data
	m.mu.Unlock()
	return nil
}
