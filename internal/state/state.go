package state

import (
	"context"
	"errors"
	"sync"

	"pdf-quiz/internal/quiz"
)

var ErrNotFound = errors.New("session snapshot not found")

// SnapshotStore persists one quiz snapshot per session id.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (quiz.Snapshot, error)
	Save(ctx context.Context, sessionID string, snap quiz.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]quiz.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]quiz.Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (quiz.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[sessionID]
	if !ok {
		return quiz.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, snap quiz.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = snap
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}
