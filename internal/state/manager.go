package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"pdf-quiz/internal/logger"
	"pdf-quiz/internal/quiz"
)

const (
	defaultSaveTimeout = 5 * time.Second
	DefaultIdleTimeout = 30 * time.Minute
)

// StoreFactory builds the live store for a session, typically wiring the
// remote question syncer for that session id.
type StoreFactory func(sessionID string) *quiz.Store

type ManagerOption func(*Manager)

// WithIdleTimeout sets how long a live store may go unused before Sweep
// evicts it. Evicted sessions are restored from their snapshot on next access.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

type session struct {
	store       *quiz.Store
	unsubscribe func()
	lastAccess  time.Time
}

// Manager keeps one live quiz.Store per session id. A store is restored from
// the snapshot store on first access and every later change is written back.
type Manager struct {
	snapshots   SnapshotStore
	factory     StoreFactory
	log         *logger.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	onEvict  []func(sessionID string)
}

func NewManager(snapshots SnapshotStore, factory StoreFactory, log *logger.Logger, opts ...ManagerOption) *Manager {
	if snapshots == nil {
		snapshots = NewMemoryStore()
	}
	if factory == nil {
		factory = func(string) *quiz.Store { return quiz.NewStore() }
	}
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{
		snapshots:   snapshots,
		factory:     factory,
		log:         log,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnEvict registers fn to run after a session leaves memory, through Sweep or Drop.
func (m *Manager) OnEvict(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = append(m.onEvict, fn)
}

// Get returns the live store for sessionID, creating and restoring it if needed.
// A broken snapshot is logged and the session starts empty.
func (m *Manager) Get(ctx context.Context, sessionID string) *quiz.Store {
	if store, ok := m.touch(sessionID); ok {
		return store
	}

	// Load without holding mu; a slow backend must not stall other sessions.
	store := m.factory(sessionID)
	snap, err := m.snapshots.Load(ctx, sessionID)
	switch {
	case err == nil:
		store.Restore(snap)
	case errors.Is(err, ErrNotFound):
	default:
		m.log.Warn("snapshot load failed, starting empty session", "session_id", sessionID, "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		existing.lastAccess = m.now()
		return existing.store
	}
	unsubscribe := store.Subscribe(func(snap quiz.Snapshot) {
		m.save(sessionID, snap)
	})
	m.sessions[sessionID] = &session{store: store, unsubscribe: unsubscribe, lastAccess: m.now()}
	return store
}

func (m *Manager) touch(sessionID string) (*quiz.Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	existing.lastAccess = m.now()
	return existing.store, true
}

// Len reports how many sessions are live in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Drop forgets the live store and its persisted snapshot.
func (m *Manager) Drop(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	existing, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	hooks := append([]func(string){}, m.onEvict...)
	m.mu.Unlock()

	if ok {
		m.release(sessionID, existing, hooks)
	}
	return m.snapshots.Delete(ctx, sessionID)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns
// their ids. Their snapshots stay in the snapshot store.
func (m *Manager) Sweep() []string {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	evicted := make(map[string]*session)
	for id, s := range m.sessions {
		if s.lastAccess.Before(cutoff) {
			evicted[id] = s
			delete(m.sessions, id)
		}
	}
	hooks := append([]func(string){}, m.onEvict...)
	m.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for id, s := range evicted {
		m.release(id, s, hooks)
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		m.log.Debug("evicted idle sessions", "count", len(ids))
	}
	return ids
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(max(m.idleTimeout/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close waits for pending question syncs on every live store.
func (m *Manager) Close() {
	m.mu.Lock()
	live := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.store.WaitForSync()
	}
}

func (m *Manager) release(sessionID string, s *session, hooks []func(string)) {
	s.unsubscribe()
	s.store.WaitForSync()
	for _, hook := range hooks {
		hook(sessionID)
	}
}

func (m *Manager) save(sessionID string, snap quiz.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSaveTimeout)
	defer cancel()
	if err := m.snapshots.Save(ctx, sessionID, snap); err != nil {
		m.log.Warn("snapshot save failed", "session_id", sessionID, "error", err)
	}
}
