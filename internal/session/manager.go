// Package session keeps one visualizer per browser session in memory.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/storage"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// DefaultMaxSessions limits concurrent sessions to prevent memory exhaustion
const DefaultMaxSessions = 200

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Options configures a Manager.
type Options struct {
	// MaxSessions caps live sessions; the least recently used one is
	// evicted to make room. Zero means DefaultMaxSessions.
	MaxSessions int
	Visualizer  visualizer.Options
	Logger      *zap.Logger
}

// Manager handles active visualizer sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	catalog  visualizer.Catalog
	store    storage.Store
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// SessionState holds one visualizer and its bookkeeping. The visualizer is
// only touched with mu held.
type SessionState struct {
	mu           sync.Mutex
	id           string
	createdAt    time.Time
	lastAccessed time.Time // guarded by Manager.mu
	vis          *visualizer.Visualizer
	released     bool
}

// NewManager creates a session manager. Uploaded backgrounds are read from
// and removed through store.
func NewManager(catalog visualizer.Catalog, store storage.Store, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		catalog:  catalog,
		store:    store,
		opts:     opts,
		logger:   logger.Named("session"),
		now:      time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the manager is full.
func (m *Manager) Create() *models.SessionInfo {
	now := m.now()
	state := &SessionState{
		id:           uuid.New().String(),
		createdAt:    now,
		lastAccessed: now,
		vis:          visualizer.New(m.catalog, m.opts.Visualizer),
	}

	m.mu.Lock()
	var evicted *SessionState
	if len(m.sessions) >= m.opts.MaxSessions {
		evicted = m.oldestLocked()
		if evicted != nil {
			delete(m.sessions, evicted.id)
		}
	}
	m.sessions[state.id] = state
	m.mu.Unlock()

	if evicted != nil {
		m.logger.Info("evicted least recently used session", zap.String("session", evicted.id))
		m.release(evicted)
	}
	m.logger.Debug("session created", zap.String("session", state.id))

	return &models.SessionInfo{
		ID:           state.id,
		CreatedAt:    state.createdAt,
		LastAccessed: state.lastAccessed,
		State:        state.vis.Snapshot(),
	}
}

// Get returns a session and its current state.
func (m *Manager) Get(id string) (*models.SessionInfo, error) {
	var info *models.SessionInfo
	err := m.With(id, func(v *visualizer.Visualizer) error {
		m.mu.RLock()
		state := m.sessions[id]
		m.mu.RUnlock()
		if state == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		info = &models.SessionInfo{
			ID:           id,
			CreatedAt:    state.createdAt,
			LastAccessed: m.lastAccessed(state),
			State:        v.Snapshot(),
		}
		return nil
	})
	return info, err
}

// With runs fn with exclusive access to the session's visualizer and marks
// the session as used.
func (m *Manager) With(id string, fn func(v *visualizer.Visualizer) error) error {
	state, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.withState(state, fn)
}

func (m *Manager) lookup(id string) (*SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[id]
	if ok {
		state.lastAccessed = m.now()
	}
	return state, ok
}

// withState runs fn under the session lock. A session released after it
// was looked up is reported as not found.
func (m *Manager) withState(state *SessionState, fn func(v *visualizer.Visualizer) error) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.released {
		return fmt.Errorf("%w: %s", ErrNotFound, state.id)
	}
	return fn(state.vis)
}

// Snapshot returns the visible state of a session.
func (m *Manager) Snapshot(id string) (models.CanvasState, error) {
	var snap models.CanvasState
	err := m.With(id, func(v *visualizer.Visualizer) error {
		snap = v.Snapshot()
		return nil
	})
	return snap, err
}

// IngestFile makes a stored upload the background of a session. The
// previous background file is removed on success; a rejected upload is
// removed instead.
func (m *Manager) IngestFile(ctx context.Context, sessionID, fileID string) (*models.BackgroundInfo, error) {
	info, err := m.store.Get(fileID)
	if err != nil {
		return nil, err
	}
	data, err := m.store.ReadAll(fileID)
	if err != nil {
		return nil, err
	}

	var (
		background *models.BackgroundInfo
		previous   string
	)
	err = m.With(sessionID, func(v *visualizer.Visualizer) error {
		if old, _ := v.Background(); old != nil {
			previous = old.FileID
		}
		var ierr error
		background, ierr = v.Ingest(ctx, visualizer.Upload{
			FileID:      fileID,
			Name:        info.Name,
			ContentType: info.ContentType,
			Data:        data,
		})
		return ierr
	})
	if err != nil {
		m.deleteFile(fileID)
		return nil, err
	}

	if err := m.store.SetStatus(fileID, "ingested"); err != nil {
		m.logger.Warn("failed to mark upload ingested", zap.String("file", fileID), zap.Error(err))
	}
	if previous != "" && previous != fileID {
		m.deleteFile(previous)
	}

	m.logger.Info("background ingested",
		zap.String("session", sessionID),
		zap.String("file", fileID),
		zap.Int("width", background.NaturalWidth),
		zap.Int("height", background.NaturalHeight),
	)
	return background, nil
}

// Reset clears a session back to its initial state and removes its
// background file.
func (m *Manager) Reset(id string) (models.CanvasState, error) {
	var (
		snap   models.CanvasState
		fileID string
	)
	err := m.With(id, func(v *visualizer.Visualizer) error {
		if bg, _ := v.Background(); bg != nil {
			fileID = bg.FileID
		}
		v.Reset()
		snap = v.Snapshot()
		return nil
	})
	if err != nil {
		return snap, err
	}
	if fileID != "" {
		m.deleteFile(fileID)
	}
	return snap, nil
}

// Delete removes a session and its background file.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.release(state)
	return nil
}

// TouchSession updates the last access time of a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.lastAccessed = m.now()
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions not accessed within maxAge and
// returns how many were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	var expired []*SessionState
	for id, state := range m.sessions {
		if state.lastAccessed.Before(cutoff) {
			expired = append(expired, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, state := range expired {
		m.logger.Info("cleaned up idle session",
			zap.String("session", state.id),
			zap.Duration("idle", m.now().Sub(state.lastAccessed).Round(time.Second)),
		)
		m.release(state)
	}
	return len(expired)
}

// Run removes idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

func (m *Manager) oldestLocked() *SessionState {
	var oldest *SessionState
	for _, state := range m.sessions {
		if oldest == nil || state.lastAccessed.Before(oldest.lastAccessed) {
			oldest = state
		}
	}
	return oldest
}

func (m *Manager) lastAccessed(state *SessionState) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return state.lastAccessed
}

// release removes the background file of a session that is no longer
// reachable through the map.
func (m *Manager) release(state *SessionState) {
	state.mu.Lock()
	state.released = true
	bg, _ := state.vis.Background()
	state.mu.Unlock()

	if bg != nil && bg.FileID != "" {
		m.deleteFile(bg.FileID)
	}
}

func (m *Manager) deleteFile(fileID string) {
	if err := m.store.Delete(fileID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn("failed to delete upload", zap.String("file", fileID), zap.Error(err))
	}
}
