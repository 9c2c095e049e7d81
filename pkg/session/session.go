// Package session keeps the open student workspaces behind the session_id cookie.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/metrics"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
)

// Store manages student workspaces with sliding expiry and automatic cleanup
type Store struct {
	sessions map[string]*Data
	mutex    sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// Data holds one student's activity manager with its expiration
type Data struct {
	Workspace *manager.Manager
	ExpiresAt time.Time
}

// NewStore creates a new session store and starts cleanup routine.
// A non-positive timeout falls back to the default session timeout.
func NewStore(timeout time.Duration) *Store {
	store := newStore(timeout)
	store.startCleanup()
	return store
}

func newStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = time.Duration(models.SessionTimeout) * time.Second
	}
	return &Store{
		sessions: make(map[string]*Data),
		timeout:  timeout,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Set stores a workspace with automatic expiration
func (s *Store) Set(id string, workspace *manager.Manager) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[id] = &Data{
		Workspace: workspace,
		ExpiresAt: s.now().Add(s.timeout),
	}
	metrics.SetActiveSessions(len(s.sessions))

	logging.LogDebug("Workspace stored",
		"session_id", id,
		"student", workspace.Student().Identifier(),
		"expires_at", s.sessions[id].ExpiresAt.Format(time.RFC3339))
}

// Get retrieves the workspace if it exists and hasn't expired, extending its lifetime
func (s *Store) Get(id string) (*manager.Manager, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sessionData, exists := s.sessions[id]
	if !exists {
		logging.LogDebug("Session not found", "session_id", id)
		return nil, false
	}

	now := s.now()
	if now.After(sessionData.ExpiresAt) {
		logging.LogDebug("Session expired",
			"session_id", id,
			"expired_at", sessionData.ExpiresAt.Format(time.RFC3339))

		delete(s.sessions, id)
		metrics.SetActiveSessions(len(s.sessions))

		return nil, false
	}

	sessionData.ExpiresAt = now.Add(s.timeout)
	return sessionData.Workspace, true
}

// Delete removes a session
func (s *Store) Delete(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[id]; exists {
		delete(s.sessions, id)
		metrics.SetActiveSessions(len(s.sessions))
		logging.LogDebug("Session deleted", "session_id", id)
	}
}

// Close stops the cleanup routine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// startCleanup runs a background goroutine to clean up expired sessions
func (s *Store) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanupExpired()
			case <-s.stop:
				return
			}
		}
	}()
}

// cleanupExpired removes all expired sessions
func (s *Store) cleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	expiredCount := 0

	for id, sessionData := range s.sessions {
		if now.After(sessionData.ExpiresAt) {
			delete(s.sessions, id)
			expiredCount++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))

	if expiredCount > 0 {
		logging.LogInfo("Cleaned up expired sessions",
			"expired_count", expiredCount,
			"remaining_sessions", len(s.sessions))
	}
}

// GenerateSessionID creates a cryptographically secure random session ID
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		logging.LogError("Failed to generate session ID", err)
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Timeout returns the idle lifetime of a workspace
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// GetSessionCount returns the current number of active sessions
func (s *Store) GetSessionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}
