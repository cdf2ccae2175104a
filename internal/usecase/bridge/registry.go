package bridge

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionInfo is a read-only snapshot of one active session.
type SessionInfo struct {
	StreamID       string    `json:"stream_id"`
	ExternalCallID string    `json:"external_call_id"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Registry is the process-wide table of active sessions keyed by stream id.
// It is the only state shared across concurrent sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{sessions: make(map[string]*Session), logger: logger}
}

// Register inserts a session. When the stream id is already registered the
// existing session is returned and the new one is discarded.
func (r *Registry) Register(s *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.StreamID]; ok {
		r.logger.Warn("session already registered", zap.String("stream_id", s.StreamID))
		return existing, false
	}
	r.sessions[s.StreamID] = s
	r.logger.Info("session registered",
		zap.String("stream_id", s.StreamID),
		zap.String("external_call_id", s.ExternalCallID),
		zap.Int("active_sessions", len(r.sessions)))
	return s, true
}

// Get looks up a session by stream id.
func (r *Registry) Get(streamID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[streamID]
	return s, ok
}

// Unregister removes a session. Safe to call for an unknown or already
// removed stream id.
func (r *Registry) Unregister(streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[streamID]; !ok {
		return
	}
	delete(r.sessions, streamID)
	r.logger.Info("session unregistered",
		zap.String("stream_id", streamID),
		zap.Int("active_sessions", len(r.sessions)))
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns info for every active session.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Info())
	}
	return out
}
