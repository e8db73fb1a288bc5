package session

import (
	"sync"

	"github.com/RichardoC/chat-relay/internal/models"
)

// Session owns one conversation log. Lock must be held while touching Log.
type Session struct {
	id     string
	mu     sync.Mutex
	log    *Log
	loaded bool
}

func (s *Session) ID() string { return s.id }

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) Log() *Log { return s.log }

// Loaded reports whether the log reflects durable storage.
func (s *Session) Loaded() bool { return s.loaded }

func (s *Session) MarkLoaded() { s.loaded = true }

// Invalidate forces the next user of the session to reload it from storage.
func (s *Session) Invalidate() {
	s.loaded = false
	s.log.Clear()
}

// Registry maps session ids to sessions, creating them on first reference.
// Entries are never expired.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	maxSize  int
}

func NewRegistry(maxSize int) *Registry {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Registry{
		sessions: make(map[string]*Session),
		maxSize:  maxSize,
	}
}

// GetOrCreate returns the session bound to id. An empty id resolves to
// models.DefaultSessionID.
func (r *Registry) GetOrCreate(id string) *Session {
	id = models.SessionIDOrDefault(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &Session{id: id, log: NewLog(r.maxSize)}
	r.sessions[id] = s
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
