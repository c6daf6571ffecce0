package registry

import (
	"errors"
	"sync"

	game "vortcheno/internal/game"
	util "vortcheno/internal/util"
)

var (
	ErrAlreadyExists    = errors.New("a session already exists for this chat")
	ErrNotFound         = errors.New("no session for this chat")
	ErrCapacityExceeded = errors.New("maximum concurrent sessions reached")
)

// Handle grants exclusive access to one chat's session. Callers lock it for
// the duration of any read or mutation; the registry's own mutex only guards
// the map, so work on one chat never blocks another.
type Handle struct {
	mu      sync.Mutex
	session *game.Session
}

func (h *Handle) Lock()   { h.mu.Lock() }
func (h *Handle) Unlock() { h.mu.Unlock() }

// Session returns the wrapped session. Only meaningful while the handle is
// held.
func (h *Handle) Session() *game.Session { return h.session }

// Registry is the concurrency-safe collection of live sessions, keyed by
// chat id, with a hard cap on how many may exist at once.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Handle
	max      int
}

func New(maxSessions int) *Registry {
	return &Registry{
		sessions: make(map[int64]*Handle),
		max:      maxSessions,
	}
}

// Create inserts a session for the chat. The capacity check and the insert
// happen under one lock so the cap cannot be exceeded by a race.
func (r *Registry) Create(chatID int64, s *game.Session) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[chatID]; exists {
		return nil, ErrAlreadyExists
	}
	if len(r.sessions) >= r.max {
		util.LogWarn("Session capacity reached (%d/%d), rejecting chat %d", len(r.sessions), r.max, chatID)
		return nil, ErrCapacityExceeded
	}

	h := &Handle{session: s}
	r.sessions[chatID] = h
	return h, nil
}

func (r *Registry) Get(chatID int64) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// Remove frees the chat's slot. Anyone already holding the handle finishes
// against a detached session.
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Chats returns the ids of all live sessions.
func (r *Registry) Chats() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
