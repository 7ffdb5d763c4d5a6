package state

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/lkarlslund/usageguard/pkg/cache"
)

type Store interface {
	// Load never fails; unusable persisted data yields New().
	Load() *State
	Save(*State) error
}

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() *State {
	var st State
	if err := cache.LoadJSON(s.path, &st); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			slog.Debug("usage state not found, starting empty", "path", s.path)
		} else {
			slog.Debug("usage state unreadable, starting empty", "path", s.path, "error", err)
		}
		return New()
	}
	if st.Version != Version {
		slog.Debug("usage state version mismatch, starting empty", "path", s.path, "version", st.Version, "want", Version)
		return New()
	}
	st.Normalize()
	return &st
}

func (s *FileStore) Save(st *State) error {
	st.Version = Version
	st.Normalize()
	return cache.SaveJSON(s.path, st)
}

// MemoryStore keeps a deep copy of the last saved state.
type MemoryStore struct {
	mu    sync.Mutex
	saved *State
	Saves int
	Err   error
}

func (m *MemoryStore) Load() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return New()
	}
	return m.saved.Clone()
}

func (m *MemoryStore) Save(st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	st.Version = Version
	st.Normalize()
	m.saved = st.Clone()
	m.Saves++
	return nil
}

// Saved returns a copy of the last saved state, or nil.
func (m *MemoryStore) Saved() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil
	}
	return m.saved.Clone()
}
