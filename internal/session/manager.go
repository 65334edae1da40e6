package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
)

// ErrNotFound is returned by Load for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Manager creates, persists and restores sessions as one JSON document per
// session id under a sessions directory. Saves are atomic: the state is
// written to a temp file then renamed over the target, so a failed write
// never corrupts a previously persisted record.
type Manager struct {
	dir    string
	oracle schema.LLMProvider
	memory config.MemoryConfig
	stage  config.StageConfig
}

// Info is the listing metadata for one persisted session.
type Info struct {
	ID          string
	TotalTurns  int
	CreatedAt   time.Time
	LastUpdated time.Time
}

// NewManager creates a Manager rooted at dir, creating it if necessary.
// oracle may be nil; sessions created by such a manager never compact.
func NewManager(dir string, oracle schema.LLMProvider, memory config.MemoryConfig, stage config.StageConfig) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{dir: dir, oracle: oracle, memory: memory, stage: stage}, nil
}

// New creates an empty session with a fresh id.
func (m *Manager) New() *Session {
	s := newSession(m.oracle, m.memory, m.stage)
	slog.Info("created session", "session", s.state.ID)
	return s
}

// Save persists the session's full state and clears its dirty flag.
func (m *Manager) Save(s *Session) error {
	s.mu.Lock()
	state := s.state.Clone()
	s.mu.Unlock()
	state.Normalize()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", state.ID, err)
	}
	data = append(data, '\n')

	path := m.path(state.ID)
	tmp, err := os.CreateTemp(m.dir, "."+state.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session %s: %w", state.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename session %s: %w", state.ID, err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	slog.Debug("saved session", "session", state.ID, "path", path)
	return nil
}

// Load restores a persisted session. A missing id yields ErrNotFound.
func (m *Manager) Load(id string) (*Session, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var state schema.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	s := restore(state, m.oracle, m.memory, m.stage)
	slog.Info("loaded session", "session", id, "turns", state.TotalTurns)
	return s, nil
}

// List returns metadata for all persisted sessions, newest-first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			slog.Warn("skipping unreadable session file", "file", e.Name(), "err", err)
			continue
		}
		var state schema.SessionState
		if err := json.Unmarshal(data, &state); err != nil {
			slog.Warn("skipping malformed session file", "file", e.Name(), "err", err)
			continue
		}
		out = append(out, Info{
			ID:          state.ID,
			TotalTurns:  state.TotalTurns,
			CreatedAt:   state.CreatedAt,
			LastUpdated: state.LastUpdated,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

// Delete removes a persisted session. Deleting an unknown id yields
// ErrNotFound.
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	slog.Info("deleted session", "session", id)
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}
