// Package autosave periodically persists dirty sessions so a crash loses
// at most one schedule interval of conversation.
package autosave

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/chattmt/chattmt/internal/session"
)

// Service flushes tracked sessions on a cron schedule. Sessions register
// once via Track; flushing skips clean sessions, so the steady-state cost
// of an idle session is one Dirty check per tick.
type Service struct {
	manager *session.Manager
	cron    *cron.Cron

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates a Service flushing on schedule, which accepts any
// robfig/cron spec ("@every 2m", "*/5 * * * *", ...).
func New(manager *session.Manager, schedule string) (*Service, error) {
	s := &Service{
		manager:  manager,
		cron:     cron.New(),
		sessions: make(map[string]*session.Session),
	}
	if _, err := s.cron.AddFunc(schedule, s.Flush); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Track registers a session for periodic persistence.
func (s *Service) Track(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

// Untrack stops persisting a session (after deletion or /clear).
func (s *Service) Untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Start begins the schedule. Safe to call once.
func (s *Service) Start() {
	s.cron.Start()
	slog.Info("autosave started")
}

// Stop halts the schedule and flushes whatever is still dirty.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.Flush()
	slog.Info("autosave stopped")
}

// Flush saves every tracked dirty session. Failures are logged and the
// session stays dirty for the next tick.
func (s *Service) Flush() {
	s.mu.Lock()
	tracked := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		tracked = append(tracked, sess)
	}
	s.mu.Unlock()

	for _, sess := range tracked {
		if !sess.Dirty() {
			continue
		}
		if err := s.manager.Save(sess); err != nil {
			slog.Error("autosave failed", "session", sess.ID(), "err", err)
			continue
		}
		slog.Debug("autosaved session", "session", sess.ID())
	}
}
