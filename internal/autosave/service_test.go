package autosave

import (
	"errors"
	"testing"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/session"
)

func newTestService(t *testing.T) (*Service, *session.Manager) {
	t.Helper()
	mgr, err := session.NewManager(t.TempDir(), nil, config.DefaultConfig().Memory, config.StageConfig{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	svc, err := New(mgr, "@every 1h")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, mgr
}

func TestNewRejectsBadSchedule(t *testing.T) {
	mgr, err := session.NewManager(t.TempDir(), nil, config.DefaultConfig().Memory, config.StageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(mgr, "not a schedule"); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestFlushSavesDirtySessions(t *testing.T) {
	svc, mgr := newTestService(t)

	dirty := mgr.New()
	dirty.AddTurn("hi", "hello")
	svc.Track(dirty)

	clean := mgr.New()
	svc.Track(clean)

	svc.Flush()

	if dirty.Dirty() {
		t.Error("expected dirty session persisted and marked clean")
	}
	if _, err := mgr.Load(dirty.ID()); err != nil {
		t.Errorf("expected dirty session on disk: %v", err)
	}
	// The clean session was never saved, so it has no file.
	if _, err := mgr.Load(clean.ID()); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected clean session skipped, got %v", err)
	}
}

func TestUntrack(t *testing.T) {
	svc, mgr := newTestService(t)

	sess := mgr.New()
	sess.AddTurn("hi", "hello")
	svc.Track(sess)
	svc.Untrack(sess.ID())

	svc.Flush()

	if _, err := mgr.Load(sess.ID()); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected untracked session skipped, got %v", err)
	}
}
