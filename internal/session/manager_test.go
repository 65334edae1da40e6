package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/chattmt/chattmt/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), nil, testMemory(), config.StageConfig{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManagerSaveLoad(t *testing.T) {
	m := newTestManager(t)

	s := m.New()
	s.AddTurn("what is Go", "a programming language")
	s.AddTurn("who made it", "Google")
	s.IncrementClarification()

	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.Dirty() {
		t.Error("expected dirty flag cleared after save")
	}

	loaded, err := m.Load(s.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Compare through JSON so time.Time monotonic clocks don't interfere.
	want, err := json.Marshal(s.State())
	if err != nil {
		t.Fatal(err)
	}
	got, err := json.Marshal(loaded.State())
	if err != nil {
		t.Fatal(err)
	}
	if string(want) != string(got) {
		t.Errorf("round trip mismatch:\nsaved:  %s\nloaded: %s", want, got)
	}
	if loaded.TotalTurns() != 2 {
		t.Errorf("expected 2 turns after load, got %d", loaded.TotalTurns())
	}
	if loaded.ClarificationCount() != 1 {
		t.Errorf("expected clarification count 1 after load, got %d", loaded.ClarificationCount())
	}
}

func TestManagerLoadNotFound(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Load("no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t)

	s := m.New()
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Load(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestManagerListNewestFirst(t *testing.T) {
	m := newTestManager(t)

	first := m.New()
	if err := m.Save(first); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second := m.New()
	second.AddTurn("hi", "hello") // bumps LastUpdated past first's
	if err := m.Save(second); err != nil {
		t.Fatal(err)
	}

	infos, err := m.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].ID != second.ID() {
		t.Errorf("expected newest session first, got %s", infos[0].ID)
	}
	if infos[0].TotalTurns != 1 {
		t.Errorf("expected 1 turn in listing, got %d", infos[0].TotalTurns)
	}
}

func TestManagerLoadNormalizes(t *testing.T) {
	m := newTestManager(t)

	s := m.New()
	if err := m.Save(s); err != nil {
		t.Fatal(err)
	}
	loaded, err := m.Load(s.ID())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.State().RawMessages == nil {
		t.Error("expected non-nil message log after load")
	}
}
