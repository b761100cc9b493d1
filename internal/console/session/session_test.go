package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatal("fresh store must not be authenticated")
	}

	emp := Employee{ID: "emp-1", FullName: "Demo Reviewer", Role: "REVIEWER"}
	if err := s.Set("tok-123", emp); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !s.IsAuthenticated() || s.Token() != "tok-123" {
		t.Fatalf("session not active after Set")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Token() != "tok-123" || reloaded.Employee().FullName != "Demo Reviewer" {
		t.Fatalf("persisted state lost: %+v", reloaded.Employee())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("session file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Set("tok-123", Employee{ID: "emp-1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatal("still authenticated after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file still present: %v", err)
	}

	// Clearing an already-clear session is a no-op.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatal("corrupt session treated as authenticated")
	}
}
