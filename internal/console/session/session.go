// Package session persists the console's credential (token plus employee
// profile) in a local JSON file and answers "is a session active".
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Employee is the profile stored alongside the token.
type Employee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type state struct {
	Token    string   `json:"token"`
	Employee Employee `json:"employee"`
}

// Store holds the single session for this console instance. Zero value is
// unusable; construct with Load.
type Store struct {
	path string

	mu      sync.RWMutex
	current state
}

// Load reads the persisted session, if any. A missing file yields an empty,
// unauthenticated store.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &s.current); err != nil {
		// A corrupt session file is treated as logged out rather than fatal.
		s.current = state{}
	}
	return s, nil
}

// DefaultPath returns the per-user session file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sitedesk", "session.json")
}

// Set stores the credential and persists it.
func (s *Store) Set(token string, employee Employee) error {
	s.mu.Lock()
	s.current = state{Token: token, Employee: employee}
	s.mu.Unlock()
	return s.save()
}

// Clear destroys the session, both in memory and on disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = state{}
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a token is present. No expiry check is
// made here; an expired token surfaces as an unauthorized API error.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Token implements the API client's token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Employee returns the stored profile.
func (s *Store) Employee() Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Employee
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.current, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
