package authsdk

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LockoutState is the durable half of the resend policy.
type LockoutState struct {
	ResendAttemptCount int       `json:"resendAttemptCount"`
	BlockedUntil       time.Time `json:"blockedUntil,omitzero"`
}

// LockoutStore persists LockoutState so a lockout outlives the process.
type LockoutStore interface {
	Load(ctx context.Context) (LockoutState, error)
	Save(ctx context.Context, st LockoutState) error
}

// FileLockoutStore keeps the lockout state in a small JSON file.
type FileLockoutStore struct {
	mu   sync.Mutex
	path string
}

// NewFileLockoutStore creates the parent directory of path if needed.
// The file itself is created on the first Save.
func NewFileLockoutStore(path string) (*FileLockoutStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &FileLockoutStore{path: path}, nil
}

// Load returns the zero state when nothing has been saved yet.
func (s *FileLockoutStore) Load(_ context.Context) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return LockoutState{}, nil
		}
		return LockoutState{}, err
	}

	var st LockoutState
	if err := json.Unmarshal(b, &st); err != nil {
		return LockoutState{}, err
	}
	return st, nil
}

// Save replaces the file atomically so a crash never leaves half a state.
func (s *FileLockoutStore) Save(_ context.Context, st LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MemoryLockoutStore is a LockoutStore that forgets on restart. Use it in
// tests, or where durability is provided some other way.
type MemoryLockoutStore struct {
	mu sync.Mutex
	st LockoutState
}

func (s *MemoryLockoutStore) Load(_ context.Context) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st, nil
}

func (s *MemoryLockoutStore) Save(_ context.Context, st LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
	return nil
}
