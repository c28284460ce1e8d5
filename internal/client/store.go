package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credentials is the pair of bearer values held by the client.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialStore persists the session credentials between calls.
type CredentialStore interface {
	Get() (Credentials, error)
	Set(Credentials) error
	Clear() error
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, nil
}

func (s *MemoryStore) Set(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
	return nil
}

func (s *MemoryStore) Clear() error {
	return s.Set(Credentials{})
}

// FileStore keeps credentials in a JSON file readable only by the owner.
// A missing file is an empty session.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c Credentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return c, nil
}

func (s *FileStore) Set(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
