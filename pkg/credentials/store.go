package credentials

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/exportwins/winsmi/pkg/hawk"
	"gopkg.in/yaml.v3"
)

// File is the on-disk credentials document
type File struct {
	Credentials []Credential `yaml:"credentials"`
}

// Store is a concurrency-safe credential set
type Store struct {
	mu   sync.RWMutex
	byID map[string]Credential
}

// NewStore validates creds and builds a store
func NewStore(creds []Credential) (*Store, error) {
	s := &Store{}
	if err := s.Replace(creds); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads and validates a credentials file
func LoadFile(path string) ([]Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a credentials document
func Parse(data []byte) ([]Credential, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if _, err := index(f.Credentials); err != nil {
		return nil, err
	}
	return f.Credentials, nil
}

// Replace swaps in a new credential set atomically
func (s *Store) Replace(creds []Credential) error {
	byID, err := index(creds)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.byID = byID
	s.mu.Unlock()
	return nil
}

func index(creds []Credential) (map[string]Credential, error) {
	byID := make(map[string]Credential, len(creds))
	for i := range creds {
		c := creds[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidCredential, c.ID)
		}
		byID[c.ID] = c
	}
	return byID, nil
}

// LookupCredentials implements hawk.CredentialsLookup
func (s *Store) LookupCredentials(_ context.Context, id string) (*hawk.Credentials, error) {
	s.mu.RLock()
	c, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, hawk.ErrCredentialsNotFound
	}
	return &hawk.Credentials{ID: c.ID, Key: c.Key, Algorithm: hawk.AlgorithmSHA256}, nil
}

// HasScope reports whether credential id grants scope; unknown ids grant nothing
func (s *Store) HasScope(id string, scope Scope) bool {
	s.mu.RLock()
	c, ok := s.byID[id]
	s.mu.RUnlock()
	return ok && c.HasScope(scope)
}

// Len returns the number of credentials
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
