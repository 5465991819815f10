package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/config"
)

// SessionRecord is the metadata kept next to the browser storage state.
type SessionRecord struct {
	Email     string    `json:"email"`
	LastLogin time.Time `json:"lastLogin"`
	IsValid   bool      `json:"isValid"`
}

// SessionStore persists the SessionRecord. The storage-state file itself is
// written by the browser manager; the store only checks for it and removes it.
type SessionStore struct {
	sessionPath  string
	metadataPath string
}

// NewSessionStore creates a store for the storage-state file at sessionPath
// with its record at metadataPath (see config.Config.MetadataPath).
func NewSessionStore(sessionPath, metadataPath string) *SessionStore {
	return &SessionStore{
		sessionPath:  sessionPath,
		metadataPath: metadataPath,
	}
}

// SessionPath is the browser storage-state file.
func (s *SessionStore) SessionPath() string {
	return s.sessionPath
}

// MetadataPath is the SessionRecord file.
func (s *SessionStore) MetadataPath() string {
	return s.metadataPath
}

// Save writes the record atomically.
func (s *SessionStore) Save(rec SessionRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := config.WriteFileAtomic(s.metadataPath, data, 0600); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

// Load reads the record. A missing file yields (nil, nil).
func (s *SessionStore) Load() (*SessionRecord, error) {
	data, err := os.ReadFile(s.metadataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	return &rec, nil
}

// HasValidSession reports whether a valid record and the storage-state file
// both exist. The live page is still the authority on login state.
func (s *SessionStore) HasValidSession() bool {
	rec, err := s.Load()
	if err != nil || rec == nil || !rec.IsValid {
		return false
	}
	_, err = os.Stat(s.sessionPath)
	return err == nil
}

// Clear removes both files. Missing files are not an error.
func (s *SessionStore) Clear() error {
	for _, p := range []string{s.sessionPath, s.metadataPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
