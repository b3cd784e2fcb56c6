package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists the record as a JSON file readable only by the owner.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

type fileRecord struct {
	UserID               string    `json:"user_id"`
	Email                string    `json:"email,omitempty"`
	AccessToken          string    `json:"access_token"`
	RefreshToken         string    `json:"refresh_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	SavedAt              time.Time `json:"saved_at"`
}

// NewFileStore returns a [FileStore] writing to path. The parent directory
// is created with 0700 permissions if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath returns ~/.gosession/session.json.
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".gosession", "session.json"), nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements [Store].
func (s *FileStore) Load(context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session file: %w", err)
	}
	return &Record{
		UserID:               fr.UserID,
		Email:                fr.Email,
		AccessToken:          fr.AccessToken,
		RefreshToken:         fr.RefreshToken,
		AccessTokenExpiresAt: fr.AccessTokenExpiresAt,
		SavedAt:              fr.SavedAt,
	}, nil
}

// Save implements [Store]. The file is written atomically via rename.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	data, err := json.MarshalIndent(fileRecord{
		UserID:               rec.UserID,
		Email:                rec.Email,
		AccessToken:          rec.AccessToken,
		RefreshToken:         rec.RefreshToken,
		AccessTokenExpiresAt: rec.AccessTokenExpiresAt,
		SavedAt:              rec.SavedAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear implements [Store]. Clearing a missing file is not an error.
func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
