// Package session owns the on-disk session blob and the interactive login
// state machine that turns it into an authenticated transport.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// EnvelopeVersion is written into every saved session file.
const EnvelopeVersion = 1

// probeFileName is created and removed next to the session file to check that
// its directory is writable before first use.
const probeFileName = "test_write.tmp"

var (
	// ErrNotFound is returned by Load when no session file exists.
	ErrNotFound = errors.New("session: no stored session")

	// ErrCorrupt is returned by Load when the file cannot be decoded.
	ErrCorrupt = errors.New("session: stored session is corrupt")
)

// Envelope is the persisted session. Data is opaque transport state.
type Envelope struct {
	Version    int       `json:"version"`
	Authorized bool      `json:"authorized"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Data       []byte    `json:"data,omitempty"`
}

// FileStore keeps one Envelope at a fixed path.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store for the session file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored envelope. It fails with ErrNotFound when the file is
// missing and ErrCorrupt when it is empty or undecodable.
func (s *FileStore) Load() (*Envelope, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file %s: %w", s.path, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, env.Version)
	}
	return &env, nil
}

// Create makes a fresh unauthorized envelope and persists it immediately. The
// parent directory is created when missing and checked for write access.
func (s *FileStore) Create(phone string) (*Envelope, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	if err := probeWritable(dir); err != nil {
		return nil, err
	}

	now := s.now()
	env := &Envelope{
		Version:   EnvelopeVersion,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Save writes env atomically: a temp file in the same directory is renamed over
// the session file.
func (s *FileStore) Save(env *Envelope) error {
	if env == nil {
		return errors.New("cannot save nil session")
	}
	env.Version = EnvelopeVersion
	env.UpdatedAt = s.now()

	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set session permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file %s: %w", s.path, err)
	}
	return nil
}

func probeWritable(dir string) error {
	probe := filepath.Join(dir, probeFileName)
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("session directory %s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("failed to remove write probe %s: %w", probe, err)
	}
	return nil
}
