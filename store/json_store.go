package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// FileStore implements Store using a JSON snapshot file. The API
// credential lives in a sibling file with restrictive permissions,
// separate from the snapshot document.
type FileStore struct {
	path     string
	credPath string
	lock     *FileLock
	mu       sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the given snapshot path. The
// file is not created until the first Save.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		credPath: credentialPath(path),
		lock:     NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

// credentialPath derives the credential file path from the snapshot path.
func credentialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".credential"
}

// snapshotDoc mirrors Snapshot with an optional preferences block so a
// document missing the block entirely still gets defaults.
type snapshotDoc struct {
	Version     string          `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Videos      []string        `json:"videos"`
	Channels    []ChannelRecord `json:"channels"`
	Preferences *Preferences    `json:"preferences"`
}

// Load reads the snapshot from disk. A missing file yields an empty
// snapshot with default preferences; every missing field is defaulted
// independently.
func (s *FileStore) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(), nil
		}
		return nil, &StoreError{Op: "load", Err: err}
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StoreError{Op: "load", Err: ErrSnapshotCorrupt}
	}

	snap := &Snapshot{
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		Videos:    doc.Videos,
		Channels:  doc.Channels,
	}
	if snap.Version == "" {
		snap.Version = schemaVersion
	}
	if doc.Preferences != nil {
		snap.Preferences = *doc.Preferences
	} else {
		snap.Preferences = DefaultPreferences()
	}
	return snap, nil
}

// Save persists the snapshot atomically.
func (s *FileStore) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Version = schemaVersion
	snap.UpdatedAt = time.Now()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		writer.Abort()
		return &StoreError{Op: "save", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

// LoadCredential reads the stored API credential. A missing file means
// no credential is configured.
func (s *FileStore) LoadCredential() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.credPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", &StoreError{Op: "load credential", Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveCredential persists the API credential with owner-only
// permissions. An empty key removes the stored credential.
func (s *FileStore) SaveCredential(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		if err := os.Remove(s.credPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &StoreError{Op: "save credential", Err: err}
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.credPath), 0755); err != nil {
		return &StoreError{Op: "save credential", Err: err}
	}
	if err := os.WriteFile(s.credPath, []byte(key+"\n"), 0600); err != nil {
		return &StoreError{Op: "save credential", Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}
