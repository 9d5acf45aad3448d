// Package mappingstore persists shortHash -> mapping-record rows plus a
// secondary metadataKeccak -> shortHash index (C8).
package mappingstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrMappingConflict is returned when a write's metadataKeccak already
// belongs to a different row.
var ErrMappingConflict = errors.New("mappingstore: metadata keccak already mapped to a different short hash")

// ErrNotFound is returned when a lookup key is absent.
var ErrNotFound = errors.New("mappingstore: not found")

// Entry is the persisted row for a single short hash.
type Entry struct {
	ShortHash      string `json:"shortHash"`
	FullHash       string `json:"fullHash"`
	MetadataKeccak string `json:"metadataKeccak,omitempty"`
	PublicHash     string `json:"publicHash,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	FileSize       int64  `json:"fileSize,omitempty"`
	MimeType       string `json:"mimeType,omitempty"`
}

type onDisk struct {
	Primary   map[string]Entry  `json:"primary"`
	KeccakIdx map[string]string `json:"keccakIndex"`
}

// Store is a durable primary+secondary-index keyed store of Entries.
type Store struct {
	path  string
	flock *flock.Flock
	mu    sync.Mutex
	data  onDisk
}

// Open loads (or lazily initializes) the JSON store at path.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		flock: flock.New(path + ".lock"),
		data: onDisk{
			Primary:   make(map[string]Entry),
			KeccakIdx: make(map[string]string),
		},
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("mappingstore: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("mappingstore: parse %s: %w", path, err)
	}
	if s.data.Primary == nil {
		s.data.Primary = make(map[string]Entry)
	}
	if s.data.KeccakIdx == nil {
		s.data.KeccakIdx = make(map[string]string)
	}
	return s, nil
}

// Exists reports whether shortHash is already taken; wired directly as a
// metaenvelope.Exists callback.
func (s *Store) Exists(shortHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.Primary[shortHash]
	return ok, nil
}

// Put inserts e, rejecting a metadataKeccak collision with a different row
// unless it is the same shortHash being re-written (merge).
func (s *Store) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.MetadataKeccak != "" {
		if existingShort, ok := s.data.KeccakIdx[e.MetadataKeccak]; ok && existingShort != e.ShortHash {
			return ErrMappingConflict
		}
	}

	s.data.Primary[e.ShortHash] = e
	if e.MetadataKeccak != "" {
		s.data.KeccakIdx[e.MetadataKeccak] = e.ShortHash
	}
	return s.flushLocked()
}

// GetByShortHash looks up a row by its primary key.
func (s *Store) GetByShortHash(shortHash string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.Primary[shortHash]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// GetByMetadataKeccak resolves the secondary index, tolerating an absent
// entry (a receiver may only have the keccak, not the short hash).
func (s *Store) GetByMetadataKeccak(keccak string) (Entry, error) {
	s.mu.Lock()
	shortHash, ok := s.data.KeccakIdx[keccak]
	s.mu.Unlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	return s.GetByShortHash(shortHash)
}

func (s *Store) flushLocked() error {
	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("mappingstore: acquire file lock: %w", err)
	}
	defer s.flock.Unlock()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".mappingstore-*.tmp")
	if err != nil {
		return fmt.Errorf("mappingstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("mappingstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("mappingstore: rename temp file: %w", err)
	}
	return nil
}
