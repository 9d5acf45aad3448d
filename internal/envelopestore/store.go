// Package envelopestore is the file-backed store mapping a session-key
// commitment to its receiver-envelope record (C7). Writers are serialized
// with a coarse in-process lock and take a cross-process file lock around
// the atomic tempfile-then-rename write; readers look up the in-memory map
// under the same in-process lock.
package envelopestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrInvalidArgument is returned when a record is missing a required field.
var ErrInvalidArgument = errors.New("envelopestore: invalid argument")

// ErrNotFound is returned when no record matches the lookup key.
var ErrNotFound = errors.New("envelopestore: not found")

// EnvelopeFields is the {ct_r, iv_r, tag_r} triple, hex-encoded.
type EnvelopeFields struct {
	CT  string `json:"ct"`
	IV  string `json:"iv"`
	Tag string `json:"tag"`
}

// Release records an out-of-band mark_released event.
type Release struct {
	Reason     string `json:"reason,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	ReleasedBy string `json:"releasedBy,omitempty"`
	ReleasedAt int64  `json:"releasedAt"`
}

// Record is the persisted ReceiverEnvelopeRecord keyed by C_s.
type Record struct {
	CS                string         `json:"cs"`
	HR                string         `json:"hr"`
	HCT               string         `json:"hct"`
	MetadataShortHash string         `json:"metadataShortHash,omitempty"`
	MetadataKeccak    string         `json:"metadataKeccak,omitempty"`
	PubSender         string         `json:"pubSender"`
	Envelope          EnvelopeFields `json:"envelope"`
	CreatedAt         int64          `json:"createdAt"`
	UpdatedAt         int64          `json:"updatedAt"`
	Release           *Release       `json:"release,omitempty"`
}

// Store is a durable, concurrency-safe keyed store of Records.
type Store struct {
	path  string
	flock *flock.Flock
	mu    sync.Mutex
	data  map[string]Record
}

// Open loads (or lazily initializes) the JSON store at path.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		flock: flock.New(path + ".lock"),
		data:  make(map[string]Record),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("envelopestore: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("envelopestore: parse %s: %w", path, err)
	}
	return s, nil
}

// Save inserts or updates r by CS, preserving the original CreatedAt.
func (s *Store) Save(r Record) error {
	if r.CS == "" || r.HR == "" || r.HCT == "" {
		return ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[r.CS]; ok {
		r.CreatedAt = existing.CreatedAt
	} else if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().Unix()
	}
	r.UpdatedAt = time.Now().Unix()

	s.data[r.CS] = r
	return s.flushLocked()
}

// GetByCommitment looks up a record by C_s.
func (s *Store) GetByCommitment(cs string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[cs]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// FindByEnvelopeHash does a linear scan for H_r; acceptable at current scale.
func (s *Store) FindByEnvelopeHash(hr string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data {
		if r.HR == hr {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// MarkReleased stamps a record with an out-of-band release marker.
func (s *Store) MarkReleased(cs, reason, txHash, releasedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[cs]
	if !ok {
		return ErrNotFound
	}
	r.Release = &Release{Reason: reason, TxHash: txHash, ReleasedBy: releasedBy, ReleasedAt: time.Now().Unix()}
	r.UpdatedAt = time.Now().Unix()
	s.data[cs] = r
	return s.flushLocked()
}

// flushLocked writes the store to disk atomically. Caller must hold s.mu.
func (s *Store) flushLocked() error {
	if err := s.flock.Lock(); err != nil {
		return fmt.Errorf("envelopestore: acquire file lock: %w", err)
	}
	defer s.flock.Unlock()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".envelopestore-*.tmp")
	if err != nil {
		return fmt.Errorf("envelopestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("envelopestore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("envelopestore: rename temp file: %w", err)
	}
	return nil
}
