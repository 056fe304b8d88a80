// Package filestore is a file-backed implementation of the ledger
// store: one JSON entry per line, append-only, replayed into memory on
// open. Good enough for a single repository checkout; anything needing
// multi-process access should bring a real database behind the same
// interface.
package filestore

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ interfaces.LedgerStore = (*Store)(nil)

// Store is an append-only JSON-lines ledger store.
type Store struct {
	path string
	log  logze.Logger

	mu      sync.RWMutex
	file    *os.File
	entries []model.LedgerEntry
	latest  map[string]int // commit hash -> index of last entry
}

// Open loads existing entries and prepares the file for appends.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errm.Wrap(err, "create store directory")
	}

	s := &Store{
		path:   path,
		log:    logze.With("module", "filestore"),
		latest: make(map[string]int),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errm.Wrap(err, "open store file")
	}
	s.file = file

	s.log.Debug("ledger store opened", "path", path, "entries", len(s.entries))
	return s, nil
}

// Append persists one entry and updates the in-memory index. The line
// is written in full or not at all; a failed write is not indexed.
func (s *Store) Append(entry model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return errm.Wrap(err, "marshal entry")
	}
	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		return errm.Wrap(err, "write entry")
	}

	s.entries = append(s.entries, entry)
	s.latest[entry.Decision.CommitHash] = len(s.entries) - 1
	return nil
}

// Latest returns the most recently appended entry for the hash.
func (s *Store) Latest(commitHash string) (model.LedgerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.latest[commitHash]
	if !ok {
		return model.LedgerEntry{}, false
	}
	return s.entries[idx], true
}

// List returns a copy of all entries in insertion order.
func (s *Store) List() []model.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Store) replay() error {
	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errm.Wrap(err, "open store for replay")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry model.LedgerEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// A torn trailing line can only come from a crash mid-write.
			s.log.Warn("skipping unreadable ledger line", "error", err)
			continue
		}
		s.entries = append(s.entries, entry)
		s.latest[entry.Decision.CommitHash] = len(s.entries) - 1
	}
	if err := scanner.Err(); err != nil {
		return errm.Wrap(err, "scan store file")
	}
	return nil
}
