// Package registry implements the persistent name-to-value stores behind the
// assistant's knowledge of installed applications and known websites.
//
// A Store keeps its entries in memory and mirrors them to a pretty-printed
// JSON object on disk. Every mutation runs under a single lock as a
// load-mutate-save sequence: the next map is built, written to disk with a
// full atomic rewrite, and only then swapped in. The in-memory view and the
// file therefore never diverge.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a case-insensitive name -> value mapping persisted as JSON.
type Store struct {
	name string
	path string

	mu      sync.Mutex
	entries map[string]string
}

// Normalize returns the canonical key form: trimmed and lowercased.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Open loads the store persisted at path. If the file does not exist it is
// created with the given seed entries (which may be nil).
func Open(name, path string, seed map[string]string) (*Store, error) {
	s := &Store{
		name:    name,
		path:    path,
		entries: map[string]string{},
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s registry directory: %w", name, err)
	}

	entries, err := readEntries(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		initial := normalizeAll(seed)
		if err := writeEntries(path, initial); err != nil {
			return nil, fmt.Errorf("creating %s registry: %w", name, err)
		}
		s.entries = initial
		slog.Info("registry created", "registry", name, "path", path, "entries", len(initial))
	case err != nil:
		return nil, fmt.Errorf("loading %s registry: %w", name, err)
	default:
		s.entries = entries
		slog.Info("registry loaded", "registry", name, "path", path, "entries", len(entries))
	}

	return s, nil
}

// Name returns the registry label used in logs ("apps", "websites").
func (s *Store) Name() string { return s.name }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Lookup returns the value stored under name, compared case-insensitively.
func (s *Store) Lookup(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[Normalize(name)]
	return v, ok
}

// Entries returns a copy of all entries.
func (s *Store) Entries() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Update runs fn against a copy of the entries and persists the result.
// If fn or the write fails, the store is left unchanged. Keys written by fn
// are normalized before saving.
func (s *Store) Update(fn func(entries map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.entries)
	if err := fn(next); err != nil {
		return err
	}
	next = normalizeAll(next)

	if err := writeEntries(s.path, next); err != nil {
		return fmt.Errorf("saving %s registry: %w", s.name, err)
	}
	s.entries = next
	slog.Info("registry saved", "registry", s.name, "entries", len(next))
	return nil
}

// Reload replaces the in-memory entries with the file contents. A missing
// or unparsable file leaves the store untouched and returns the error.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := readEntries(s.path)
	if err != nil {
		return fmt.Errorf("reloading %s registry: %w", s.name, err)
	}
	s.entries = entries
	return nil
}

func normalizeAll(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if key := Normalize(k); key != "" {
			out[key] = v
		}
	}
	return out
}

func readEntries(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := map[string]string{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
		}
	}
	return normalizeAll(raw), nil
}

// writeEntries rewrites the whole file via a temp file and rename so a
// reader never observes a partial write.
func writeEntries(path string, entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
