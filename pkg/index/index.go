// Package index caches which Drive spreadsheet a configured title resolved to.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileName = "spreadsheets.json"

// Entry is one resolved title.
type Entry struct {
	ID         string    `json:"id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type document struct {
	Spreadsheets map[string]Entry `json:"spreadsheets"`
}

// Spreadsheets maps spreadsheet titles to the IDs Drive returned for them.
// Entries are dropped with Forget when the ID stops resolving.
type Spreadsheets struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// Open reads the cache kept in dir. A missing file yields an empty cache.
func Open(dir string) (*Spreadsheets, error) {
	s := &Spreadsheets{
		path:    filepath.Join(dir, fileName),
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("corrupt spreadsheet cache %s: %w", s.path, err)
	}
	for title, e := range doc.Spreadsheets {
		if e.ID != "" {
			s.entries[title] = e
		}
	}
	return s, nil
}

// Path is the backing file.
func (s *Spreadsheets) Path() string { return s.path }

func (s *Spreadsheets) Lookup(title string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[title]
	return e, ok
}

// Remember records id for title. Re-recording the same id keeps the original
// resolution time.
func (s *Spreadsheets) Remember(title, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[title].ID == id {
		return
	}
	s.entries[title] = Entry{ID: id, ResolvedAt: s.now().UTC()}
	s.dirty = true
}

// Forget drops title and reports whether it was cached.
func (s *Spreadsheets) Forget(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[title]; !ok {
		return false
	}
	delete(s.entries, title)
	s.dirty = true
	return true
}

// Flush writes pending changes through a temp file and rename, so a crash
// never leaves a half-written cache behind.
func (s *Spreadsheets) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(document{Spreadsheets: s.entries}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".spreadsheets-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
