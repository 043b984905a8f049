// Package pending stores submissions that are waiting for a P0 conflict to
// be resolved, so the decision can happen in a later request or command.
package pending

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/qplan/pkg/model"
)

const tableFile = "pending_conflicts.json"

var ErrNotFound = errors.New("pending submission not found")

type Entry struct {
	ID       string          `json:"id"`
	Executor string          `json:"executor"`
	Rows     []model.TaskRow `json:"rows"`
	Created  time.Time       `json:"created"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	mu      sync.Mutex
	dirty   bool
}

// New opens the table stored in dir. An empty dir keeps the table in memory only.
func New(dir string) (*Table, error) {
	t := &Table{Entries: make(map[string]Entry)}
	if dir == "" {
		return t, nil
	}
	t.Path = filepath.Join(dir, tableFile)

	if _, err := os.Stat(t.Path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty || t.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Add parks rows for executor and returns the new entry.
func (t *Table) Add(executor string, rows []model.TaskRow, now time.Time) Entry {
	e := Entry{
		ID:       uuid.NewString(),
		Executor: executor,
		Rows:     append([]model.TaskRow(nil), rows...),
		Created:  now,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries[e.ID] = e
	t.dirty = true
	return e
}

func (t *Table) Get(id string) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.Entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.Entries[id]; exists {
		delete(t.Entries, id)
		t.dirty = true
	}
}

// Sweep drops and returns entries created more than ttl before now.
func (t *Table) Sweep(now time.Time, ttl time.Duration) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var swept []Entry
	for id, e := range t.Entries {
		if now.Sub(e.Created) > ttl {
			swept = append(swept, e)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	return swept
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Entries)
}
