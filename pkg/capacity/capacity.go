// Package capacity computes team capacity against planned load. One story
// point is one person-day, so a team's capacity is people × working days.
package capacity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/harrisonrobin/qplan/pkg/model"
)

const (
	MinPeople = 1
	MaxPeople = 100
	MinDays   = 1
	MaxDays   = 60
)

// Team is the head count and working days a team has in the quarter.
type Team struct {
	People int `json:"people"`
	Days   int `json:"days"`
}

// Capacity in story points.
func (t Team) Capacity() float64 {
	return float64(t.People * t.Days)
}

func (t Team) Validate() error {
	if t.People < MinPeople || t.People > MaxPeople {
		return fmt.Errorf("people must be between %d and %d, got %d", MinPeople, MaxPeople, t.People)
	}
	if t.Days < MinDays || t.Days > MaxDays {
		return fmt.Errorf("days must be between %d and %d, got %d", MinDays, MaxDays, t.Days)
	}
	return nil
}

// Settings holds per-department capacity, in department order.
type Settings struct {
	Departments []string
	Teams       map[string]Team
}

// NewSettings gives every department the same default team size.
func NewSettings(departments []string, def Team) Settings {
	s := Settings{
		Departments: append([]string(nil), departments...),
		Teams:       make(map[string]Team, len(departments)),
	}
	for _, d := range departments {
		s.Teams[d] = def
	}
	return s
}

func (s Settings) Team(dept string) Team {
	return s.Teams[dept]
}

func (s Settings) clone() Settings {
	c := Settings{
		Departments: append([]string(nil), s.Departments...),
		Teams:       make(map[string]Team, len(s.Teams)),
	}
	for k, v := range s.Teams {
		c.Teams[k] = v
	}
	return c
}

// Usage sums estimates grouped by executor and task type.
func Usage(rows []model.TaskRow) map[string]map[model.TaskType]float64 {
	usage := make(map[string]map[model.TaskType]float64)
	for _, r := range rows {
		byType, ok := usage[r.Executor]
		if !ok {
			byType = make(map[model.TaskType]float64)
			usage[r.Executor] = byType
		}
		byType[r.Type] += r.Points()
	}
	return usage
}

// Line is one team's capacity and load.
type Line struct {
	Team     string
	Capacity float64
	Load     map[model.TaskType]float64
	Total    float64
	Free     float64
	// Known is false for executors that appear in the sheet but are not a
	// configured department.
	Known bool
}

// Over reports whether the planned load exceeds capacity.
func (l Line) Over() bool {
	return l.Total > l.Capacity
}

// Summarize returns one line per configured department, followed by lines for
// any other executor found in rows (sorted by name, zero capacity).
func Summarize(s Settings, rows []model.TaskRow) []Line {
	usage := Usage(rows)
	lines := make([]Line, 0, len(s.Departments))
	seen := make(map[string]bool, len(s.Departments))

	for _, d := range s.Departments {
		seen[d] = true
		lines = append(lines, newLine(d, s.Team(d).Capacity(), usage[d], true))
	}

	var extra []string
	for exec := range usage {
		if !seen[exec] {
			extra = append(extra, exec)
		}
	}
	sort.Strings(extra)
	for _, exec := range extra {
		lines = append(lines, newLine(exec, 0, usage[exec], false))
	}
	return lines
}

func newLine(team string, capacity float64, byType map[model.TaskType]float64, known bool) Line {
	l := Line{Team: team, Capacity: capacity, Load: make(map[model.TaskType]float64), Known: known}
	for t, v := range byType {
		l.Load[t] = v
		l.Total += v
	}
	l.Free = l.Capacity - l.Total
	return l
}

// Store is the current capacity settings shared by concurrent requests.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

func NewStore(s Settings) *Store {
	return &Store{settings: s.clone()}
}

// Snapshot returns a copy of the current settings.
func (st *Store) Snapshot() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings.clone()
}

// Set updates one department after validating the values.
func (st *Store) Set(dept string, t Team) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%s: %w", dept, err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.settings.Teams[dept]; !ok {
		return fmt.Errorf("unknown department %q", dept)
	}
	st.settings.Teams[dept] = t
	return nil
}
