package model

import "fmt"

// Priority is an ordinal planning priority; lower is more urgent.
type Priority int

const (
	P0 Priority = iota
	P1
	P2
	P3
)

// Priorities lists every level in form order.
var Priorities = []Priority{P0, P1, P2, P3}

// StoryPointOptions are the estimates the form offers for an own task.
var StoryPointOptions = []int{1, 2, 3, 5, 8}

var priorityLabels = map[Priority]string{
	P0: "P0 (Critical)",
	P1: "P1 (High)",
	P2: "P2 (Medium)",
	P3: "P3 (Low)",
}

var jiraPriorities = map[string]string{
	"P0 (Critical)": "Highest",
	"P1 (High)":     "High",
	"P2 (Medium)":   "Medium",
	"P3 (Low)":      "Low",
}

// Label is the text stored in the Priority column.
func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return fmt.Sprintf("P%d", int(p))
}

func (p Priority) String() string { return p.Label() }

// ParsePriority maps a sheet label (or a bare "P0".."P3") back to a level.
func ParsePriority(label string) (Priority, error) {
	for p, l := range priorityLabels {
		if l == label || fmt.Sprintf("P%d", int(p)) == label {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", label)
}

// JiraPriority translates a sheet priority label into a Jira priority name.
// Unknown labels become "Medium".
func JiraPriority(label string) string {
	if name, ok := jiraPriorities[label]; ok {
		return name
	}
	return "Medium"
}
