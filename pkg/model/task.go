package model

import (
	"math"
	"strconv"
	"strings"
)

// Column headers of the main planning sheet, in sheet order (A..H).
const (
	ColTaskName    = "Task Name"
	ColDescription = "Description"
	ColRequester   = "Requester"
	ColExecutor    = "Executor"
	ColClient      = "Client"
	ColPriority    = "Priority"
	ColEstimate    = "Estimate (SP)"
	ColType        = "Type"
)

// Headers is the expected header row of the main sheet.
var Headers = []string{
	ColTaskName,
	ColDescription,
	ColRequester,
	ColExecutor,
	ColClient,
	ColPriority,
	ColEstimate,
	ColType,
}

// Zero-based column indexes into a sheet row.
const (
	IdxTaskName = iota
	IdxDescription
	IdxRequester
	IdxExecutor
	IdxClient
	IdxPriority
	IdxEstimate
	IdxType
)

// TaskType tags a row as the team's own work or a dependency logged
// against another team.
type TaskType string

const (
	OwnTask         TaskType = "Own Task"
	IncomingBlocker TaskType = "Incoming Blocker"
	IncomingEnabler TaskType = "Incoming Enabler"
)

// TaskTypes lists every type in display order.
var TaskTypes = []TaskType{OwnTask, IncomingBlocker, IncomingEnabler}

// TaskRow is one row of the planning sheet.
type TaskRow struct {
	Name        string   `json:"task_name"`
	Description string   `json:"description"`
	Requester   string   `json:"requester"`
	Executor    string   `json:"executor"`
	Client      string   `json:"client"`
	Priority    string   `json:"priority"`
	Estimate    string   `json:"estimate"`
	Type        TaskType `json:"type"`

	// Row is the 1-based sheet row the task was read from; 0 if not yet stored.
	Row int `json:"-"`
}

// IsDependency reports whether the row was logged against another team.
func (t TaskRow) IsDependency() bool {
	return t.Type == IncomingBlocker || t.Type == IncomingEnabler
}

// Points returns the estimate as a number. Blank or non-numeric estimates
// count as zero.
func (t TaskRow) Points() float64 {
	return ParseEstimate(t.Estimate)
}

// Values returns the row as sheet cells in header order.
func (t TaskRow) Values() []string {
	return []string{
		t.Name,
		t.Description,
		t.Requester,
		t.Executor,
		t.Client,
		t.Priority,
		t.Estimate,
		string(t.Type),
	}
}

// Cells returns the row as values for a write. Numeric estimates are written
// as numbers so spreadsheet formulas can sum them.
func (t TaskRow) Cells() []any {
	cells := make([]any, 0, len(Headers))
	for i, v := range t.Values() {
		if i == IdxEstimate && strings.TrimSpace(v) != "" {
			if n, ok := parseFinite(strings.TrimSpace(v)); ok {
				cells = append(cells, n)
				continue
			}
		}
		cells = append(cells, v)
	}
	return cells
}

// RowFromValues builds a TaskRow from sheet cells. Short rows are padded
// with blanks, as the Sheets API trims trailing empty cells.
func RowFromValues(values []string, row int) TaskRow {
	cell := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	return TaskRow{
		Name:        cell(IdxTaskName),
		Description: cell(IdxDescription),
		Requester:   cell(IdxRequester),
		Executor:    cell(IdxExecutor),
		Client:      cell(IdxClient),
		Priority:    cell(IdxPriority),
		Estimate:    cell(IdxEstimate),
		Type:        TaskType(cell(IdxType)),
		Row:         row,
	}
}

// HeadersMatch reports whether row is exactly the expected header row.
func HeadersMatch(row []string) bool {
	if len(row) != len(Headers) {
		return false
	}
	for i, h := range Headers {
		if row[i] != h {
			return false
		}
	}
	return true
}

// ParseEstimate converts a story-point cell to a number; anything that is
// not a finite number (including "NaN" and "Inf") is 0.
func ParseEstimate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, ok := parseFinite(strings.ReplaceAll(s, ",", "."))
	if !ok {
		return 0
	}
	return v
}

// parseFinite is strconv.ParseFloat minus NaN, infinities and overflow,
// none of which can be sent as a JSON number.
func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatPoints renders a story-point total without a trailing ".0".
func FormatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
