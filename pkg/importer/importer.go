// Package importer reads task rows from newline-delimited JSON, one row per
// object, for bulk loading into the planning sheet.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/model"
)

// Estimate accepts either a JSON number or a string. Null and "" stay blank.
type Estimate string

func (e *Estimate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*e = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*e = Estimate(strings.TrimSpace(str))
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("estimate %s is not a number", s)
	}
	*e = Estimate(s)
	return nil
}

// Record is one imported task.
type Record struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Requester   string   `json:"requester,omitempty"`
	Executor    string   `json:"executor"`
	Client      string   `json:"client"`
	Priority    string   `json:"priority"`
	Estimate    Estimate `json:"estimate"`
	Type        string   `json:"type,omitempty"`
}

// Row validates r and converts it to a sheet row. A missing requester means
// the executor asked for it, a missing type means an own task, and a bare
// "P1" priority is expanded to its full label.
func (r Record) Row() (model.TaskRow, error) {
	if strings.TrimSpace(r.Name) == "" {
		return model.TaskRow{}, errors.New("name is required")
	}
	if strings.TrimSpace(r.Executor) == "" {
		return model.TaskRow{}, errors.New("executor is required")
	}
	prio, err := model.ParsePriority(strings.TrimSpace(r.Priority))
	if err != nil {
		return model.TaskRow{}, err
	}
	typ := model.OwnTask
	if r.Type != "" {
		typ = model.TaskType(r.Type)
		if !slices.Contains(model.TaskTypes, typ) {
			return model.TaskRow{}, fmt.Errorf("unknown type %q", r.Type)
		}
	}
	requester := r.Requester
	if requester == "" {
		requester = r.Executor
	}
	return model.TaskRow{
		Name:        r.Name,
		Description: r.Description,
		Requester:   requester,
		Executor:    r.Executor,
		Client:      r.Client,
		Priority:    prio.Label(),
		Estimate:    string(r.Estimate),
		Type:        typ,
	}, nil
}

// ParseRecords decodes a stream of JSON objects, separated by newlines or
// any other whitespace.
func ParseRecords(r io.Reader) ([]Record, error) {
	var records []Record
	decoder := json.NewDecoder(r)
	for {
		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseRows decodes and validates every record. All invalid records are
// reported together; no rows are returned if any record is invalid.
func ParseRows(r io.Reader) ([]model.TaskRow, error) {
	records, err := ParseRecords(r)
	if err != nil {
		return nil, err
	}
	rows := make([]model.TaskRow, 0, len(records))
	var errs []error
	for i, rec := range records {
		row, err := rec.Row()
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		rows = append(rows, row)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rows, nil
}
