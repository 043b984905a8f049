// Package jira converts planning rows into the column layout Jira's CSV
// importer expects.
package jira

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/harrisonrobin/qplan/pkg/model"
)

const (
	IssueType     = "Story"
	PlanningLabel = "Q_Planning"
)

// Headers is the header row of the export.
var Headers = []string{
	"Summary",
	"Description",
	"Priority",
	"Story Points",
	"Issue Type",
	"Labels",
	"Component",
}

// Issue is one exported Jira story.
type Issue struct {
	Summary     string
	Description string
	Priority    string
	StoryPoints float64
	IssueType   string
	Labels      string
	Component   string
}

// ConvertRow maps a planning row to a Jira issue.
func ConvertRow(row model.TaskRow) Issue {
	var desc strings.Builder
	desc.WriteString(row.Description)
	desc.WriteString("\n\n--- Planning Info ---\n")
	fmt.Fprintf(&desc, "Internal Requester: %s\n", row.Requester)
	fmt.Fprintf(&desc, "Internal Type: %s", row.Type)

	return Issue{
		Summary:     row.Name,
		Description: desc.String(),
		Priority:    model.JiraPriority(row.Priority),
		StoryPoints: row.Points(),
		IssueType:   IssueType,
		Labels:      Labels(row.Client),
		Component:   row.Executor,
	}
}

// Labels turns a client name into a Jira label (spaces are not allowed in
// labels) plus the planning label.
func Labels(client string) string {
	return strings.ReplaceAll(client, " ", "_") + ", " + PlanningLabel
}

// Convert maps every row.
func Convert(rows []model.TaskRow) []Issue {
	issues := make([]Issue, 0, len(rows))
	for _, r := range rows {
		issues = append(issues, ConvertRow(r))
	}
	return issues
}

// Cells returns the issue as sheet cells; story points stay numeric.
func (i Issue) Cells() []any {
	return []any{i.Summary, i.Description, i.Priority, i.StoryPoints, i.IssueType, i.Labels, i.Component}
}

func (i Issue) strings() []string {
	return []string{i.Summary, i.Description, i.Priority, model.FormatPoints(i.StoryPoints), i.IssueType, i.Labels, i.Component}
}

// Table returns the header row followed by one row per issue, ready to be
// written to the export worksheet.
func Table(rows []model.TaskRow) [][]any {
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	out := [][]any{header}
	for _, issue := range Convert(rows) {
		out = append(out, issue.Cells())
	}
	return out
}

// WriteCSV writes the export as a CSV file for Jira's importer.
func WriteCSV(w io.Writer, rows []model.TaskRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, issue := range Convert(rows) {
		if err := cw.Write(issue.strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
