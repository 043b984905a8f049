package jira

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harrisonrobin/qplan/pkg/model"
)

func TestConvertRow(t *testing.T) {
	row := model.TaskRow{
		Name:        "Partner payouts mart",
		Description: "DoD: mart in DWH",
		Requester:   "BI",
		Executor:    "DE",
		Client:      "Global Admin Panel",
		Priority:    "P0 (Critical)",
		Estimate:    "",
		Type:        model.IncomingBlocker,
	}

	issue := ConvertRow(row)

	if issue.Summary != "Partner payouts mart" {
		t.Errorf("Expected summary to be the task name, got %q", issue.Summary)
	}
	wantDesc := "DoD: mart in DWH\n\n--- Planning Info ---\nInternal Requester: BI\nInternal Type: Incoming Blocker"
	if issue.Description != wantDesc {
		t.Errorf("Unexpected description:\n%s", issue.Description)
	}
	if issue.Priority != "Highest" {
		t.Errorf("Expected priority Highest, got %s", issue.Priority)
	}
	if issue.StoryPoints != 0 {
		t.Errorf("Expected blank estimate to export as 0, got %v", issue.StoryPoints)
	}
	if issue.IssueType != "Story" {
		t.Errorf("Expected issue type Story, got %s", issue.IssueType)
	}
	if issue.Labels != "Global_Admin_Panel, Q_Planning" {
		t.Errorf("Unexpected labels %q", issue.Labels)
	}
	if issue.Component != "DE" {
		t.Errorf("Expected component DE, got %s", issue.Component)
	}
}

func TestConvertRowUnknownPriorityFallsBackToMedium(t *testing.T) {
	issue := ConvertRow(model.TaskRow{Priority: "urgent", Estimate: "abc"})
	if issue.Priority != "Medium" {
		t.Errorf("Expected Medium, got %s", issue.Priority)
	}
	if issue.StoryPoints != 0 {
		t.Errorf("Expected non-numeric estimate to export as 0, got %v", issue.StoryPoints)
	}
}

func TestTableHasHeaderRow(t *testing.T) {
	table := Table([]model.TaskRow{{Name: "a", Estimate: "3"}, {Name: "b"}})
	if len(table) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(table))
	}
	if table[0][0] != "Summary" || table[0][6] != "Component" {
		t.Errorf("Unexpected header %v", table[0])
	}
	if table[1][3] != 3.0 {
		t.Errorf("Expected numeric story points, got %#v", table[1][3])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []model.TaskRow{{
		Name:     "Casino churn model",
		Client:   "Casino",
		Priority: "P2 (Medium)",
		Estimate: "5",
		Executor: "ML",
		Type:     model.OwnTask,
	}}
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	got := records[1]
	if got[3] != "5" || got[2] != "Medium" || got[5] != "Casino, Q_Planning" {
		t.Errorf("Unexpected record %v", got)
	}
}

func TestTableWithNonFiniteEstimatesEncodes(t *testing.T) {
	rows := []model.TaskRow{
		{Name: "typo", Estimate: "NaN"},
		{Name: "huge", Estimate: "inf"},
		{Name: "overflow", Estimate: "1e400"},
	}
	table := Table(rows)
	for i := 1; i < len(table); i++ {
		if table[i][3] != 0.0 {
			t.Errorf("Row %d: expected non-finite estimate to export as 0, got %#v", i, table[i][3])
		}
	}
	if _, err := json.Marshal(map[string]any{"values": table}); err != nil {
		t.Fatalf("Export table must be JSON encodable: %v", err)
	}
}
