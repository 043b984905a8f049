package cli

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/qplan/pkg/capacity"
	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/harrisonrobin/qplan/pkg/planner"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	want := []string{"serve", "auth", "submit", "resolve", "list", "load", "refresh", "import", "config"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing command %q", name)
	}
}

func TestSubmitFlagsToSubmission(t *testing.T) {
	f := submitFlags{
		team:     "DE",
		name:     "  Pipeline ",
		client:   "Casino",
		priority: "P0",
		estimate: 8,
		blocker:  dependencyFlags{team: "BI", name: "Dashboard"},
	}
	sub, err := f.submission()
	require.NoError(t, err)
	assert.Equal(t, "Pipeline", sub.Name)
	assert.Equal(t, model.P0, sub.Priority)
	assert.Equal(t, planner.Dependency{Team: "BI", Name: "Dashboard"}, sub.Blocker)
	assert.Empty(t, sub.Enabler.Team)

	f.priority = "urgent"
	_, err = f.submission()
	assert.Error(t, err)
}

func TestFilterExecutor(t *testing.T) {
	rows := []model.TaskRow{{Name: "a", Executor: "DE"}, {Name: "b", Executor: "BI"}}
	assert.Len(t, filterExecutor(rows, ""), 2)
	assert.Equal(t, []model.TaskRow{{Name: "b", Executor: "BI"}}, filterExecutor(rows, "BI"))
}

func TestRenderTasks(t *testing.T) {
	var buf bytes.Buffer
	renderTasks(&buf, []model.TaskRow{
		{Name: "Pipeline", Requester: "DE", Executor: "DE", Client: "Casino", Priority: "P0 (Critical)", Estimate: "8", Type: model.OwnTask, Row: 2},
	})
	out := buf.String()
	for _, s := range []string{"Task", "Pipeline", "P0 (Critical)", "Own Task"} {
		assert.Contains(t, out, s)
	}
}

func TestRenderLoadMarksUnknownExecutors(t *testing.T) {
	s := capacity.NewSettings([]string{"DE"}, capacity.Team{People: 1, Days: 5})
	lines := capacity.Summarize(s, []model.TaskRow{
		{Executor: "DE", Type: model.OwnTask, Estimate: "8"},
		{Executor: "Ops", Type: model.IncomingBlocker, Estimate: "2"},
	})
	var buf bytes.Buffer
	renderLoad(&buf, lines)
	out := buf.String()
	assert.Contains(t, out, "Incoming Enabler")
	assert.Contains(t, out, "Ops (?)")
	assert.Contains(t, out, "-3")
}

func TestSyncWarning(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("%w: %w", planner.ErrDerivedSync, errors.New("quota exceeded"))
	assert.NoError(t, syncWarning(&buf, err))
	assert.Contains(t, buf.String(), "quota exceeded")
	assert.Contains(t, buf.String(), "qplan refresh")

	buf.Reset()
	other := errors.New("permission denied")
	assert.Equal(t, other, syncWarning(&buf, other))
	assert.NoError(t, syncWarning(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestImportDryRun(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(`{"name": "Pipeline", "executor": "DE", "client": "Casino", "priority": "P1", "estimate": 3}`))
	rootCmd.SetArgs([]string{"import", "--dry-run"})
	t.Cleanup(func() {
		importDryRun = false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Pipeline")
	assert.Contains(t, out.String(), "P1 (High)")
}

func TestConfigSetSpreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", path, "config", "set-spreadsheet", "Q3 Plan"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		viper.Reset()
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Q3 Plan")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "Q3 Plan", v.GetString("spreadsheet.title"))
}
