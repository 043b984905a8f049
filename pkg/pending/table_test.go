package pending

import (
	"testing"
	"time"

	"github.com/harrisonrobin/qplan/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []model.TaskRow {
	return []model.TaskRow{
		{Name: "New crit", Executor: "DE", Requester: "DE", Priority: "P0 (Critical)", Estimate: "5", Type: model.OwnTask},
		{Name: "Need API", Executor: "WAS", Requester: "DE", Priority: "P0 (Critical)", Type: model.IncomingBlocker},
	}
}

func TestAddPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tbl, err := New(dir)
	require.NoError(t, err)
	e := tbl.Add("DE", sampleRows(), now)
	require.NotEmpty(t, e.ID)
	require.NoError(t, tbl.Save())

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "DE", got.Executor)
	assert.Equal(t, sampleRows(), got.Rows)
	assert.True(t, now.Equal(got.Created))
}

func TestGetUnknown(t *testing.T) {
	tbl, err := New("")
	require.NoError(t, err)
	_, err = tbl.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepDropsExpired(t *testing.T) {
	tbl, err := New("")
	require.NoError(t, err)
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	old := tbl.Add("DE", sampleRows(), base)
	fresh := tbl.Add("BI", sampleRows(), base.Add(20*time.Hour))

	swept := tbl.Sweep(base.Add(25*time.Hour), 24*time.Hour)
	require.Len(t, swept, 1)
	assert.Equal(t, old.ID, swept[0].ID)

	_, err = tbl.Get(fresh.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestAddCopiesRows(t *testing.T) {
	tbl, err := New("")
	require.NoError(t, err)
	rows := sampleRows()
	e := tbl.Add("DE", rows, time.Now())
	rows[0].Priority = "P3 (Low)"

	got, err := tbl.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "P0 (Critical)", got.Rows[0].Priority)
}
