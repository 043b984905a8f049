package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	s, err := Open(dir)
	require.NoError(t, err)
	s.now = func() time.Time { return at }
	_, ok := s.Lookup("Quarterly Planning Data")
	assert.False(t, ok)

	s.Remember("Quarterly Planning Data", "1AbC")
	require.NoError(t, s.Flush())

	reopened, err := Open(dir)
	require.NoError(t, err)
	e, ok := reopened.Lookup("Quarterly Planning Data")
	require.True(t, ok)
	assert.Equal(t, Entry{ID: "1AbC", ResolvedAt: at}, e)
}

func TestRememberSameIDKeepsResolvedAt(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	first := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }
	s.Remember("plan", "1")
	require.NoError(t, s.Flush())

	s.now = func() time.Time { return first.Add(time.Hour) }
	s.Remember("plan", "1")
	assert.False(t, s.dirty)
	e, _ := s.Lookup("plan")
	assert.Equal(t, first, e.ResolvedAt)

	s.Remember("plan", "2")
	e, _ = s.Lookup("plan")
	assert.Equal(t, "2", e.ID)
	assert.Equal(t, first.Add(time.Hour), e.ResolvedAt)
}

func TestFlushSkipsCleanCache(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Flush())
	_, err = os.Stat(s.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestForgetPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	s.Remember("a", "1")
	require.NoError(t, s.Flush())

	assert.True(t, s.Forget("a"))
	assert.False(t, s.Forget("a"))
	require.NoError(t, s.Flush())

	reopened, err := Open(dir)
	require.NoError(t, err)
	_, ok := reopened.Lookup("a")
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file left behind")
	assert.Equal(t, fileName, entries[0].Name())
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0o600))

	_, err := Open(dir)
	assert.ErrorContains(t, err, "corrupt spreadsheet cache")
}
