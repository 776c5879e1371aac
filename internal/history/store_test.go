package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/prompt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RunRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	job := batch.Job{
		Files:    []string{"/media/a.srt", "/media/b.srt"},
		Target:   prompt.Language{Name: "German", Code: "de"},
		Style:    prompt.StyleFormal,
		Model:    "llama3",
		Endpoint: "http://localhost:11434/api/chat",
	}
	runID, err := store.BeginRun(ctx, job)
	require.NoError(t, err)
	require.NotZero(t, runID)

	require.NoError(t, store.RecordFile(ctx, runID, "/media/a.srt", batch.FileTranslated, "12/12 blocks translated"))
	require.NoError(t, store.RecordFile(ctx, runID, "/media/b.srt", batch.FileSkipped, "target already exists"))
	require.NoError(t, store.FinishRun(ctx, runID, batch.StateCompleted, 2, 2))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "de", run.TargetLang)
	assert.Equal(t, "formal", run.Style)
	assert.Equal(t, "llama3", run.Model)
	assert.Equal(t, "completed", run.State)
	assert.Equal(t, 2, run.FilesDone)
	assert.Equal(t, 2, run.FilesTotal)
	require.NotNil(t, run.FinishedAt)

	files, err := store.ListFiles(ctx, runID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/media/a.srt", files[0].Path)
	assert.Equal(t, batch.FileTranslated, files[0].Status)
	assert.Equal(t, "target already exists", files[1].Detail)
}

func TestStore_UnfinishedRunStaysRunning(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	runID, err := store.BeginRun(ctx, batch.Job{
		Files:  []string{"/media/a.srt"},
		Target: prompt.Language{Name: "French", Code: "fr"},
	})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "running", runs[0].State)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, 1, runs[0].FilesTotal)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.BeginRun(ctx, batch.Job{Target: prompt.Language{Name: "German", Code: "de"}})
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestNewStoreRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewStore("  ")
	require.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_runs.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
