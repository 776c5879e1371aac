package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFeedsSubtitleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.srt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.srt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	var got []string
	w := NewWatcher(dir, "@hourly", cron.New(), func(_ context.Context, files []string) error {
		got = files
		return nil
	})

	require.NoError(t, w.Scan(context.Background()))
	assert.Equal(t, []string{
		filepath.Join(dir, "a.srt"),
		filepath.Join(dir, "b.srt"),
	}, got)
}

func TestScanSkipsRunOnEmptyDir(t *testing.T) {
	called := false
	w := NewWatcher(t.TempDir(), "@hourly", cron.New(), func(context.Context, []string) error {
		called = true
		return nil
	})

	require.NoError(t, w.Scan(context.Background()))
	assert.False(t, called, "run must not fire without files")
}

func TestScheduleRejectsInvalidCronExpr(t *testing.T) {
	w := NewWatcher(t.TempDir(), "not a cron expr", cron.New(), func(context.Context, []string) error {
		return nil
	})
	require.Error(t, w.Schedule(context.Background()))
}

func TestScheduleTriggersRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.srt"), []byte("x"), 0644))

	var mu sync.Mutex
	runs := 0
	c := cron.New(cron.WithSeconds())
	w := NewWatcher(dir, "* * * * * *", c, func(context.Context, []string) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})

	require.NoError(t, w.Schedule(context.Background()))
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
