// Package watch periodically scans a directory for subtitle files and
// hands new work to the batch translator on a cron schedule.
package watch

import (
	"context"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/subforge/srt-translator/pkg/file"
	"github.com/subforge/srt-translator/pkg/log"
)

// RunFunc translates the given subtitle files. The watcher does not care
// how; the caller wires in the batch runner.
type RunFunc func(ctx context.Context, files []string) error

type Watcher struct {
	dir      string
	cronExpr string
	cron     *cron.Cron
	run      RunFunc
}

func NewWatcher(dir, cronExpr string, c *cron.Cron, run RunFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		cronExpr: cronExpr,
		cron:     c,
		run:      run,
	}
}

var singleflightGroup singleflight.Group

// Schedule registers the scan job with the cron instance. Overlapping
// triggers collapse into one running scan.
func (w *Watcher) Schedule(ctx context.Context) error {
	log.Info("Scheduling subtitle watch on %s with cron %q", w.dir, w.cronExpr)

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("run", func() (any, error) {
			if err := w.Scan(ctx); err != nil {
				log.Error("Watch scan failed in dir %s: %v", w.dir, err)
			}
			return nil, nil
		})
	}
	_, err := w.cron.AddFunc(w.cronExpr, runFunc)
	return err
}

// Scan walks the watch directory once and feeds every subtitle file to
// the run function. Files that already carry the target language code
// are filtered downstream.
func (w *Watcher) Scan(ctx context.Context) error {
	files, err := file.FindSubtitles([]string{w.dir})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("No subtitle files found in %s", w.dir)
		return nil
	}
	log.Info("Found %d subtitle files in %s", len(files), w.dir)
	return w.run(ctx, files)
}
