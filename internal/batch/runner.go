// Package batch drives one translation run over an ordered list of
// subtitle files: skip decision, parse, per-block protect/translate/
// restore, serialize, with progress and log events along the way.
//
// Files and blocks are processed strictly sequentially; at most one
// network call is ever in flight.
package batch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/internal/prompt"
	"github.com/subforge/srt-translator/internal/protect"
	"github.com/subforge/srt-translator/internal/subtitle"
	"github.com/subforge/srt-translator/pkg/file"
	"github.com/subforge/srt-translator/pkg/log"
)

// logRingSize bounds the snapshot's log tail.
const logRingSize = 200

// Runner executes one Job on its own goroutine. Cancellation is
// cooperative: Cancel flips a flag that the worker polls at the start of
// every file and every block; an in-flight HTTP call runs to completion
// or timeout first.
type Runner struct {
	job    Job
	tr     Translator
	rec    Recorder
	events Events

	cancelMu  sync.Mutex
	cancelled bool

	mu     sync.Mutex
	state  State
	done   int
	logBuf []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder attaches a run-history recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.rec = rec
	}
}

// NewRunner creates an idle runner for job.
func NewRunner(job Job, tr Translator, opts ...Option) *Runner {
	r := &Runner{
		job:    job,
		tr:     tr,
		events: newEvents(),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the run's event channels.
func (r *Runner) Events() Events {
	return r.events
}

// State returns the current run state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a point-in-time view of the run.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	logTail := make([]string, len(r.logBuf))
	copy(logTail, r.logBuf)
	return Snapshot{
		State: r.state.String(),
		Done:  r.done,
		Total: len(r.job.Files),
		Log:   logTail,
	}
}

// Cancel requests cooperative cancellation. The worker observes the flag
// at its next checkpoint; callers should Wait for it to exit.
func (r *Runner) Cancel() {
	r.cancelMu.Lock()
	r.cancelled = true
	r.cancelMu.Unlock()
}

func (r *Runner) cancelRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	r.cancelMu.Lock()
	defer r.cancelMu.Unlock()
	return r.cancelled
}

// Start launches the run on its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	go r.Run(ctx)
}

// Wait blocks until the run finishes or timeout elapses. It reports
// whether the run finished in time.
func (r *Runner) Wait(timeout time.Duration) bool {
	select {
	case <-r.events.Done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run executes the job to completion, cancellation, or fatal error. The
// Done channel closes when Run returns; a terminal (total, total)
// progress emission always precedes it.
func (r *Runner) Run(ctx context.Context) {
	total := len(r.job.Files)
	r.setState(StateRunning)
	runID := r.beginRun(ctx)

	final := StateCompleted
	if err := r.runFiles(ctx, runID, total, &final); err != nil {
		final = StateFatal
		r.logf("Critical error: %v", err)
		r.events.Fatal <- err
	}

	r.emitProgress(total, total)
	if final == StateCompleted {
		r.logf("Translation completed successfully!")
	}
	r.setState(final)
	r.finishRun(ctx, runID, final, total)
	close(r.events.Done)
}

// runFiles iterates the job's files. Anything escaping the per-file
// guard is returned as the run's fatal error.
func (r *Runner) runFiles(ctx context.Context, runID int64, total int, final *State) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("runtime error: %v", p)
		}
	}()

	for idx, path := range r.job.Files {
		if r.cancelRequested(ctx) {
			r.logf("Translation cancelled by user")
			*final = StateCancelled
			return nil
		}

		r.logf("Processing file: %s", path)
		status, detail := r.processFileGuarded(ctx, path)
		if status == fileAborted {
			r.logf("Translation cancelled by user")
			*final = StateCancelled
			return nil
		}

		r.recordFile(ctx, runID, path, status, detail)
		r.setDone(idx + 1)
		r.emitProgress(idx+1, total)
	}
	return nil
}

// processFileGuarded confines any failure, including panics, to this one
// file so the run continues with the next.
func (r *Runner) processFileGuarded(ctx context.Context, path string) (status, detail string) {
	defer func() {
		if p := recover(); p != nil {
			r.logf("Error processing %s: %v", path, p)
			status, detail = FileFailed, fmt.Sprintf("%v", p)
		}
	}()

	status, detail, err := r.processFile(ctx, path)
	if err != nil {
		r.logf("Error processing %s: %v", path, err)
		return FileFailed, err.Error()
	}
	return status, detail
}

func (r *Runner) processFile(ctx context.Context, path string) (string, string, error) {
	target := file.OutputPath(path, r.job.Target.Code)
	if _, err := os.Stat(target); err == nil {
		r.logf("Skipping %s - target already exists", path)
		return FileSkipped, "target already exists", nil
	}

	if file.HasLangCode(path, r.job.Target.Code) {
		r.logf("Skipping %s - already has target language code", path)
		return FileSkipped, "already has target language code", nil
	}

	blocks, err := subtitle.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	if len(blocks) == 0 {
		r.logf("No valid blocks found in %s", path)
		return FileSkipped, "no valid blocks", nil
	}

	if lang := subtitle.DetectLanguage(blocks); lang != language.Und {
		r.logf("Detected source language %s in %s", lang, path)
	}

	systemPrompt := prompt.Build(r.job.Target.Name, r.job.Style, r.job.PromptOverride)

	translated, failed := 0, 0
	for i := range blocks {
		if r.cancelRequested(ctx) {
			return fileAborted, "", nil
		}
		r.logf("Translating block %d/%d", i+1, len(blocks))

		protected, replacements := protect.Protect(blocks[i].Text)

		reply, err := r.tr.Translate(ctx, ollama.Request{
			SystemPrompt: systemPrompt,
			UserText:     protected,
			Model:        r.job.Model,
		})
		if err != nil {
			// Soft failure: the block keeps its original text.
			r.logf("Skipping block %d due to translation failure: %v", i+1, err)
			failed++
			continue
		}
		if strings.TrimSpace(reply) == "" {
			// An empty reply would erase the subtitle line.
			r.logf("Skipping block %d due to empty translation reply", i+1)
			failed++
			continue
		}

		if missing := protect.Missing(reply, replacements); len(missing) > 0 {
			r.logf("Block %d reply lost placeholders: %s", i+1, strings.Join(missing, ", "))
		}

		blocks[i].Text = protect.Restore(reply, replacements)
		translated++
	}

	if err := subtitle.WriteFile(target, blocks); err != nil {
		return "", "", err
	}
	r.logf("Saved translated file: %s", target)

	detail := fmt.Sprintf("%d/%d blocks translated", translated, len(blocks))
	if failed > 0 {
		detail += fmt.Sprintf(", %d failed", failed)
	}
	return FileTranslated, detail, nil
}

// Logf feeds a line into the run's log stream. Exported so the
// translation client's attempt callback can share the stream.
func (r *Runner) Logf(format string, args ...any) {
	r.logf(format, args...)
}

func (r *Runner) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	r.mu.Lock()
	r.logBuf = append(r.logBuf, line)
	if len(r.logBuf) > logRingSize {
		r.logBuf = r.logBuf[len(r.logBuf)-logRingSize:]
	}
	r.mu.Unlock()

	r.events.Log <- line
}

func (r *Runner) setDone(done int) {
	r.mu.Lock()
	r.done = done
	r.mu.Unlock()
}

// emitProgress sends one (done, total) pair. The terminal emission always
// carries (total, total) regardless of how many files actually completed,
// so consumers can treat it as the end-of-run marker.
func (r *Runner) emitProgress(done, total int) {
	r.events.Progress <- Progress{Done: done, Total: total}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) beginRun(ctx context.Context) int64 {
	if r.rec == nil {
		return 0
	}
	id, err := r.rec.BeginRun(ctx, r.job)
	if err != nil {
		log.Error("Failed to record run start: %v", err)
		return 0
	}
	return id
}

func (r *Runner) recordFile(ctx context.Context, runID int64, path, status, detail string) {
	if r.rec == nil {
		return
	}
	if err := r.rec.RecordFile(ctx, runID, path, status, detail); err != nil {
		log.Error("Failed to record file outcome for %s: %v", path, err)
	}
}

func (r *Runner) finishRun(ctx context.Context, runID int64, final State, total int) {
	if r.rec == nil {
		return
	}
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if err := r.rec.FinishRun(ctx, runID, final, done, total); err != nil {
		log.Error("Failed to record run finish: %v", err)
	}
}
