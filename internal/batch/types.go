package batch

import (
	"context"

	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/internal/prompt"
)

// State is the lifecycle of one batch run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Progress is one (completed, total) file-count emission.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Job describes one batch run. It is immutable once the run starts.
type Job struct {
	Files          []string
	Target         prompt.Language
	Style          prompt.Style
	Model          string
	PromptOverride string
	Endpoint       string
}

// Translator performs one blocking translation call.
type Translator interface {
	Translate(ctx context.Context, req ollama.Request) (string, error)
}

// Per-file outcomes recorded in run history.
const (
	FileTranslated = "translated"
	FileSkipped    = "skipped"
	FileFailed     = "failed"
)

// fileAborted marks a file the run was cancelled in the middle of; it is
// never recorded or counted.
const fileAborted = "aborted"

// Recorder persists run outcomes. All methods are best-effort from the
// runner's perspective; failures are logged, never fatal.
type Recorder interface {
	BeginRun(ctx context.Context, job Job) (int64, error)
	RecordFile(ctx context.Context, runID int64, path, status, detail string) error
	FinishRun(ctx context.Context, runID int64, state State, done, total int) error
}

// Events is the observability surface of a run. Log and Progress must be
// drained until Done closes. Fatal receives at most one error.
type Events struct {
	Log      chan string
	Progress chan Progress
	Done     chan struct{}
	Fatal    chan error
}

func newEvents() Events {
	return Events{
		Log:      make(chan string, 64),
		Progress: make(chan Progress, 8),
		Done:     make(chan struct{}),
		Fatal:    make(chan error, 1),
	}
}

// Snapshot is a point-in-time view of a run for polling consumers.
type Snapshot struct {
	State string   `json:"state"`
	Done  int      `json:"done"`
	Total int      `json:"total"`
	Log   []string `json:"log"`
}
