package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/history"
	"github.com/subforge/srt-translator/internal/prompt"
)

// chatClient is the slice of the Ollama client the server needs.
type chatClient interface {
	batch.Translator
	ListModels(ctx context.Context) ([]string, error)
}

type historyStore interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	ListFiles(ctx context.Context, runID int64) ([]history.FileRecord, error)
}

// Defaults are applied to run requests that leave fields empty.
type Defaults struct {
	Target         prompt.Language
	Style          prompt.Style
	Model          string
	Endpoint       string
	PromptOverride string
}

type Server struct {
	client   chatClient
	defaults Defaults
	recorder batch.Recorder
	history  historyStore

	runMu   sync.Mutex
	current *batch.Runner

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithRecorder(rec batch.Recorder) Option {
	return func(s *Server) {
		s.recorder = rec
	}
}

func WithHistory(store historyStore) Option {
	return func(s *Server) {
		s.history = store
	}
}

func NewServer(client chatClient, defaults Defaults, opts ...Option) *Server {
	s := &Server{
		client:   client,
		defaults: defaults,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/run", s.handleRun)
	s.mux.HandleFunc("/api/run/cancel", s.handleCancel)
	s.mux.HandleFunc("/api/run/stream", s.handleRunStream)
	s.mux.HandleFunc("/api/models", s.handleModels)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/history/", s.handleHistoryFiles)
}

// snapshot returns the current run's state, or an idle placeholder when no
// run has been started yet.
func (s *Server) snapshot() batch.Snapshot {
	s.runMu.Lock()
	r := s.current
	s.runMu.Unlock()
	if r == nil {
		return batch.Snapshot{State: batch.StateIdle.String(), Log: []string{}}
	}
	return r.Snapshot()
}
