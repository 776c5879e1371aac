package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/prompt"
	"github.com/subforge/srt-translator/pkg/file"
)

type startRunRequest struct {
	Paths          []string `json:"paths"`
	TargetLang     string   `json:"target_lang"`
	Style          string   `json:"style"`
	Model          string   `json:"model"`
	PromptOverride string   `json:"prompt_override"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.snapshot())
	case http.MethodPost:
		s.handleStartRun(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	files, err := file.FindSubtitles(req.Paths)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no subtitle files found")
		return
	}

	target := s.defaults.Target
	if req.TargetLang != "" {
		target, err = prompt.LanguageByCode(req.TargetLang)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	style := s.defaults.Style
	if req.Style != "" {
		style = prompt.ParseStyle(req.Style)
	}
	model := s.defaults.Model
	if req.Model != "" {
		model = req.Model
	}
	override := s.defaults.PromptOverride
	if req.PromptOverride != "" {
		override = req.PromptOverride
	}

	job := batch.Job{
		Files:          files,
		Target:         target,
		Style:          style,
		Model:          model,
		PromptOverride: override,
		Endpoint:       s.defaults.Endpoint,
	}

	s.runMu.Lock()
	if s.current != nil && s.current.State() == batch.StateRunning {
		s.runMu.Unlock()
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	var opts []batch.Option
	if s.recorder != nil {
		opts = append(opts, batch.WithRecorder(s.recorder))
	}
	runner := batch.NewRunner(job, s.client, opts...)
	s.current = runner
	s.runMu.Unlock()

	go drainEvents(runner.Events())
	runner.Start(context.Background())

	writeJSON(w, http.StatusAccepted, runner.Snapshot())
}

// drainEvents consumes a run's event channels so the worker never blocks.
// API consumers read state through Snapshot polling instead.
func drainEvents(ev batch.Events) {
	for {
		select {
		case <-ev.Log:
		case <-ev.Progress:
		case <-ev.Fatal:
		case <-ev.Done:
			return
		}
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.runMu.Lock()
	runner := s.current
	s.runMu.Unlock()
	if runner == nil || runner.State() != batch.StateRunning {
		writeError(w, http.StatusConflict, "no run in progress")
		return
	}
	runner.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok": true,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	models, err := s.client.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": models,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHistoryFiles(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// /api/history/{id}/files
	path := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if !strings.HasSuffix(path, "/files") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	rawID := strings.TrimSuffix(strings.TrimSuffix(path, "/files"), "/")
	runID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || runID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	records, err := s.history.ListFiles(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
