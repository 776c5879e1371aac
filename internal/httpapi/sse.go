package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/subforge/srt-translator/internal/batch"
)

// handleRunStream pushes run snapshots as server-sent events. The stream
// ends after the terminal snapshot of a finished run is delivered.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func() (bool, bool) {
		snap := s.snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			return false, false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false, false
		}
		flusher.Flush()
		running := snap.State == batch.StateRunning.String() || snap.State == batch.StateIdle.String()
		return true, running
	}

	ok, running := send()
	if !ok || !running {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			ok, running := send()
			if !ok || !running {
				return
			}
		}
	}
}
