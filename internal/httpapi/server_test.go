package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/history"
	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/internal/prompt"
)

type fakeClient struct {
	translate func(ctx context.Context, req ollama.Request) (string, error)
	models    []string
	modelsErr error
}

func (f *fakeClient) Translate(ctx context.Context, req ollama.Request) (string, error) {
	if f.translate != nil {
		return f.translate(ctx, req)
	}
	return strings.ToUpper(req.UserText), nil
}

func (f *fakeClient) ListModels(context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

func testDefaults() Defaults {
	return Defaults{
		Target: prompt.Language{Name: "German", Code: "de"},
		Style:  prompt.StyleNatural,
		Model:  "llama3",
	}
}

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n" +
	"2\n00:00:02,500 --> 00:00:04,000\nWorld\n\n"

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "movie.srt")
	require.NoError(t, os.WriteFile(path, []byte(sampleSRT), 0644))
	return path
}

func postRun(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/run", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func getSnapshot(t *testing.T, s *Server) batch.Snapshot {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap batch.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func waitForState(t *testing.T, s *Server, want string) batch.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := getSnapshot(t, s)
		if snap.State == want {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run never reached state %q", want)
	return batch.Snapshot{}
}

func TestRunEndpointLifecycle(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)

	s := NewServer(&fakeClient{}, testDefaults())

	snap := getSnapshot(t, s)
	assert.Equal(t, "idle", snap.State)

	rec := postRun(t, s, map[string]any{"paths": []string{in}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	snap = waitForState(t, s, "completed")
	assert.Equal(t, 1, snap.Done)
	assert.Equal(t, 1, snap.Total)
	assert.NotEmpty(t, snap.Log)

	out, err := os.ReadFile(filepath.Join(dir, "movie.de.srt"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "HELLO")
}

func TestStartRunValidation(t *testing.T) {
	s := NewServer(&fakeClient{}, testDefaults())

	rec := postRun(t, s, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postRun(t, s, map[string]any{"paths": []string{filepath.Join(t.TempDir(), "none")}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	dir := t.TempDir()
	in := writeSample(t, dir)
	rec = postRun(t, s, map[string]any{"paths": []string{in}, "target_lang": "xx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConcurrentRunConflictAndCancel(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)

	release := make(chan struct{})
	client := &fakeClient{translate: func(ctx context.Context, req ollama.Request) (string, error) {
		<-release
		return req.UserText, nil
	}}
	s := NewServer(client, testDefaults())

	rec := postRun(t, s, map[string]any{"paths": []string{in}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForState(t, s, "running")

	rec = postRun(t, s, map[string]any{"paths": []string{in}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	cancelReq := httptest.NewRequest(http.MethodPost, "/api/run/cancel", nil)
	cancelRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(cancelRec, cancelReq)
	assert.Equal(t, http.StatusAccepted, cancelRec.Code)

	close(release)
	waitForState(t, s, "cancelled")
}

func TestCancelWithoutRun(t *testing.T) {
	s := NewServer(&fakeClient{}, testDefaults())

	req := httptest.NewRequest(http.MethodPost, "/api/run/cancel", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	s := NewServer(&fakeClient{models: []string{"llama3", "mistral"}}, testDefaults())

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"llama3", "mistral"}, body["models"])
}

func TestModelsEndpointUpstreamError(t *testing.T) {
	s := NewServer(&fakeClient{modelsErr: errors.New("connection refused")}, testDefaults())

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	runID, err := store.BeginRun(ctx, batch.Job{
		Files:  []string{"/media/a.srt"},
		Target: prompt.Language{Name: "German", Code: "de"},
		Model:  "llama3",
	})
	require.NoError(t, err)
	require.NoError(t, store.RecordFile(ctx, runID, "/media/a.srt", batch.FileTranslated, "3/3 blocks translated"))
	require.NoError(t, store.FinishRun(ctx, runID, batch.StateCompleted, 1, 1))

	s := NewServer(&fakeClient{}, testDefaults(), WithHistory(store))

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []history.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].State)

	req = httptest.NewRequest(http.MethodGet, "/api/history/1/files", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []history.FileRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "/media/a.srt", files[0].Path)
}

func TestHistoryNotConfigured(t *testing.T) {
	s := NewServer(&fakeClient{}, testDefaults())

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRunStreamEndsAfterTerminalSnapshot(t *testing.T) {
	dir := t.TempDir()
	in := writeSample(t, dir)

	s := NewServer(&fakeClient{}, testDefaults())
	rec := postRun(t, s, map[string]any{"paths": []string{in}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForState(t, s, "completed")

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/run/stream")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Terminal state: a single snapshot event, then the stream closes.
	scanner := bufio.NewScanner(resp.Body)
	var events []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Len(t, events, 1)

	var snap batch.Snapshot
	require.NoError(t, json.Unmarshal([]byte(events[0]), &snap))
	assert.Equal(t, "completed", snap.State)
	assert.Equal(t, 1, snap.Done)
}
