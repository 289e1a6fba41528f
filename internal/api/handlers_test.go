package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cramlabs/cramd/internal/answer"
	"github.com/cramlabs/cramd/internal/config"
	"github.com/cramlabs/cramd/internal/extract"
	"github.com/cramlabs/cramd/internal/llm"
	"github.com/cramlabs/cramd/internal/session"
)

const testAPIKey = "test-service-key"

type fakeBackend struct {
	answer string
	err    error
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]string, error) {
	return []string{"m1"}, nil
}

func (f *fakeBackend) Complete(ctx context.Context, model string, messages []llm.Message, maxTokens int, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestServer(t *testing.T, backend answer.Connector) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testAPIKey,
		MaxUploadBytes: 1 << 20,
	}
	engine := answer.NewEngine(backend, answer.Config{APIKey: "sk-real"}, log)
	if got := engine.Validate(context.Background()); got != answer.StateReady {
		t.Fatalf("expected ready engine, got %v", got)
	}
	return NewServer(session.NewManager(time.Hour), extract.NewService(nil), engine, llm.NewStats(time.Hour), log, cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", w.Code)
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	return resp.SessionID
}

func uploadFiles(t *testing.T, srv *Server, sessionID string, files map[string]string) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/documents", &buf)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Files []map[string]any `json:"files"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp.Files
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"backend":"ready"`) {
		t.Errorf("expected backend state in health body: %s", w.Body.String())
	}
}

func TestUploadAddsAndReportsPerFile(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	sid := createSession(t, srv)

	results := uploadFiles(t, srv, sid, map[string]string{
		"notes.txt":   "study notes content",
		"archive.zip": "binary junk",
		"blank.txt":   "   \n  ",
	})

	byName := map[string]string{}
	for _, r := range results {
		byName[r["filename"].(string)] = r["status"].(string)
	}
	if byName["notes.txt"] != "added" {
		t.Errorf("notes.txt: expected added, got %q", byName["notes.txt"])
	}
	if byName["archive.zip"] != "unsupported" {
		t.Errorf("archive.zip: expected unsupported, got %q", byName["archive.zip"])
	}
	if byName["blank.txt"] != "empty" {
		t.Errorf("blank.txt: expected empty, got %q", byName["blank.txt"])
	}
}

func TestUploadDuplicateFilename(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	sid := createSession(t, srv)

	uploadFiles(t, srv, sid, map[string]string{"notes.txt": "v1"})
	results := uploadFiles(t, srv, sid, map[string]string{"notes.txt": "v2"})
	if results[0]["status"] != "duplicate" {
		t.Errorf("expected duplicate status, got %v", results[0]["status"])
	}

	w := doJSON(t, srv, http.MethodGet, "/api/sessions/"+sid+"/documents", nil)
	var resp struct {
		Documents []map[string]any `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Documents) != 1 {
		t.Errorf("expected 1 document after duplicate upload, got %d", len(resp.Documents))
	}
}

func TestAskHappyPath(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "Paris"})
	sid := createSession(t, srv)
	uploadFiles(t, srv, sid, map[string]string{"france.txt": "Paris is the capital of France."})

	w := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/ask", map[string]string{
		"question": "What is the capital of France?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ask: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Answer string `json:"answer"`
		OK     bool   `json:"ok"`
		Kind   string `json:"kind"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.OK || resp.Answer != "Paris" || resp.Kind != "ok" {
		t.Errorf("unexpected ask response: %+v", resp)
	}
}

func TestAskWithoutDocuments(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	sid := createSession(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/ask", map[string]string{"question": "hello?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask: status %d", w.Code)
	}
	var resp struct {
		OK   bool   `json:"ok"`
		Kind string `json:"kind"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.OK || resp.Kind != "no_document" {
		t.Errorf("expected no_document failure, got %+v", resp)
	}
}

func TestAskBackendFailureIsDisplayText(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{err: &llm.CallError{Status: 500, Message: "boom"}})
	sid := createSession(t, srv)
	uploadFiles(t, srv, sid, map[string]string{"a.txt": "text"})

	w := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/ask", map[string]string{"question": "q?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected failures rendered as 200 display text, got %d", w.Code)
	}
	var resp struct {
		Answer string `json:"answer"`
		OK     bool   `json:"ok"`
		Kind   string `json:"kind"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.OK || resp.Kind != "backend_call_failed" || resp.Answer == "" {
		t.Errorf("unexpected failure response: %+v", resp)
	}
	if strings.Contains(resp.Answer, "boom") {
		t.Errorf("raw backend error leaked to display text: %q", resp.Answer)
	}
}

func TestActivateAndDeleteDocument(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	sid := createSession(t, srv)
	uploadFiles(t, srv, sid, map[string]string{"a.txt": "one"})
	results := uploadFiles(t, srv, sid, map[string]string{"b.txt": "two"})
	bID := results[0]["doc_id"].(string)

	w := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/documents/"+bID+"/activate", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("activate: status %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/api/sessions/"+sid+"/documents/"+bID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/sessions/"+sid+"/documents", nil)
	var resp struct {
		Documents []struct {
			Filename string `json:"filename"`
			Active   bool   `json:"active"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Documents) != 1 {
		t.Fatalf("expected 1 document left, got %d", len(resp.Documents))
	}
	if resp.Documents[0].Filename != "a.txt" || !resp.Documents[0].Active {
		t.Errorf("expected a.txt active after deleting active doc: %+v", resp.Documents[0])
	}
}

func TestClearHistory(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "answer"})
	sid := createSession(t, srv)
	uploadFiles(t, srv, sid, map[string]string{"a.txt": "text"})
	doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/ask", map[string]string{"question": "q1"})

	w := doJSON(t, srv, http.MethodDelete, "/api/sessions/"+sid+"/history", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear history: status %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/sessions/"+sid+"/documents", nil)
	var resp struct {
		Documents []struct {
			Turns int `json:"turns"`
		} `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Documents[0].Turns != 0 {
		t.Errorf("expected cleared log, got %d turns", resp.Documents[0].Turns)
	}
}

func TestGetHistory(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "the answer"})
	sid := createSession(t, srv)
	uploadFiles(t, srv, sid, map[string]string{"a.txt": "text"})
	doJSON(t, srv, http.MethodPost, "/api/sessions/"+sid+"/ask", map[string]string{"question": "q1"})

	w := doJSON(t, srv, http.MethodGet, "/api/sessions/"+sid+"/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: status %d", w.Code)
	}
	var resp struct {
		Turns []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"turns"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Turns) != 1 || resp.Turns[0].Question != "q1" || resp.Turns[0].Answer != "the answer" {
		t.Errorf("unexpected history: %+v", resp.Turns)
	}
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	w := doJSON(t, srv, http.MethodPost, "/api/sessions/00000000-0000-0000-0000-000000000000/ask", map[string]string{"question": "q"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestLLMStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{answer: "hi"})
	w := doJSON(t, srv, http.MethodGet, "/api/stats/llm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"ready"`) {
		t.Errorf("expected engine state in stats body: %s", w.Body.String())
	}
}
