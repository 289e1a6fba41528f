package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cramlabs/cramd/internal/extract"
	"github.com/cramlabs/cramd/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// uploadResult reports one file's outcome in a batch upload.
type uploadResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"` // added, duplicate, empty, unsupported, failed
	DocID    string `json:"doc_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleUpload accepts a multipart batch of files. Extraction is pure per
// file, so it fans out across goroutines; store appends happen afterwards in
// upload order so insertion order stays deterministic.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	type extracted struct {
		result uploadResult
		text   string
	}
	results := make([]extracted, len(files))

	var wg sync.WaitGroup
	for i, fh := range files {
		i, fh := i, fh
		wg.Add(1)
		go func() {
			defer wg.Done()

			filename := sanitizeFilename(fh.Filename)
			res := &results[i]
			res.result.Filename = filename

			kind := extract.DetectKind(filename, fh.Header.Get("Content-Type"))

			f, err := fh.Open()
			if err != nil {
				res.result.Status = "failed"
				res.result.Error = "failed to open file"
				return
			}
			defer f.Close()

			limited := io.LimitReader(f, s.cfg.MaxUploadBytes+1)
			data, err := io.ReadAll(limited)
			if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
				res.result.Status = "failed"
				res.result.Error = "file too large or read error"
				return
			}

			text, err := s.extractor.Extract(r.Context(), bytes.NewReader(data), filename, kind)
			switch {
			case errors.Is(err, extract.ErrUnsupportedKind):
				res.result.Status = "unsupported"
				res.result.Error = fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename))
			case err != nil:
				res.result.Status = "failed"
				res.result.Error = "could not process this file"
				s.log.Warn("extraction failed", "filename", filename, "kind", kind.String(), "error", err)
			default:
				res.text = text
			}
		}()
	}
	wg.Wait()

	// Append in upload order.
	out := make([]uploadResult, 0, len(results))
	for i := range results {
		res := results[i]
		if res.result.Status != "" {
			out = append(out, res.result)
			continue
		}
		docID, err := sess.AddDocument(res.text, res.result.Filename)
		switch {
		case errors.Is(err, session.ErrEmptyDocument):
			res.result.Status = "empty"
			res.result.Error = "no text could be extracted from this file"
		case errors.Is(err, session.ErrDuplicateFilename):
			res.result.Status = "duplicate"
		default:
			res.result.Status = "added"
			res.result.DocID = docID.String()
		}
		out = append(out, res.result)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"files": out})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": sess.Documents()})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	docID, err := uuid.Parse(chi.URLParam(r, "docID"))
	if err != nil {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	// Unknown ids are a silent no-op; selection races with deletes are fine.
	sess.SwitchActive(docID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	docID, err := uuid.Parse(chi.URLParam(r, "docID"))
	if err != nil {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	sess.DeleteDocument(docID)
	w.WriteHeader(http.StatusNoContent)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	result := s.engine.Answer(r.Context(), sess, question)
	if !result.OK() {
		s.log.Warn("answer failed", "kind", string(result.Kind), "detail", result.Detail)
	}

	// Failures are rendered as display text here at the presentation
	// boundary; the session itself never errors out.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer": result.Text,
		"ok":     result.OK(),
		"kind":   string(result.Kind),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	turns := sess.ActiveLog()
	if turns == nil {
		turns = []session.Turn{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"turns": turns})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if docID, active := sess.ActiveID(); active {
		sess.ClearLog(docID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the sessionID path parameter, writing the error response
// itself when the session is missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "invalid session id", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
