// Package session holds the per-user state of a study session: the uploaded
// documents, which one is active, and each document's conversation log.
// Sessions are fully independent of one another; nothing here is shared
// across sessions.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyDocument rejects uploads whose extraction produced no text.
	ErrEmptyDocument = errors.New("document has no extractable text")
	// ErrDuplicateFilename rejects a second live document with the same name.
	ErrDuplicateFilename = errors.New("a document with this filename already exists")
)

// Document is one uploaded file's extracted text. Immutable after creation.
type Document struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Text     string    `json:"-"`
	Seq      int       `json:"-"`
}

// Turn is one question/answer exchange recorded against a document.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Seq      int    `json:"seq"`
}

// Session owns the documents and conversation logs of one user session.
// All methods are safe for concurrent use; callers may fan out extraction
// work and append results from multiple goroutines.
type Session struct {
	ID uuid.UUID

	mu        sync.Mutex
	documents map[uuid.UUID]*Document
	logs      map[uuid.UUID][]Turn
	activeID  uuid.UUID
	hasActive bool
	docSeq    int
	turnSeq   int
	touched   time.Time
}

func New() *Session {
	return &Session{
		ID:        uuid.New(),
		documents: make(map[uuid.UUID]*Document),
		logs:      make(map[uuid.UUID][]Turn),
		touched:   time.Now(),
	}
}

// AddDocument registers extracted text under a fresh id. Empty text and
// duplicate filenames are rejected without changing the store. The first
// document added becomes active.
func (s *Session) AddDocument(text, filename string) (uuid.UUID, error) {
	if isBlank(text) {
		return uuid.Nil, ErrEmptyDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	for _, doc := range s.documents {
		if doc.Filename == filename {
			return uuid.Nil, ErrDuplicateFilename
		}
	}

	s.docSeq++
	doc := &Document{
		ID:       uuid.New(),
		Filename: filename,
		Text:     text,
		Seq:      s.docSeq,
	}
	s.documents[doc.ID] = doc
	s.logs[doc.ID] = nil

	if !s.hasActive {
		s.activeID = doc.ID
		s.hasActive = true
	}
	return doc.ID, nil
}

// SwitchActive selects the document to answer questions from. An unknown id
// is a silent no-op: UI selection races are expected and harmless.
func (s *Session) SwitchActive(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	if _, ok := s.documents[id]; ok {
		s.activeID = id
		s.hasActive = true
	}
}

// DeleteDocument removes a document and its conversation log. If it was
// active, the oldest remaining document (insertion order) becomes active, or
// none if the store is now empty.
func (s *Session) DeleteDocument(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	if _, ok := s.documents[id]; !ok {
		return
	}
	delete(s.documents, id)
	delete(s.logs, id)

	if s.hasActive && s.activeID == id {
		s.hasActive = false
		var oldest *Document
		for _, doc := range s.documents {
			if oldest == nil || doc.Seq < oldest.Seq {
				oldest = doc
			}
		}
		if oldest != nil {
			s.activeID = oldest.ID
			s.hasActive = true
		}
	}
}

// ActiveID reports the currently active document, if any.
func (s *Session) ActiveID() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID, s.hasActive
}

// ActiveText returns the active document's extracted text.
func (s *Session) ActiveText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasActive {
		return "", false
	}
	return s.documents[s.activeID].Text, true
}

// ActiveContext is the snapshot the answer engine grounds a question on:
// the active document plus its most recent turns, read under one lock.
type ActiveContext struct {
	DocID    uuid.UUID
	Filename string
	Text     string
	Recent   []Turn
}

// Active returns the grounding snapshot for the active document with its
// last n turns in chronological order.
func (s *Session) Active(n int) (ActiveContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasActive {
		return ActiveContext{}, false
	}
	doc := s.documents[s.activeID]
	return ActiveContext{
		DocID:    doc.ID,
		Filename: doc.Filename,
		Text:     doc.Text,
		Recent:   lastN(s.logs[doc.ID], n),
	}, true
}

// ActiveLog returns the active document's full conversation log in
// chronological order, empty when no document is active.
func (s *Session) ActiveLog() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasActive {
		return nil
	}
	turns := s.logs[s.activeID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// AppendTurn records a successful exchange against a document. Appending to
// a deleted document is a no-op.
func (s *Session) AppendTurn(docID uuid.UUID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	if _, ok := s.documents[docID]; !ok {
		return
	}
	s.turnSeq++
	s.logs[docID] = append(s.logs[docID], Turn{
		Question: question,
		Answer:   answer,
		Seq:      s.turnSeq,
	})
}

// ClearLog drops a document's conversation history. Other documents' logs
// are untouched.
func (s *Session) ClearLog(docID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	if _, ok := s.documents[docID]; ok {
		s.logs[docID] = nil
	}
}

// Recent returns a document's last n turns in chronological order. An n
// larger than the log simply yields the whole log.
func (s *Session) Recent(docID uuid.UUID, n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastN(s.logs[docID], n)
}

// LogLen reports how many turns a document's log holds.
func (s *Session) LogLen(docID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs[docID])
}

// DocumentInfo is the listing view of a stored document.
type DocumentInfo struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Active   bool      `json:"active"`
	Turns    int       `json:"turns"`
}

// Documents lists stored documents in insertion order.
func (s *Session) Documents() []DocumentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })

	out := make([]DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentInfo{
			ID:       doc.ID,
			Filename: doc.Filename,
			Active:   s.hasActive && s.activeID == doc.ID,
			Turns:    len(s.logs[doc.ID]),
		})
	}
	return out
}

// Len reports how many documents the session holds.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

// Touched reports the last time the session was used.
func (s *Session) Touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func lastN(turns []Turn, n int) []Turn {
	if n < 0 {
		n = 0
	}
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
