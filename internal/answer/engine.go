// Package answer turns a question about the active document into a grounded
// backend call: the whole document text plus a short window of conversation
// history is sent on every question. There is deliberately no retrieval or
// chunking; the document must fit the backend's context window.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cramlabs/cramd/internal/llm"
	"github.com/cramlabs/cramd/internal/session"
)

// Connector is the narrow view of the chat backend the engine depends on.
type Connector interface {
	ListModels(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, model string, messages []llm.Message, maxTokens int, temperature float64) (string, error)
}

// State is the engine's readiness. Unready is terminal for the process:
// readiness is decided once at startup and a later failed call never
// demotes a Ready engine.
type State int

const (
	StateUninitialized State = iota
	StateValidating
	StateReady
	StateUnready
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateReady:
		return "ready"
	case StateUnready:
		return "unready"
	}
	return "uninitialized"
}

// ResultKind tags an answer outcome.
type ResultKind string

const (
	KindOK         ResultKind = "ok"
	KindUnready    ResultKind = "backend_unready"
	KindNoDocument ResultKind = "no_document"
	KindCallFailed ResultKind = "backend_call_failed"
	KindTimeout    ResultKind = "backend_timeout"
)

// Result is a tagged answer outcome. Text is always safe to display; Detail
// carries the underlying failure for logs.
type Result struct {
	Kind   ResultKind
	Text   string
	Detail string
}

func (r Result) OK() bool { return r.Kind == KindOK }

const (
	unreadyMessage    = "The answer service is not configured. Check the API key and restart."
	noDocumentMessage = "Please upload a document first."
	failedMessage     = "The answer service could not be reached. Please try again."
	timeoutMessage    = "The answer service took too long to respond. Please try again."
)

// Config bounds the engine's backend calls.
type Config struct {
	APIKey          string
	PreferredModels []string
	MaxAnswerTokens int
	Temperature     float64
	HistoryWindow   int
}

// Engine answers questions grounded on a session's active document.
type Engine struct {
	connector Connector
	cfg       Config
	log       *slog.Logger

	state State
	model string
}

func NewEngine(connector Connector, cfg Config, log *slog.Logger) *Engine {
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 500
	}
	// Zero is a valid temperature (greedy sampling); only negative values
	// fall back to the default.
	if cfg.Temperature < 0 {
		cfg.Temperature = 0.1
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 4
	}
	return &Engine{
		connector: connector,
		cfg:       cfg,
		log:       log,
		state:     StateUninitialized,
	}
}

// placeholderFragments are patterns people leave in checked-in config files.
// A key containing one is treated the same as no key at all.
var placeholderFragments = []string{"your_actual", "your-real", "your_api_key", "changeme"}

func isPlaceholderKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range placeholderFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Validate decides readiness once: credential sanity first (no network call
// for a missing or placeholder key), then model discovery. It never logs
// secret material.
func (e *Engine) Validate(ctx context.Context) State {
	e.state = StateValidating

	if e.cfg.APIKey == "" || isPlaceholderKey(e.cfg.APIKey) {
		e.log.Warn("backend credentials missing or placeholder; engine unready")
		e.state = StateUnready
		return e.state
	}

	models, err := e.connector.ListModels(ctx)
	if err != nil {
		e.log.Warn("model discovery failed; engine unready", "error", err)
		e.state = StateUnready
		return e.state
	}
	model := chooseModel(models, e.cfg.PreferredModels)
	if model == "" {
		e.log.Warn("backend reported no models; engine unready")
		e.state = StateUnready
		return e.state
	}

	e.model = model
	e.state = StateReady
	e.log.Info("answer engine ready", "model", model)
	return e.state
}

// chooseModel picks the first preferred model present, else the first listed.
func chooseModel(models, preferred []string) string {
	if len(models) == 0 {
		return ""
	}
	for _, want := range preferred {
		for _, have := range models {
			if have == want {
				return have
			}
		}
	}
	return models[0]
}

// State reports the engine's readiness.
func (e *Engine) State() State { return e.state }

// Model reports the chosen model id, empty until Ready.
func (e *Engine) Model() string { return e.model }

// Answer checks readiness and the active document, then runs one grounded
// completion. Only a successful exchange is recorded in the
// document's conversation log; failures leave it untouched.
func (e *Engine) Answer(ctx context.Context, sess *session.Session, question string) Result {
	if e.state != StateReady {
		return Result{Kind: KindUnready, Text: unreadyMessage}
	}

	active, ok := sess.Active(e.cfg.HistoryWindow)
	if !ok {
		return Result{Kind: KindNoDocument, Text: noDocumentMessage}
	}

	messages := BuildMessages(active.Text, active.Recent, question)
	text, err := e.connector.Complete(ctx, e.model, messages, e.cfg.MaxAnswerTokens, e.cfg.Temperature)
	if err != nil {
		var ce *llm.CallError
		if errors.As(err, &ce) && ce.Timeout {
			return Result{Kind: KindTimeout, Text: timeoutMessage, Detail: err.Error()}
		}
		return Result{Kind: KindCallFailed, Text: failedMessage, Detail: err.Error()}
	}

	sess.AppendTurn(active.DocID, question, text)
	return Result{Kind: KindOK, Text: text}
}
