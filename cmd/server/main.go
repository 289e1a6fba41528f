package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cramlabs/cramd/internal/answer"
	"github.com/cramlabs/cramd/internal/api"
	"github.com/cramlabs/cramd/internal/config"
	"github.com/cramlabs/cramd/internal/extract"
	"github.com/cramlabs/cramd/internal/llm"
	"github.com/cramlabs/cramd/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	stats := llm.NewStats(time.Hour)
	backend := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMRequestTimeout, stats)

	var ocr *extract.OCRClient
	if cfg.OCRURL != "" {
		ocr = extract.NewOCRClient(cfg.OCRURL)
	}
	extractor := extract.NewService(ocr)

	// Decide backend readiness once at startup. An unready backend is not
	// fatal: uploads still work and questions get a fixed diagnostic.
	engine := answer.NewEngine(backend, answer.Config{
		APIKey:          cfg.LLMAPIKey,
		PreferredModels: cfg.LLMPreferredModels,
		MaxAnswerTokens: cfg.MaxAnswerTokens,
		Temperature:     cfg.Temperature,
		HistoryWindow:   cfg.HistoryWindow,
	}, log)
	validateCtx, validateCancel := context.WithTimeout(ctx, cfg.LLMRequestTimeout)
	engine.Validate(validateCtx)
	validateCancel()

	// Session registry with idle eviction.
	sessions := session.NewManager(cfg.SessionTTL)
	go sessions.Sweep(ctx, 5*time.Minute)

	// Initialize HTTP server.
	srv := api.NewServer(sessions, extractor, engine, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		backend.Close()
		if ocr != nil {
			ocr.Close()
		}
	}()

	log.Info("starting cramd", "port", cfg.Port, "backend", engine.State().String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
