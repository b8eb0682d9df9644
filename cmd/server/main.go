package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/txxxxz/autonote/internal/api"
	"github.com/txxxxz/autonote/internal/config"
	"github.com/txxxxz/autonote/internal/export"
	"github.com/txxxxz/autonote/internal/llm"
	"github.com/txxxxz/autonote/internal/notes"
	"github.com/txxxxz/autonote/internal/outline"
	"github.com/txxxxz/autonote/internal/parser"
	"github.com/txxxxz/autonote/internal/pipeline"
	"github.com/txxxxz/autonote/internal/qa"
	"github.com/txxxxz/autonote/internal/repository"
	"github.com/txxxxz/autonote/internal/vectorstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	parser.PdftotextFallback = cfg.PDFFallbackPdftotext

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := repository.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Error("could not open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	client := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.EmbedModel, log)
	vectors := vectorstore.NewStore(cfg.VectorRoot, client, log)
	generator := notes.NewGenerator(client, vectors, cfg.MaxWorkers, log)
	builder := outline.NewBuilder(log)
	builder.SimilarityThreshold = cfg.SimilarityThreshold
	p := pipeline.New(repo, builder, client, generator, log)
	p.SemanticOutline = cfg.SemanticOutline
	tasks := pipeline.NewTaskManager(cfg.TaskTTL)
	qaSvc := qa.NewService(client, client, log)
	exports := export.NewService(cfg.ExportRoot)

	// Evict finished tasks in the background.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tasks.Cleanup()
			}
		}
	}()

	srv := api.NewServer(p, tasks, repo, vectors, qaSvc, exports, log, cfg)

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
	}()

	log.Info("starting autonote", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
