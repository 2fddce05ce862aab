package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexygraph/docflow/internal/bootstrap"
	"github.com/lexygraph/docflow/internal/config"
	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/observability/logging"
)

// The sweeper re-enqueues documents stuck in QUEUED: the record was written
// but the first stage message was lost or never consumed. Publishing is
// at-least-once, so a duplicate message is harmless while a missing one
// strands the document forever.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("docflow-sweeper", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	interval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	age := time.Duration(cfg.SweepAgeSeconds) * time.Second
	slog.Info("sweeper_started", "interval", interval.String(), "age", age.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper_stopped")
			return
		case <-ticker.C:
			sweep(ctx, app, age, cfg.SweepBatchSize)
		}
	}
}

func sweep(ctx context.Context, app *bootstrap.App, age time.Duration, batchSize int) {
	stale, err := app.Store.ListStale(ctx, domain.StatusQueued, age, batchSize)
	if err != nil {
		slog.Error("list_stale_documents", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	requeued := 0
	for _, doc := range stale {
		stage, ok := domain.InitialStage(doc.ProcessingType)
		if !ok {
			slog.Warn("stale_document_without_stage",
				"document_id", doc.ID, "processing_type", string(doc.ProcessingType))
			continue
		}
		msg := domain.StageMessage{
			DocumentID:     doc.ID,
			UserID:         doc.UserID,
			StorageKey:     doc.StorageKey,
			MimeType:       doc.MimeType,
			ProcessingType: doc.ProcessingType,
			Attempt:        1,
			EnqueuedAt:     time.Now().UTC(),
		}
		if err := app.Queue.Publish(ctx, stage, msg); err != nil {
			slog.Error("requeue_stale_document", "document_id", doc.ID, "error", err)
			continue
		}
		requeued++
	}
	slog.Info("sweep_pass_done", "stale", len(stale), "requeued", requeued)
}
