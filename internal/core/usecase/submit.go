package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
)

const batchSubmitConcurrency = 4

// SubmitDocumentUseCase is the pipeline dispatcher: it persists the document
// in QUEUED before any message exists, then enqueues the first stage message.
// A worker can therefore never pick up a message for a record that does not
// exist yet.
type SubmitDocumentUseCase struct {
	store   ports.DocumentStore
	storage ports.ObjectStorage
	queue   ports.StageQueue
	prober  ports.PageCounter
	now     func() time.Time
}

func NewSubmitDocumentUseCase(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	queue ports.StageQueue,
	prober ports.PageCounter,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		store:   store,
		storage: storage,
		queue:   queue,
		prober:  prober,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, cmd ports.SubmitCommand) (*domain.Document, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document", fmt.Errorf("user id is required"))
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document", fmt.Errorf("document name is required"))
	}
	if !domain.KnownProcessingType(cmd.ProcessingType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document",
			fmt.Errorf("unknown processing type %q", cmd.ProcessingType))
	}
	stage, ok := domain.InitialStage(cmd.ProcessingType)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document",
			fmt.Errorf("no stage mapped for processing type %q", cmd.ProcessingType))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(cmd.Name))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, cmd.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	pageCount := 0
	if uc.prober != nil {
		count, err := uc.prober.CountPages(ctx, storageKey, cmd.MimeType)
		if err != nil {
			slog.Debug("page_count_probe_failed", "storage_key", storageKey, "error", err)
		} else {
			pageCount = count
		}
	}

	doc := &domain.Document{
		ID:             id,
		UserID:         cmd.UserID,
		Name:           cmd.Name,
		Description:    cmd.Description,
		Size:           cmd.Size,
		MimeType:       cmd.MimeType,
		ProcessingType: cmd.ProcessingType,
		CollectionID:   cmd.CollectionID,
		Tags:           normalizeTags(cmd.Tags),
		PageCount:      pageCount,
		Status:         domain.StatusQueued,
		StorageKey:     storageKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	msg := domain.StageMessage{
		DocumentID:     doc.ID,
		UserID:         doc.UserID,
		StorageKey:     doc.StorageKey,
		MimeType:       doc.MimeType,
		ProcessingType: doc.ProcessingType,
		Attempt:        0,
		EnqueuedAt:     now,
	}
	if err := uc.queue.Publish(ctx, stage, msg); err != nil {
		// The queue adapter already retried within its bound. Never leave the
		// record silently stuck in QUEUED with no in-flight message.
		reason := fmt.Sprintf("enqueue to %s stage failed: %v", stage, err)
		if failErr := uc.store.MarkFailed(ctx, doc.ID, reason); failErr != nil {
			slog.Error("mark_failed_after_enqueue_failure",
				"document_id", doc.ID, "stage", string(stage), "error", failErr)
		}
		return nil, domain.WrapError(domain.ErrTemporary, "enqueue stage message", err)
	}

	return doc, nil
}

func (uc *SubmitDocumentUseCase) SubmitBatch(ctx context.Context, cmds []ports.SubmitCommand) []ports.BatchOutcome {
	outcomes := make([]ports.BatchOutcome, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSubmitConcurrency)
	for i, cmd := range cmds {
		g.Go(func() error {
			doc, err := uc.Submit(gctx, cmd)
			outcome := ports.BatchOutcome{Name: cmd.Name, Document: doc}
			if err != nil {
				outcome.Err = err.Error()
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
