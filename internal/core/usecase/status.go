package usecase

import (
	"context"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
)

// stepEstimate is the flat per-step duration used for completion estimates.
// A presentation heuristic, not a promise.
const stepEstimate = 30 * time.Second

// DocumentReadUseCase serves document metadata and the derived status view.
type DocumentReadUseCase struct {
	store ports.DocumentStore
	now   func() time.Time
}

func NewDocumentReadUseCase(store ports.DocumentStore) *DocumentReadUseCase {
	return &DocumentReadUseCase{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DocumentReadUseCase) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	return uc.store.GetByID(ctx, userID, id)
}

func (uc *DocumentReadUseCase) Status(ctx context.Context, userID, id string) (*domain.ProcessingStatusView, error) {
	doc, err := uc.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	view := &domain.ProcessingStatusView{
		DocumentID:     doc.ID,
		Status:         doc.Status,
		CurrentStep:    string(doc.Status),
		Progress:       domain.Progress(doc.Status),
		CompletedSteps: domain.CompletedSteps(doc.Status),
		ElapsedTime:    int64(now.Sub(doc.CreatedAt).Seconds()),
	}
	if doc.Status == domain.StatusFailed {
		view.Error = doc.Error
	}
	if remaining := domain.RemainingSteps(doc.Status); remaining > 0 {
		eta := doc.UpdatedAt.Add(time.Duration(remaining) * stepEstimate)
		view.EstimatedCompletionTime = &eta
	}
	return view, nil
}
