package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
)

// PipelineSignalUseCase applies worker stage-completion signals to the
// document state machine. Stage queues deliver at least once, so the same
// signal can arrive twice; the fromStatus compare-and-set makes the second
// application fail instead of corrupting state.
type PipelineSignalUseCase struct {
	store ports.DocumentStore
}

func NewPipelineSignalUseCase(store ports.DocumentStore) *PipelineSignalUseCase {
	return &PipelineSignalUseCase{store: store}
}

func (uc *PipelineSignalUseCase) Advance(ctx context.Context, id string, from, to domain.DocumentStatus) error {
	if !domain.KnownStatus(from) || !domain.KnownStatus(to) {
		return domain.WrapError(domain.ErrInvalidInput, "advance document",
			fmt.Errorf("unknown status in %s -> %s", from, to))
	}
	if from.IsTerminal() {
		// Reported, not fatal: a late or duplicate signal against a settled
		// document is an anomaly worth seeing in logs.
		slog.Warn("transition_attempt_on_terminal_document",
			"document_id", id, "from", string(from), "to", string(to))
		return domain.WrapError(domain.ErrInvalidTransition, "advance document",
			fmt.Errorf("document is terminal in %s", from))
	}
	if !domain.CanAdvance(from, to) {
		return domain.WrapError(domain.ErrInvalidTransition, "advance document",
			fmt.Errorf("edge %s -> %s is not in the transition graph", from, to))
	}

	if err := uc.store.TransitionStatus(ctx, id, from, to); err != nil {
		if domain.IsKind(err, domain.ErrInvalidTransition) {
			slog.Warn("stale_transition_signal",
				"document_id", id, "from", string(from), "to", string(to))
		}
		return err
	}
	return nil
}

func (uc *PipelineSignalUseCase) Fail(ctx context.Context, id, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "processing failed"
	}
	return uc.store.MarkFailed(ctx, id, reason)
}
