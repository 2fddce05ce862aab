package ports

import (
	"context"
	"io"

	"github.com/lexygraph/docflow/internal/core/domain"
)

// SubmitCommand is one document submission.
type SubmitCommand struct {
	UserID         string
	Name           string
	Description    string
	MimeType       string
	CollectionID   string
	Tags           []string
	ProcessingType domain.ProcessingType
	Size           int64
	Body           io.Reader
}

// BatchOutcome reports one item of a batch submission.
type BatchOutcome struct {
	Name     string           `json:"name"`
	Document *domain.Document `json:"document,omitempty"`
	Err      string           `json:"error,omitempty"`
}

// DocumentIngestor is the inbound contract for submission dispatch.
type DocumentIngestor interface {
	Submit(ctx context.Context, cmd SubmitCommand) (*domain.Document, error)
	SubmitBatch(ctx context.Context, cmds []SubmitCommand) []BatchOutcome
}

// DocumentReader is the inbound read model for metadata and derived status.
type DocumentReader interface {
	GetByID(ctx context.Context, userID, id string) (*domain.Document, error)
	Status(ctx context.Context, userID, id string) (*domain.ProcessingStatusView, error)
}

// DocumentManager covers metadata edits, deletion and collection listing.
type DocumentManager interface {
	UpdateMetadata(ctx context.Context, userID, id string, edit domain.MetadataEdit) (*domain.Document, error)
	Delete(ctx context.Context, userID, id string) error
	ListByCollection(ctx context.Context, userID, collectionID string) ([]domain.Document, error)
	DownloadURL(ctx context.Context, userID, id string) (string, error)
}

// PipelineSignaler applies worker stage-completion signals.
type PipelineSignaler interface {
	Advance(ctx context.Context, id string, from, to domain.DocumentStatus) error
	Fail(ctx context.Context, id, reason string) error
}

// AgentRouter forwards a normalized request to a downstream agent.
type AgentRouter interface {
	Route(ctx context.Context, req domain.RouteRequest, fwd domain.ForwardContext) (*domain.RouteResult, error)
}
