package ports

import (
	"context"
	"io"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
)

// DocumentStore persists document records. Status moves only through
// TransitionStatus/MarkFailed so the store's conditional-write support backs
// the state machine guard.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, userID, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, userID, collectionID string) ([]domain.Document, error)
	UpdateMetadata(ctx context.Context, userID, id string, edit domain.MetadataEdit) (*domain.Document, error)
	// TransitionStatus performs a compare-and-set: the write succeeds only if
	// the persisted status equals from. A mismatch is ErrInvalidTransition.
	TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus) error
	// MarkFailed moves any non-terminal document to FAILED with a reason.
	MarkFailed(ctx context.Context, id, reason string) error
	Delete(ctx context.Context, userID, id string) (*domain.Document, error)
	// ListStale returns documents sitting in the given status longer than age.
	ListStale(ctx context.Context, status domain.DocumentStatus, age time.Duration, limit int) ([]domain.Document, error)
}

// ObjectStorage stores raw document content and thumbnails by key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// StageQueue enqueues stage messages. Delivery is at-least-once; consumers
// are external workers and must be idempotent.
type StageQueue interface {
	Publish(ctx context.Context, stage domain.Stage, msg domain.StageMessage) error
}

// AgentCaller issues one downstream agent call and returns the decoded JSON
// body. Implementations own the per-attempt timeout and transient-only retry
// policy; terminal errors arrive mapped to the domain taxonomy.
type AgentCaller interface {
	Call(ctx context.Context, url string, payload map[string]any, headers map[string]string) (map[string]any, error)
}

// IdentityVerifier resolves an opaque bearer token to a user id.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// PageCounter probes stored content for a page count. Best-effort: callers
// treat failures as "unknown", never as submission failures.
type PageCounter interface {
	CountPages(ctx context.Context, key, mimeType string) (int, error)
}
