package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
)

// ManageDocumentUseCase covers the non-pipeline document operations:
// metadata edits (which never touch status), deletion with storage cleanup,
// collection listing and presigned downloads.
type ManageDocumentUseCase struct {
	store      ports.DocumentStore
	storage    ports.ObjectStorage
	presignTTL time.Duration
}

func NewManageDocumentUseCase(store ports.DocumentStore, storage ports.ObjectStorage, presignTTL time.Duration) *ManageDocumentUseCase {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &ManageDocumentUseCase{
		store:      store,
		storage:    storage,
		presignTTL: presignTTL,
	}
}

func (uc *ManageDocumentUseCase) UpdateMetadata(ctx context.Context, userID, id string, edit domain.MetadataEdit) (*domain.Document, error) {
	if edit.Name == nil && edit.Description == nil && edit.Tags == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update metadata",
			fmt.Errorf("no editable fields provided"))
	}
	if edit.Name != nil && *edit.Name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update metadata",
			fmt.Errorf("document name cannot be empty"))
	}
	return uc.store.UpdateMetadata(ctx, userID, id, edit)
}

func (uc *ManageDocumentUseCase) Delete(ctx context.Context, userID, id string) error {
	doc, err := uc.store.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	// Record is gone; backing content cleanup is best-effort.
	if err := uc.storage.Delete(ctx, doc.StorageKey); err != nil {
		slog.Warn("delete_storage_object", "document_id", id, "storage_key", doc.StorageKey, "error", err)
	}
	return nil
}

func (uc *ManageDocumentUseCase) ListByCollection(ctx context.Context, userID, collectionID string) ([]domain.Document, error) {
	if collectionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list collection",
			fmt.Errorf("collection id is required"))
	}
	return uc.store.ListByCollection(ctx, userID, collectionID)
}

func (uc *ManageDocumentUseCase) DownloadURL(ctx context.Context, userID, id string) (string, error) {
	doc, err := uc.store.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	url, err := uc.storage.PresignURL(ctx, doc.StorageKey, uc.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign download url: %w", err)
	}
	return url, nil
}
