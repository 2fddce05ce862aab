package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
)

func TestUpdateMetadataRejectsEmptyEdit(t *testing.T) {
	uc := NewManageDocumentUseCase(newFakeStore(), newFakeBlobStore(), 0)

	_, err := uc.UpdateMetadata(context.Background(), "user-1", "doc-1", domain.MetadataEdit{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input class, got %v", err)
	}
}

func TestUpdateMetadataRejectsEmptyName(t *testing.T) {
	uc := NewManageDocumentUseCase(newFakeStore(), newFakeBlobStore(), 0)
	empty := ""

	_, err := uc.UpdateMetadata(context.Background(), "user-1", "doc-1", domain.MetadataEdit{Name: &empty})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input class, got %v", err)
	}
}

func TestUpdateMetadataNeverTouchesStatus(t *testing.T) {
	store := newFakeStore()
	store.docs["doc-1"] = &domain.Document{ID: "doc-1", UserID: "user-1", Name: "a", Status: domain.StatusParsing}
	uc := NewManageDocumentUseCase(store, newFakeBlobStore(), 0)

	name := "renamed.pdf"
	doc, err := uc.UpdateMetadata(context.Background(), "user-1", "doc-1", domain.MetadataEdit{Name: &name})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if doc.Name != "renamed.pdf" {
		t.Fatalf("expected rename applied, got %q", doc.Name)
	}
	if doc.Status != domain.StatusParsing {
		t.Fatalf("metadata edit must not move status, got %s", doc.Status)
	}
}

func TestDeleteRemovesRecordAndBlob(t *testing.T) {
	store := newFakeStore()
	blobs := newFakeBlobStore()
	store.docs["doc-1"] = &domain.Document{ID: "doc-1", UserID: "user-1", StorageKey: "doc-1_a.pdf"}
	blobs.blobs["doc-1_a.pdf"] = []byte("x")
	uc := NewManageDocumentUseCase(store, blobs, 0)

	if err := uc.Delete(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.docs) != 0 {
		t.Fatalf("record must be gone")
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "doc-1_a.pdf" {
		t.Fatalf("expected blob cleanup, got %v", blobs.deleted)
	}
}

func TestDeleteScopedToOwner(t *testing.T) {
	store := newFakeStore()
	store.docs["doc-1"] = &domain.Document{ID: "doc-1", UserID: "user-1"}
	uc := NewManageDocumentUseCase(store, newFakeBlobStore(), 0)

	err := uc.Delete(context.Background(), "user-2", "doc-1")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for foreign user, got %v", err)
	}
	if len(store.docs) != 1 {
		t.Fatalf("foreign user must not delete the record")
	}
}

func TestListByCollectionRequiresCollectionID(t *testing.T) {
	uc := NewManageDocumentUseCase(newFakeStore(), newFakeBlobStore(), 0)

	_, err := uc.ListByCollection(context.Background(), "user-1", "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input class, got %v", err)
	}
}

func TestDownloadURLUsesStorageKey(t *testing.T) {
	store := newFakeStore()
	store.docs["doc-1"] = &domain.Document{ID: "doc-1", UserID: "user-1", StorageKey: "doc-1_a.pdf"}
	uc := NewManageDocumentUseCase(store, newFakeBlobStore(), 5*time.Minute)

	url, err := uc.DownloadURL(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if !strings.Contains(url, "doc-1_a.pdf") {
		t.Fatalf("expected url keyed by storage key, got %q", url)
	}
}
