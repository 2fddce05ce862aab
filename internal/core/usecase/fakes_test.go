package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
)

var errAny = errors.New("boom")

type fakeStore struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	createErr   error
	failedID    string
	failReason  string
	transitions [][3]string
	cas         func(id string, from, to domain.DocumentStatus) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*domain.Document{}}
}

func (s *fakeStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, userID, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", errAny)
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeStore) ListByCollection(_ context.Context, userID, collectionID string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Document
	for _, doc := range s.docs {
		if doc.UserID == userID && doc.CollectionID == collectionID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateMetadata(_ context.Context, userID, id string, edit domain.MetadataEdit) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return nil, domain.WrapError(domain.ErrNotFound, "update metadata", errAny)
	}
	if edit.Name != nil {
		doc.Name = *edit.Name
	}
	if edit.Description != nil {
		doc.Description = *edit.Description
	}
	if edit.Tags != nil {
		doc.Tags = *edit.Tags
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeStore) TransitionStatus(_ context.Context, id string, from, to domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cas != nil {
		if err := s.cas(id, from, to); err != nil {
			return err
		}
	}
	doc, ok := s.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "transition document status", errAny)
	}
	if doc.Status != from {
		return domain.WrapError(domain.ErrInvalidTransition, "transition document status", errAny)
	}
	doc.Status = to
	s.transitions = append(s.transitions, [3]string{id, string(from), string(to)})
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedID = id
	s.failReason = reason
	if doc, ok := s.docs[id]; ok {
		doc.Status = domain.StatusFailed
		doc.Error = reason
	}
	return nil
}

func (s *fakeStore) Delete(_ context.Context, userID, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return nil, domain.WrapError(domain.ErrNotFound, "delete document", errAny)
	}
	delete(s.docs, id)
	return doc, nil
}

func (s *fakeStore) ListStale(_ context.Context, status domain.DocumentStatus, _ time.Duration, _ int) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Document
	for _, doc := range s.docs {
		if doc.Status == status {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saveErr error
	deleted []string
	url     string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = content
	return nil
}

func (s *fakeBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.blobs[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open blob", errAny)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) PresignURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.url != "" {
		return s.url, nil
	}
	return "http://localhost/files/" + key, nil
}

type publishedMessage struct {
	stage domain.Stage
	msg   domain.StageMessage
}

type fakeQueue struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (q *fakeQueue) Publish(_ context.Context, stage domain.Stage, msg domain.StageMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, publishedMessage{stage: stage, msg: msg})
	return nil
}

type fakeProber struct {
	pages int
	err   error
}

func (p *fakeProber) CountPages(context.Context, string, string) (int, error) {
	return p.pages, p.err
}

type fakeCaller struct {
	calls []struct {
		url     string
		payload map[string]any
		headers map[string]string
	}
	body map[string]any
	err  error
}

func (c *fakeCaller) Call(_ context.Context, url string, payload map[string]any, headers map[string]string) (map[string]any, error) {
	c.calls = append(c.calls, struct {
		url     string
		payload map[string]any
		headers map[string]string
	}{url, payload, headers})
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}
