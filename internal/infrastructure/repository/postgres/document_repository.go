package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lexygraph/docflow/internal/core/domain"
)

// DocumentRepository is the metadata store. Status moves only through
// conditional writes so duplicate or out-of-order worker signals cannot
// regress a document.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/sweeper startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	size_bytes BIGINT NOT NULL DEFAULT 0,
	mime_type TEXT NOT NULL,
	processing_type TEXT NOT NULL,
	collection_id TEXT,
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	has_summary BOOLEAN NOT NULL DEFAULT FALSE,
	has_entities BOOLEAN NOT NULL DEFAULT FALSE,
	page_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	storage_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_user_collection ON documents(user_id, collection_id);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, user_id, name, description, size_bytes, mime_type, processing_type, collection_id, tags, has_summary, has_entities, page_count, status, error_message, storage_key, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, user_id, name, description, size_bytes, mime_type, processing_type, collection_id, tags, has_summary, has_entities, page_count, status, error_message, storage_key, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`,
		doc.ID, doc.UserID, doc.Name, doc.Description, doc.Size, doc.MimeType,
		string(doc.ProcessingType), nullableString(doc.CollectionID), tagsJSON,
		doc.HasSummary, doc.HasEntities, doc.PageCount, string(doc.Status),
		doc.Error, doc.StorageKey, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1 AND user_id = $2
`, id, userID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByCollection(ctx context.Context, userID, collectionID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE user_id = $1 AND collection_id = $2
ORDER BY created_at DESC
`, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query collection documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateMetadata(ctx context.Context, userID, id string, edit domain.MetadataEdit) (*domain.Document, error) {
	var tagsJSON any
	if edit.Tags != nil {
		data, err := json.Marshal(*edit.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		tagsJSON = data
	}

	row := r.db.QueryRowContext(ctx, `
UPDATE documents
SET name = COALESCE($3, name),
    description = COALESCE($4, description),
    tags = COALESCE($5, tags),
    updated_at = $6
WHERE id = $1 AND user_id = $2
RETURNING `+documentColumns+`
`, id, userID, nullablePtr(edit.Name), nullablePtr(edit.Description), tagsJSON, time.Now().UTC())

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "update metadata", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("update document metadata: %w", err)
	}
	return doc, nil
}

// TransitionStatus is the optimistic-concurrency guard: the write lands only
// when the persisted status still equals from.
func (r *DocumentRepository) TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition document status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrInvalidTransition, "transition document status",
		fmt.Errorf("document %s is in %s, not %s", id, current, from))
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status NOT IN ($5, $6)
`, id, string(domain.StatusFailed), reason, time.Now().UTC(),
		string(domain.StatusCompleted), string(domain.StatusFailed))
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark failed rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrInvalidTransition, "mark document failed",
		fmt.Errorf("document %s is terminal in %s", id, current))
}

func (r *DocumentRepository) Delete(ctx context.Context, userID, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
DELETE FROM documents
WHERE id = $1 AND user_id = $2
RETURNING `+documentColumns+`
`, id, userID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "delete document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("delete document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListStale(ctx context.Context, status domain.DocumentStatus, age time.Duration, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().UTC().Add(-age)

	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at ASC
LIMIT $3
`, string(status), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) currentStatus(ctx context.Context, id string) (domain.DocumentStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrNotFound, "get document status", fmt.Errorf("id=%s", id))
		}
		return "", fmt.Errorf("read current status: %w", err)
	}
	return domain.DocumentStatus(status), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var tagsRaw []byte
	var collectionID sql.NullString
	var processingType, status string

	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Name, &doc.Description, &doc.Size, &doc.MimeType,
		&processingType, &collectionID, &tagsRaw, &doc.HasSummary, &doc.HasEntities,
		&doc.PageCount, &status, &doc.Error, &doc.StorageKey, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	doc.ProcessingType = domain.ProcessingType(processingType)
	doc.Status = domain.DocumentStatus(status)
	if collectionID.Valid {
		doc.CollectionID = collectionID.String
	}
	return &doc, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
