package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-panel-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const changedPayload = "changed"

type documentRepo struct {
	db       DBTX
	notifier domain.Notifier
	now      func() time.Time
}

// NewDocumentRepository stores flat JSON documents grouped by collection and
// signals notifier after every successful write.
func NewDocumentRepository(db DBTX, notifier domain.Notifier) domain.DocumentStore {
	return &documentRepo{db: db, notifier: notifier, now: time.Now}
}

func (r *documentRepo) Add(ctx context.Context, collection string, fields domain.Fields) (string, error) {
	now := r.now().UTC()
	data, err := encodeFields(fields, now)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	query := `INSERT INTO documents (collection, id, data, created_at, updated_at)
              VALUES ($1, $2, $3::jsonb, $4, $4)`
	if _, err := r.db.Exec(ctx, query, collection, id, data, now); err != nil {
		return "", fmt.Errorf("insert document into %s: %w", collection, err)
	}

	r.changed(ctx, collection)
	return id, nil
}

func (r *documentRepo) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	query := `SELECT data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	doc := domain.Document{ID: id, Collection: collection}
	err := r.db.QueryRow(ctx, query, collection, id).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}

	if doc.Fields, err = decodeFields(raw); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) Update(ctx context.Context, collection, id string, fields domain.Fields) error {
	now := r.now().UTC()
	data, err := encodeFields(fields, now)
	if err != nil {
		return err
	}

	query := `UPDATE documents SET data = data || $3::jsonb, updated_at = $4
              WHERE collection = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, collection, id, data, now)
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	r.changed(ctx, collection)
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() > 0 {
		r.changed(ctx, collection)
	}
	return nil
}

const (
	listNaturalQuery = `SELECT id, data, created_at, updated_at FROM documents
              WHERE collection = $1 ORDER BY created_at, id`
	listFieldAscQuery = `SELECT id, data, created_at, updated_at FROM documents
              WHERE collection = $1 ORDER BY data->>$2 ASC NULLS LAST, created_at, id`
	listFieldDescQuery = `SELECT id, data, created_at, updated_at FROM documents
              WHERE collection = $1 ORDER BY data->>$2 DESC NULLS LAST, created_at DESC, id`
)

func (r *documentRepo) List(ctx context.Context, collection string, order domain.OrderBy) ([]domain.Document, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case order.Field == "":
		rows, err = r.db.Query(ctx, listNaturalQuery, collection)
	case order.Desc:
		rows, err = r.db.Query(ctx, listFieldDescQuery, collection, order.Field)
	default:
		rows, err = r.db.Query(ctx, listFieldAscQuery, collection, order.Field)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var raw []byte
		doc := domain.Document{Collection: collection}
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		if doc.Fields, err = decodeFields(raw); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (r *documentRepo) changed(ctx context.Context, collection string) {
	if r.notifier != nil {
		r.notifier.Publish(ctx, domain.CollectionTopic(collection), changedPayload)
	}
}

// encodeFields resolves server timestamps and returns the JSON text. Text
// (not bytes) keeps the ::jsonb cast working under the simple protocol.
func encodeFields(fields domain.Fields, now time.Time) (string, error) {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == domain.ServerTimestamp {
			resolved[k] = now.Format(domain.TimestampLayout)
			continue
		}
		resolved[k] = v
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("encode document fields: %w", err)
	}
	return string(raw), nil
}

func decodeFields(raw []byte) (domain.Fields, error) {
	fields := domain.Fields{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document fields: %w", err)
	}
	return fields, nil
}
