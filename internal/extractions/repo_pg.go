package extractions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. The collaborator set is stored as
// a JSONB array so membership checks can use the GIN index.
type PGRepo struct {
	DB *sql.DB
}

const extractionColumns = `id, owner_id, status, file_name, document_type, summary, original_text, storage_key, shared_with, created_at, updated_at`

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, e Extraction) error {
	const query = `
INSERT INTO extractions (id, owner_id, status, file_name, document_type, summary, original_text, storage_key, shared_with, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	shared, err := marshalSharedWith(e.SharedWith)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		e.ID,
		e.OwnerID,
		e.Status,
		e.FileName,
		e.DocumentType,
		nullableString(e.Summary),
		nullableString(e.OriginalText),
		nullableString(e.StorageKey),
		shared,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return err
}

// GetByID returns a record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Extraction, error) {
	query := fmt.Sprintf(`SELECT %s FROM extractions WHERE id = $1 LIMIT 1`, extractionColumns)
	return scanExtraction(r.DB.QueryRowContext(ctx, query, id))
}

// ListVisible returns records owned by or shared with the user, newest first.
func (r *PGRepo) ListVisible(ctx context.Context, userID string) ([]Extraction, error) {
	query := fmt.Sprintf(`
SELECT %s FROM extractions
WHERE owner_id = $1 OR shared_with @> jsonb_build_array($1::text)
ORDER BY created_at DESC, id`, extractionColumns)
	return r.queryList(ctx, query, userID)
}

// ListAll returns every record, newest first.
func (r *PGRepo) ListAll(ctx context.Context) ([]Extraction, error) {
	query := fmt.Sprintf(`SELECT %s FROM extractions ORDER BY created_at DESC, id`, extractionColumns)
	return r.queryList(ctx, query)
}

// MarkCompleted settles a processing record as completed. The status guard
// makes the write a no-op for settled or deleted records.
func (r *PGRepo) MarkCompleted(ctx context.Context, id, summary, originalText string, at time.Time) error {
	const query = `
UPDATE extractions
SET status = $1, summary = $2, original_text = $3, updated_at = $4
WHERE id = $5 AND status = $6`
	_, err := r.DB.ExecContext(ctx, query, StatusCompleted, summary, originalText, at, id, StatusProcessing)
	return err
}

// MarkFailed settles a processing record as failed, with the same guard.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE extractions
SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4`
	_, err := r.DB.ExecContext(ctx, query, StatusFailed, at, id, StatusProcessing)
	return err
}

// UpdateEditable sets the user-editable fields.
func (r *PGRepo) UpdateEditable(ctx context.Context, id, fileName, summary string, at time.Time) error {
	const query = `
UPDATE extractions
SET file_name = $1, summary = $2, updated_at = $3
WHERE id = $4`
	return r.execOne(ctx, query, fileName, nullableString(summary), at, id)
}

// SetSharedWith replaces the collaborator set.
func (r *PGRepo) SetSharedWith(ctx context.Context, id string, sharedWith []string, at time.Time) error {
	shared, err := marshalSharedWith(sharedWith)
	if err != nil {
		return err
	}
	const query = `
UPDATE extractions
SET shared_with = $1, updated_at = $2
WHERE id = $3`
	return r.execOne(ctx, query, shared, at, id)
}

// SetOwner transfers ownership and replaces the collaborator set.
func (r *PGRepo) SetOwner(ctx context.Context, id, ownerID string, sharedWith []string, at time.Time) error {
	shared, err := marshalSharedWith(sharedWith)
	if err != nil {
		return err
	}
	const query = `
UPDATE extractions
SET owner_id = $1, shared_with = $2, updated_at = $3
WHERE id = $4`
	return r.execOne(ctx, query, ownerID, shared, at, id)
}

// Delete removes a record.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM extractions WHERE id = $1`, id)
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) queryList(ctx context.Context, query string, args ...any) ([]Extraction, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Extraction, 0)
	for rows.Next() {
		e, err := scanExtractionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row *sql.Row) (Extraction, error) {
	e, err := scanExtractionRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Extraction{}, ErrNotFound
		}
		return Extraction{}, err
	}
	return e, nil
}

func scanExtractionRows(row rowScanner) (Extraction, error) {
	var e Extraction
	var summary sql.NullString
	var originalText sql.NullString
	var storageKey sql.NullString
	var shared []byte
	if err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.Status,
		&e.FileName,
		&e.DocumentType,
		&summary,
		&originalText,
		&storageKey,
		&shared,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return Extraction{}, err
	}
	if summary.Valid {
		e.Summary = summary.String
	}
	if originalText.Valid {
		e.OriginalText = originalText.String
	}
	if storageKey.Valid {
		e.StorageKey = storageKey.String
	}
	if len(shared) > 0 {
		if err := json.Unmarshal(shared, &e.SharedWith); err != nil {
			return Extraction{}, fmt.Errorf("decode shared_with: %w", err)
		}
	}
	return e, nil
}

func marshalSharedWith(sharedWith []string) ([]byte, error) {
	if sharedWith == nil {
		sharedWith = []string{}
	}
	return json.Marshal(sharedWith)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
