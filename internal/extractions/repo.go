package extractions

import (
	"context"
	"time"
)

// Repo defines persistence operations for extraction records. Every
// mutation is a single atomic record-level update; the terminal-status
// writes are conditional on the record still being in processing so the
// status machine stays monotonic and a write racing a delete is a no-op.
type Repo interface {
	Create(ctx context.Context, e Extraction) error
	GetByID(ctx context.Context, id string) (Extraction, error)

	// ListVisible returns records owned by or shared with the user,
	// newest first. ListAll is the unfiltered variant for elevated roles.
	ListVisible(ctx context.Context, userID string) ([]Extraction, error)
	ListAll(ctx context.Context) ([]Extraction, error)

	// MarkCompleted and MarkFailed settle the background task. They only
	// apply while the record is still processing; otherwise they silently
	// do nothing.
	MarkCompleted(ctx context.Context, id, summary, originalText string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error

	UpdateEditable(ctx context.Context, id, fileName, summary string, at time.Time) error
	SetSharedWith(ctx context.Context, id string, sharedWith []string, at time.Time) error
	SetOwner(ctx context.Context, id, ownerID string, sharedWith []string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
