package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving the raw bytes
// of uploaded documents.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
