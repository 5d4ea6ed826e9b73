package extractions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo, used when no database
// is configured and throughout the test suite.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Extraction
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Extraction)}
}

// Create stores a new record.
func (r *MemoryRepo) Create(ctx context.Context, e Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[e.ID] = cloneExtraction(e)
	return nil
}

// GetByID returns a record by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[id]
	if !ok {
		return Extraction{}, ErrNotFound
	}
	return cloneExtraction(e), nil
}

// ListVisible returns records owned by or shared with the user, newest first.
func (r *MemoryRepo) ListVisible(ctx context.Context, userID string) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extraction, 0)
	for _, e := range r.data {
		if e.OwnerID == userID || e.SharedWithContains(userID) {
			out = append(out, cloneExtraction(e))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListAll returns every record, newest first.
func (r *MemoryRepo) ListAll(ctx context.Context) ([]Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extraction, 0, len(r.data))
	for _, e := range r.data {
		out = append(out, cloneExtraction(e))
	}
	sortNewestFirst(out)
	return out, nil
}

// MarkCompleted settles a processing record as completed. Missing or
// already-settled records are left untouched.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, id, summary, originalText string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok || e.Status != StatusProcessing {
		return nil
	}
	e.Status = StatusCompleted
	e.Summary = summary
	e.OriginalText = originalText
	e.UpdatedAt = at
	r.data[id] = e
	return nil
}

// MarkFailed settles a processing record as failed. Missing or
// already-settled records are left untouched.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok || e.Status != StatusProcessing {
		return nil
	}
	e.Status = StatusFailed
	e.UpdatedAt = at
	r.data[id] = e
	return nil
}

// UpdateEditable sets the user-editable fields.
func (r *MemoryRepo) UpdateEditable(ctx context.Context, id, fileName, summary string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	e.FileName = fileName
	e.Summary = summary
	e.UpdatedAt = at
	r.data[id] = e
	return nil
}

// SetSharedWith replaces the collaborator set.
func (r *MemoryRepo) SetSharedWith(ctx context.Context, id string, sharedWith []string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	e.SharedWith = append([]string(nil), sharedWith...)
	e.UpdatedAt = at
	r.data[id] = e
	return nil
}

// SetOwner transfers ownership and replaces the collaborator set.
func (r *MemoryRepo) SetOwner(ctx context.Context, id, ownerID string, sharedWith []string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	e.OwnerID = ownerID
	e.SharedWith = append([]string(nil), sharedWith...)
	e.UpdatedAt = at
	r.data[id] = e
	return nil
}

// Delete removes a record. Missing records return ErrNotFound.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func cloneExtraction(e Extraction) Extraction {
	e.SharedWith = append([]string(nil), e.SharedWith...)
	return e
}

func sortNewestFirst(list []Extraction) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

var _ Repo = (*MemoryRepo)(nil)
