package extractions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docvault-backend/internal/extract"
	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/metrics"
	"docvault-backend/internal/shared/storage/object"
	"docvault-backend/internal/shared/telemetry"
	"docvault-backend/internal/shared/util"
	"docvault-backend/internal/summarize"
	"docvault-backend/internal/users"
)

const (
	maxFileNameLen = 255
	maxSummaryLen  = 1000

	defaultExtractTimeout = 2 * time.Minute
)

// UserDirectory resolves user IDs, used to validate sharing targets.
type UserDirectory interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Service contains business logic for extraction records: the ingestion
// pipeline and every authorized operation over persisted records.
// Extract defaults to extract.Text and is overridable in tests.
type Service struct {
	Repo           Repo
	Users          UserDirectory
	Store          object.ObjectStore
	Metrics        *metrics.Metrics
	ExtractTimeout time.Duration
	Extract        func(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Upload validates the request, persists a processing record, stores the
// original bytes, and dispatches the background extraction task. It returns
// as soon as the record is durable; completion is observed by polling.
func (s *Service) Upload(ctx context.Context, p auth.Principal, fileName, mimeType string, data []byte) (Extraction, error) {
	if !extract.Supported(mimeType) {
		return Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil || len(sanitized) > maxFileNameLen {
		return Extraction{}, fmt.Errorf("%w: file name must be 1-255 characters", ErrInvalidInput)
	}

	var storageKey string
	if s.Store != nil {
		key, _, err := s.Store.Save(ctx, p.ID, sanitized, bytes.NewReader(data))
		if err != nil {
			return Extraction{}, fmt.Errorf("store original: %w", err)
		}
		storageKey = key
	}

	now := time.Now().UTC()
	e := Extraction{
		ID:           uuid.NewString(),
		OwnerID:      p.ID,
		Status:       StatusProcessing,
		FileName:     sanitized,
		DocumentType: mimeType,
		StorageKey:   storageKey,
		SharedWith:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, e); err != nil {
		// The original was stored before the insert; do not orphan it.
		if s.Store != nil && storageKey != "" {
			if derr := s.Store.Delete(ctx, storageKey); derr != nil {
				telemetry.Warn("extraction.orphan_object", map[string]any{
					"storage_key": storageKey,
					"err":         derr.Error(),
				})
			}
		}
		return Extraction{}, err
	}

	if s.Metrics != nil {
		s.Metrics.IncExtractionStarted()
	}
	go s.processAsync(backgroundWithRequestID(ctx), e.ID, data, mimeType)

	return e, nil
}

// processAsync runs the extraction and summarization for one record and
// settles its terminal status. Every path through this function ends in a
// status write; errors are logged, never propagated.
func (s *Service) processAsync(ctx context.Context, id string, data []byte, mimeType string) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.settleFailed(ctx, id, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	timeout := s.ExtractTimeout
	if timeout <= 0 {
		timeout = defaultExtractTimeout
	}
	workCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := s.runExtract(workCtx, data, mimeType)
	if err != nil {
		s.settleFailed(ctx, id, err, startedAt)
		return
	}

	summary := clampSummary(summarize.Summarize(text))

	completedAt := time.Now().UTC()
	// Terminal writes use a fresh context: the work context may already be
	// past its deadline and the status must be settled regardless.
	if err := s.Repo.MarkCompleted(context.Background(), id, summary, text, completedAt); err != nil {
		s.settleFailed(ctx, id, fmt.Errorf("persist completion: %w", err), startedAt)
		return
	}

	if s.Metrics != nil {
		s.Metrics.IncExtractionCompleted()
		s.Metrics.ObserveExtractionDuration(completedAt.Sub(startedAt))
	}
	telemetry.Info("extraction.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"extraction_id":     id,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})
}

type extractResult struct {
	text string
	err  error
}

// runExtract runs the extractor in its own goroutine so a hanging parse
// cannot outlive the execution budget. On timeout the goroutine is
// abandoned and the record settles as failed.
func (s *Service) runExtract(ctx context.Context, data []byte, mimeType string) (string, error) {
	extractFn := s.Extract
	if extractFn == nil {
		extractFn = extract.Text
	}

	results := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- extractResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		text, err := extractFn(ctx, data, mimeType)
		results <- extractResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-results:
		return res.text, res.err
	}
}

// clampSummary trims the summary to the storage cap without splitting a
// multi-byte rune.
func clampSummary(summary string) string {
	if len(summary) <= maxSummaryLen {
		return summary
	}
	cut := maxSummaryLen
	for cut > 0 && !utf8.RuneStart(summary[cut]) {
		cut--
	}
	return summary[:cut]
}

func (s *Service) settleFailed(ctx context.Context, id string, cause error, startedAt time.Time) {
	failedAt := time.Now().UTC()
	if err := s.Repo.MarkFailed(context.Background(), id, failedAt); err != nil {
		telemetry.Error("extraction.fail_write", map[string]any{
			"extraction_id": id,
			"err":           err.Error(),
			"cause":         cause.Error(),
		})
	}
	if s.Metrics != nil {
		s.Metrics.IncExtractionFailed()
		s.Metrics.ObserveExtractionDuration(failedAt.Sub(startedAt))
	}
	telemetry.Info("extraction.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"extraction_id":     id,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"err":               cause.Error(),
	})
}

// Get returns a record if the principal may read it. Records that exist but
// are not visible report ErrNotFound so their existence stays hidden.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (Extraction, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	if !CanRead(p, e) {
		return Extraction{}, ErrNotFound
	}
	return e, nil
}

// List returns the records visible to the principal, newest first.
// Privileged roles see everything.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]Extraction, error) {
	if p.Role.Privileged() {
		return s.Repo.ListAll(ctx)
	}
	return s.Repo.ListVisible(ctx, p.ID)
}

// Update edits fileName and/or summary. Nil fields are left unchanged. The
// record is re-fetched before the write so permissions reflect its current
// owner and collaborator set.
func (s *Service) Update(ctx context.Context, p auth.Principal, id string, fileName, summary *string) (Extraction, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	if !CanWrite(p, e) {
		return Extraction{}, ErrNotFound
	}

	newFileName := e.FileName
	if fileName != nil {
		sanitized, err := util.SanitizeFileName(*fileName)
		if err != nil || len(sanitized) > maxFileNameLen {
			return Extraction{}, fmt.Errorf("%w: file name must be 1-255 characters", ErrInvalidInput)
		}
		newFileName = sanitized
	}
	newSummary := e.Summary
	if summary != nil {
		// The summary does not exist until the background task settles;
		// a processing record must keep it absent.
		if e.Status == StatusProcessing {
			return Extraction{}, fmt.Errorf("%w: summary cannot be edited while processing", ErrInvalidInput)
		}
		if len(*summary) > maxSummaryLen {
			return Extraction{}, fmt.Errorf("%w: summary must be at most %d characters", ErrInvalidInput, maxSummaryLen)
		}
		newSummary = *summary
	}

	if err := s.Repo.UpdateEditable(ctx, id, newFileName, newSummary, time.Now().UTC()); err != nil {
		return Extraction{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Delete destroys a record and its stored original. Only the owner and
// privileged roles may delete; shared collaborators get ErrNotFound.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(p, e) {
		return ErrNotFound
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.Store != nil && e.StorageKey != "" {
		if err := s.Store.Delete(ctx, e.StorageKey); err != nil {
			telemetry.Warn("extraction.orphan_object", map[string]any{
				"extraction_id": id,
				"storage_key":   e.StorageKey,
				"err":           err.Error(),
			})
		}
	}
	return nil
}

// Share grants a user read+write access. Owner-only; the target must exist,
// must not be the owner, and must not already be a collaborator.
func (s *Service) Share(ctx context.Context, p auth.Principal, id, targetUserID string) (Extraction, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	if !CanRead(p, e) {
		return Extraction{}, ErrNotFound
	}
	if !CanShare(p, e) {
		return Extraction{}, ErrOwnerOnly
	}
	if _, err := s.Users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Extraction{}, ErrUserNotFound
		}
		return Extraction{}, err
	}
	if targetUserID == e.OwnerID {
		return Extraction{}, fmt.Errorf("%w: cannot share a record with its owner", ErrInvalidInput)
	}
	if e.SharedWithContains(targetUserID) {
		return Extraction{}, ErrAlreadyShared
	}

	updated := append(append([]string(nil), e.SharedWith...), targetUserID)
	if err := s.Repo.SetSharedWith(ctx, id, updated, time.Now().UTC()); err != nil {
		return Extraction{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Unshare revokes a collaborator. Removing a user who is not a collaborator
// is a no-op success.
func (s *Service) Unshare(ctx context.Context, p auth.Principal, id, targetUserID string) (Extraction, error) {
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	if !CanRead(p, e) {
		return Extraction{}, ErrNotFound
	}
	if !CanShare(p, e) {
		return Extraction{}, ErrOwnerOnly
	}
	if !e.SharedWithContains(targetUserID) {
		return e, nil
	}

	updated := make([]string, 0, len(e.SharedWith))
	for _, uid := range e.SharedWith {
		if uid != targetUserID {
			updated = append(updated, uid)
		}
	}
	if err := s.Repo.SetSharedWith(ctx, id, updated, time.Now().UTC()); err != nil {
		return Extraction{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// Reassign transfers ownership to another user. Superadmin-only. The new
// owner is removed from the collaborator set so it never contains the owner.
func (s *Service) Reassign(ctx context.Context, p auth.Principal, id, newOwnerID string) (Extraction, error) {
	if !p.Role.CanReassignOwnership() {
		return Extraction{}, ErrForbidden
	}
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Extraction{}, err
	}
	if _, err := s.Users.GetByID(ctx, newOwnerID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Extraction{}, ErrUserNotFound
		}
		return Extraction{}, err
	}

	updated := make([]string, 0, len(e.SharedWith))
	for _, uid := range e.SharedWith {
		if uid != newOwnerID {
			updated = append(updated, uid)
		}
	}
	if err := s.Repo.SetOwner(ctx, id, newOwnerID, updated, time.Now().UTC()); err != nil {
		return Extraction{}, err
	}
	return s.Repo.GetByID(ctx, id)
}

// OpenOriginal streams the stored original bytes for a readable record.
func (s *Service) OpenOriginal(ctx context.Context, p auth.Principal, id string) (Extraction, io.ReadCloser, error) {
	e, err := s.Get(ctx, p, id)
	if err != nil {
		return Extraction{}, nil, err
	}
	if s.Store == nil || e.StorageKey == "" {
		return Extraction{}, nil, ErrNotFound
	}
	body, err := s.Store.Open(ctx, e.StorageKey)
	if err != nil {
		return Extraction{}, nil, err
	}
	return e, body, nil
}
