package extractions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"docvault-backend/internal/extract"
	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/storage/object/local"
	"docvault-backend/internal/users"
)

func setupService(t *testing.T) (*Service, *MemoryRepo, *users.MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	svc := &Service{
		Repo:  repo,
		Users: userRepo,
		Store: local.New(t.TempDir()),
	}
	return svc, repo, userRepo
}

func seedUser(t *testing.T, repo *users.MemoryRepo, id, email string, role auth.Role) auth.Principal {
	t.Helper()
	now := time.Now().UTC()
	user := users.User{ID: id, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return user.Principal()
}

func waitForStatus(t *testing.T, repo *MemoryRepo, id, status string) Extraction {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e, err := repo.GetByID(context.Background(), id)
		if err == nil && e.Status == status {
			return e
		}
		time.Sleep(10 * time.Millisecond)
	}
	e, _ := repo.GetByID(context.Background(), id)
	t.Fatalf("extraction did not reach status %q, got %q", status, e.Status)
	return Extraction{}
}

func TestUploadCompletesPlainText(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	body := []byte("First sentence. Second sentence. Third sentence. Fourth sentence.")
	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if created.Status != StatusProcessing {
		t.Fatalf("expected initial status processing, got %s", created.Status)
	}
	if created.OwnerID != owner.ID {
		t.Fatalf("expected owner %s, got %s", owner.ID, created.OwnerID)
	}

	done := waitForStatus(t, repo, created.ID, StatusCompleted)
	if done.OriginalText != string(body) {
		t.Fatalf("expected original text preserved, got %q", done.OriginalText)
	}
	want := "First sentence. Second sentence. Third sentence."
	if done.Summary != want {
		t.Fatalf("expected summary %q, got %q", want, done.Summary)
	}
}

func TestUploadEmptyPlainTextCompletes(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	created, err := svc.Upload(context.Background(), owner, "empty.txt", extract.MimeText, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	done := waitForStatus(t, repo, created.ID, StatusCompleted)
	if done.OriginalText != "" {
		t.Fatalf("expected empty original text, got %q", done.OriginalText)
	}
	if done.Summary != "." {
		t.Fatalf("expected summary %q, got %q", ".", done.Summary)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	_, err := svc.Upload(context.Background(), owner, "photo.jpg", "image/jpeg", []byte{0xff, 0xd8})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadMalformedPDFFails(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	created, err := svc.Upload(context.Background(), owner, "broken.pdf", extract.MimePDF, []byte("not a pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	done := waitForStatus(t, repo, created.ID, StatusFailed)
	if done.Summary != "" || done.OriginalText != "" {
		t.Fatalf("expected empty summary and text on failure, got %q / %q", done.Summary, done.OriginalText)
	}
}

func TestTerminalWriteAfterDeleteIsNoop(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	now := time.Now().UTC()
	e := Extraction{
		ID:        "ext-1",
		OwnerID:   owner.ID,
		Status:    StatusProcessing,
		FileName:  "notes.txt",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), owner, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The background task settling against a deleted record must not error
	// and must not resurrect it.
	svc.processAsync(context.Background(), e.ID, []byte("Hello there."), extract.MimeText)

	if _, err := repo.GetByID(context.Background(), e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to stay deleted, got %v", err)
	}
}

func TestStatusSettlesExactlyOnce(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("One. Two."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	done := waitForStatus(t, repo, created.ID, StatusCompleted)

	// A late failure write must not flip a settled record.
	if err := repo.MarkFailed(context.Background(), created.ID, time.Now().UTC()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.Summary != done.Summary {
		t.Fatalf("expected settled record unchanged, got status %s", got.Status)
	}
}

func TestGetHidesInvisibleRecords(t *testing.T) {
	svc, _, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)
	stranger := seedUser(t, userRepo, "user-2", "stranger@example.com", auth.RoleUser)

	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("Hi."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Get(context.Background(), stranger, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
	if _, err := svc.Get(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestShareAndUnshare(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)
	friend := seedUser(t, userRepo, "user-2", "friend@example.com", auth.RoleUser)
	admin := seedUser(t, userRepo, "user-3", "admin@example.com", auth.RoleAdmin)

	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("Hi."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForStatus(t, repo, created.ID, StatusCompleted)

	shared, err := svc.Share(context.Background(), owner, created.ID, friend.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !shared.SharedWithContains(friend.ID) {
		t.Fatalf("expected %s in shared list", friend.ID)
	}

	if _, err := svc.Share(context.Background(), owner, created.ID, friend.ID); !errors.Is(err, ErrAlreadyShared) {
		t.Fatalf("expected ErrAlreadyShared, got %v", err)
	}
	if _, err := svc.Share(context.Background(), owner, created.ID, owner.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput sharing with owner, got %v", err)
	}
	if _, err := svc.Share(context.Background(), owner, created.ID, "missing-user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// Sharing stays owner-only even for admins.
	if _, err := svc.Share(context.Background(), admin, created.ID, admin.ID); !errors.Is(err, ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly for admin, got %v", err)
	}
	if _, err := svc.Unshare(context.Background(), friend, created.ID, friend.ID); !errors.Is(err, ErrOwnerOnly) {
		t.Fatalf("expected ErrOwnerOnly for collaborator, got %v", err)
	}

	// Unsharing a non-collaborator is a no-op success.
	if _, err := svc.Unshare(context.Background(), owner, created.ID, admin.ID); err != nil {
		t.Fatalf("unshare non-collaborator: %v", err)
	}

	after, err := svc.Unshare(context.Background(), owner, created.ID, friend.ID)
	if err != nil {
		t.Fatalf("unshare: %v", err)
	}
	if after.SharedWithContains(friend.ID) {
		t.Fatalf("expected %s removed from shared list", friend.ID)
	}
}

func TestReassignOwnership(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)
	next := seedUser(t, userRepo, "user-2", "next@example.com", auth.RoleUser)
	admin := seedUser(t, userRepo, "user-3", "admin@example.com", auth.RoleAdmin)
	super := seedUser(t, userRepo, "user-4", "root@example.com", auth.RoleSuperadmin)

	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("Hi."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForStatus(t, repo, created.ID, StatusCompleted)

	if _, err := svc.Share(context.Background(), owner, created.ID, next.ID); err != nil {
		t.Fatalf("share: %v", err)
	}

	if _, err := svc.Reassign(context.Background(), admin, created.ID, next.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for admin, got %v", err)
	}
	if _, err := svc.Reassign(context.Background(), super, created.ID, "missing-user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	moved, err := svc.Reassign(context.Background(), super, created.ID, next.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if moved.OwnerID != next.ID {
		t.Fatalf("expected owner %s, got %s", next.ID, moved.OwnerID)
	}
	if moved.SharedWithContains(next.ID) {
		t.Fatalf("new owner must not remain a collaborator")
	}

	// The previous owner loses visibility entirely.
	if _, err := svc.Get(context.Background(), owner, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for previous owner, got %v", err)
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	created, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("Hi."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForStatus(t, repo, created.ID, StatusCompleted)

	empty := ""
	if _, err := svc.Update(context.Background(), owner, created.ID, &empty, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty file name, got %v", err)
	}

	long := make([]byte, maxSummaryLen+1)
	for i := range long {
		long[i] = 'a'
	}
	longSummary := string(long)
	if _, err := svc.Update(context.Background(), owner, created.ID, nil, &longSummary); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long summary, got %v", err)
	}

	name := "renamed.txt"
	summary := "Edited summary."
	updated, err := svc.Update(context.Background(), owner, created.ID, &name, &summary)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FileName != name || updated.Summary != summary {
		t.Fatalf("expected edits applied, got %q / %q", updated.FileName, updated.Summary)
	}
}

func TestUpdateSummaryRejectedWhileProcessing(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	now := time.Now().UTC()
	e := Extraction{
		ID:        "ext-1",
		OwnerID:   owner.ID,
		Status:    StatusProcessing,
		FileName:  "notes.txt",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A processing record has no summary yet; edits must wait for the
	// background task to settle.
	summary := "early edit"
	if _, err := svc.Update(context.Background(), owner, e.ID, nil, &summary); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for summary edit while processing, got %v", err)
	}
	got, err := repo.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary != "" {
		t.Fatalf("expected summary to stay absent, got %q", got.Summary)
	}

	// Renaming does not depend on the pipeline and stays allowed.
	name := "renamed.txt"
	updated, err := svc.Update(context.Background(), owner, e.ID, &name, nil)
	if err != nil {
		t.Fatalf("rename while processing: %v", err)
	}
	if updated.FileName != name || updated.Status != StatusProcessing {
		t.Fatalf("expected rename applied, got %+v", updated)
	}
}

func TestHangingExtractorFailsAtTimeout(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	block := make(chan struct{})
	defer close(block)
	svc.ExtractTimeout = 50 * time.Millisecond
	svc.Extract = func(ctx context.Context, _ []byte, _ string) (string, error) {
		// Ignores cancellation entirely, like a stuck parser.
		<-block
		return "", nil
	}

	created, err := svc.Upload(context.Background(), owner, "slow.pdf", extract.MimePDF, []byte("%PDF"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	done := waitForStatus(t, repo, created.ID, StatusFailed)
	if done.Summary != "" || done.OriginalText != "" {
		t.Fatalf("expected empty summary and text after timeout, got %q / %q", done.Summary, done.OriginalText)
	}
}

func TestClampSummaryKeepsValidUTF8(t *testing.T) {
	summary := strings.Repeat("a", maxSummaryLen-1) + "€€"
	clamped := clampSummary(summary)
	if len(clamped) > maxSummaryLen {
		t.Fatalf("expected at most %d bytes, got %d", maxSummaryLen, len(clamped))
	}
	if !utf8.ValidString(clamped) {
		t.Fatalf("expected valid UTF-8 after clamp, got %q", clamped)
	}
	if clamped != strings.Repeat("a", maxSummaryLen-1) {
		t.Fatalf("expected clamp on rune boundary, got %d bytes", len(clamped))
	}

	short := "short summary"
	if clampSummary(short) != short {
		t.Fatalf("expected short summary untouched")
	}
}

type createFailRepo struct {
	*MemoryRepo
}

func (r *createFailRepo) Create(ctx context.Context, e Extraction) error {
	return errors.New("insert failed")
}

type recordingStore struct {
	saved   []string
	deleted []string
}

func (s *recordingStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, error) {
	key := fmt.Sprintf("key-%d", len(s.saved))
	s.saved = append(s.saved, key)
	return key, 0, nil
}

func (s *recordingStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *recordingStore) Delete(ctx context.Context, storageKey string) error {
	s.deleted = append(s.deleted, storageKey)
	return nil
}

func TestUploadDeletesObjectWhenCreateFails(t *testing.T) {
	userRepo := users.NewMemoryRepo()
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)

	store := &recordingStore{}
	svc := &Service{
		Repo:  &createFailRepo{MemoryRepo: NewMemoryRepo()},
		Users: userRepo,
		Store: store,
	}

	if _, err := svc.Upload(context.Background(), owner, "notes.txt", extract.MimeText, []byte("Hi.")); err == nil {
		t.Fatalf("expected upload to fail")
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.saved))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.saved[0] {
		t.Fatalf("expected stored object cleaned up, got %v", store.deleted)
	}
}

func TestListVisibility(t *testing.T) {
	svc, repo, userRepo := setupService(t)
	owner := seedUser(t, userRepo, "user-1", "owner@example.com", auth.RoleUser)
	friend := seedUser(t, userRepo, "user-2", "friend@example.com", auth.RoleUser)
	admin := seedUser(t, userRepo, "user-3", "admin@example.com", auth.RoleAdmin)

	first, err := svc.Upload(context.Background(), owner, "a.txt", extract.MimeText, []byte("A."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	second, err := svc.Upload(context.Background(), friend, "b.txt", extract.MimeText, []byte("B."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	waitForStatus(t, repo, first.ID, StatusCompleted)
	waitForStatus(t, repo, second.ID, StatusCompleted)

	if _, err := svc.Share(context.Background(), owner, first.ID, friend.ID); err != nil {
		t.Fatalf("share: %v", err)
	}

	ownerList, err := svc.List(context.Background(), owner)
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(ownerList) != 1 || ownerList[0].ID != first.ID {
		t.Fatalf("expected owner to see only own record, got %d", len(ownerList))
	}

	friendList, err := svc.List(context.Background(), friend)
	if err != nil {
		t.Fatalf("list friend: %v", err)
	}
	if len(friendList) != 2 {
		t.Fatalf("expected friend to see own plus shared, got %d", len(friendList))
	}

	adminList, err := svc.List(context.Background(), admin)
	if err != nil {
		t.Fatalf("list admin: %v", err)
	}
	if len(adminList) != 2 {
		t.Fatalf("expected admin to see everything, got %d", len(adminList))
	}
}
