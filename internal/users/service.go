package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/telemetry"
)

// ErrInvalidCredentials indicates a failed email/password check. The same
// error covers unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidInput indicates a malformed registration request.
var ErrInvalidInput = errors.New("invalid input")

const minPasswordLen = 8

// Service contains business logic for user accounts.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Register creates an account with the given role.
func (s *Service) Register(ctx context.Context, email, name, password string, role auth.Role) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, ErrInvalidInput
	}
	if len(password) < minPasswordLen {
		return User{}, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID returns a user by ID.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// Summaries resolves user IDs to display summaries, skipping IDs that no
// longer resolve to an account.
func (s *Service) Summaries(ctx context.Context, userIDs []string) ([]Summary, error) {
	out := make([]Summary, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, user.Summary())
	}
	return out, nil
}

// EnsureSuperadmin creates the bootstrap superadmin account if the email is
// not registered yet. A blank email disables seeding.
func (s *Service) EnsureSuperadmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if _, err := s.Register(ctx, email, "Superadmin", password, auth.RoleSuperadmin); err != nil {
		return err
	}
	telemetry.Info("users.superadmin_seeded", map[string]any{"email": email})
	return nil
}
