package extractions

import "errors"

var (
	// ErrNotFound covers both missing records and records the principal is
	// not allowed to see; the two are indistinguishable on purpose.
	ErrNotFound = errors.New("extraction not found")
	// ErrUserNotFound indicates a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnsupportedType indicates the upload mime type is not allowed.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrOwnerOnly indicates a sharing mutation by someone other than the
	// owner. Sharing excludes admins and superadmins as well.
	ErrOwnerOnly = errors.New("only the owner may manage sharing")
	// ErrForbidden indicates a privileged operation by an unprivileged role.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyShared indicates the target user is already a collaborator.
	ErrAlreadyShared = errors.New("extraction already shared with user")
	// ErrInvalidInput indicates a user-correctable validation failure.
	ErrInvalidInput = errors.New("invalid input")
)
