package extractions

import "docvault-backend/internal/shared/auth"

// Authorization predicates for (principal, record) pairs. All are pure
// functions of the principal's id and role and the record's owner and
// collaborator set, and they are the single source of truth for every
// record-touching route. The implication chain holds by construction:
// CanDelete implies CanWrite implies CanRead.

// CanRead reports whether the principal may fetch the record.
func CanRead(p auth.Principal, e Extraction) bool {
	return e.OwnerID == p.ID || e.SharedWithContains(p.ID) || p.Role.Privileged()
}

// CanWrite reports whether the principal may edit fileName and summary.
func CanWrite(p auth.Principal, e Extraction) bool {
	return e.OwnerID == p.ID || e.SharedWithContains(p.ID) || p.Role.Privileged()
}

// CanDelete reports whether the principal may destroy the record. Shared
// collaborators are deliberately excluded.
func CanDelete(p auth.Principal, e Extraction) bool {
	return e.OwnerID == p.ID || p.Role.Privileged()
}

// CanShare reports whether the principal may mutate the collaborator set.
// This is an owner-exclusive right; elevated roles do not bypass it.
func CanShare(p auth.Principal, e Extraction) bool {
	return e.OwnerID == p.ID
}
