package extractions

import "time"

// Processing status of an extraction record. A record starts processing and
// transitions exactly once to completed or failed.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Extraction represents one uploaded document and its processing result.
type Extraction struct {
	ID           string
	OwnerID      string
	Status       string
	FileName     string
	DocumentType string
	Summary      string
	OriginalText string
	StorageKey   string
	SharedWith   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SharedWithContains reports whether the user is a collaborator.
func (e Extraction) SharedWithContains(userID string) bool {
	for _, id := range e.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}
