package extractions

import (
	"time"

	"docvault-backend/internal/users"
)

// listItemResponse is the compact representation used in list views. It
// deliberately omits originalText, which can be large.
type listItemResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Status       string    `json:"status"`
	FileName     string    `json:"fileName"`
	DocumentType string    `json:"documentType"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// detailResponse is the full representation returned for a single record.
// The collaborator list is resolved to user summaries for display.
type detailResponse struct {
	listItemResponse
	OriginalText string          `json:"originalText"`
	SharedWith   []users.Summary `json:"sharedWith"`
}

type uploadResponse struct {
	ExtractionID string `json:"extractionId"`
	FileName     string `json:"fileName"`
	Status       string `json:"status"`
}

type messageResponse struct {
	Message    string          `json:"message"`
	Extraction *detailResponse `json:"extraction,omitempty"`
}

type updateRequest struct {
	FileName *string `json:"fileName"`
	Summary  *string `json:"summary"`
}

type userIDRequest struct {
	UserID string `json:"userId"`
}

func toListItem(e Extraction) listItemResponse {
	return listItemResponse{
		ID:           e.ID,
		OwnerID:      e.OwnerID,
		Status:       e.Status,
		FileName:     e.FileName,
		DocumentType: e.DocumentType,
		Summary:      e.Summary,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toListResponse(list []Extraction) []listItemResponse {
	out := make([]listItemResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toListItem(e))
	}
	return out
}

func toDetail(e Extraction, sharedWith []users.Summary) detailResponse {
	if sharedWith == nil {
		sharedWith = []users.Summary{}
	}
	return detailResponse{
		listItemResponse: toListItem(e),
		OriginalText:     e.OriginalText,
		SharedWith:       sharedWith,
	}
}
