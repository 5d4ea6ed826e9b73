package extractions

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docvault-backend/internal/shared/auth"
	"docvault-backend/internal/shared/server/middleware"
	"docvault-backend/internal/shared/server/respond"
	"docvault-backend/internal/users"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc   *Service
	Users *users.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, userSvc *users.Service) *Handler {
	return &Handler{Svc: svc, Users: userSvc}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extractions/upload", h.upload)
	rg.GET("/extractions", h.list)
	rg.GET("/extractions/:id", h.get)
	rg.PUT("/extractions/:id", h.update)
	rg.DELETE("/extractions/:id", h.delete)
	rg.GET("/extractions/:id/download", h.download)
	rg.POST("/extractions/:id/share", h.share)
	rg.DELETE("/extractions/:id/unshare", h.unshare)
	rg.PUT("/extractions/:id/reassign", h.reassign)
}

func (h *Handler) upload(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	created, err := h.Svc.Upload(ctx, principal, fileHeader.Filename, mimeType, data)
	if err != nil {
		h.respondError(c, err, "failed to upload document")
		return
	}

	respond.JSON(c, http.StatusCreated, uploadResponse{
		ExtractionID: created.ID,
		FileName:     created.FileName,
		Status:       created.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	records, err := h.Svc.List(c.Request.Context(), principal)
	if err != nil {
		h.respondError(c, err, "failed to list extractions")
		return
	}
	respond.OK(c, toListResponse(records))
}

func (h *Handler) get(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	e, err := h.Svc.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch extraction")
		return
	}
	respond.OK(c, h.toDetailWithUsers(c, e))
}

func (h *Handler) update(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	e, err := h.Svc.Update(c.Request.Context(), principal, c.Param("id"), req.FileName, req.Summary)
	if err != nil {
		h.respondError(c, err, "failed to update extraction")
		return
	}

	detail := h.toDetailWithUsers(c, e)
	respond.OK(c, messageResponse{Message: "extraction updated", Extraction: &detail})
}

func (h *Handler) delete(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.respondError(c, err, "failed to delete extraction")
		return
	}
	respond.OK(c, messageResponse{Message: "extraction deleted"})
}

func (h *Handler) download(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	e, body, err := h.Svc.OpenOriginal(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to download original")
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.FileName}))
	c.Header("Content-Type", e.DocumentType)
	c.Status(http.StatusOK)
	// Headers are already written; a copy failure cannot be reported.
	_, _ = io.Copy(c.Writer, body)
}

func (h *Handler) share(c *gin.Context) {
	h.shareMutation(c, h.Svc.Share, "extraction shared")
}

func (h *Handler) unshare(c *gin.Context) {
	h.shareMutation(c, h.Svc.Unshare, "extraction unshared")
}

func (h *Handler) shareMutation(c *gin.Context, op func(ctx context.Context, p auth.Principal, id, userID string) (Extraction, error), message string) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	var req userIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userId is required", nil)
		return
	}

	e, err := op(c.Request.Context(), principal, c.Param("id"), strings.TrimSpace(req.UserID))
	if err != nil {
		h.respondError(c, err, "failed to update sharing")
		return
	}

	detail := h.toDetailWithUsers(c, e)
	respond.OK(c, messageResponse{Message: message, Extraction: &detail})
}

func (h *Handler) reassign(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "authentication_required", "authentication required", nil)
		return
	}

	var req userIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userId is required", nil)
		return
	}

	e, err := h.Svc.Reassign(c.Request.Context(), principal, c.Param("id"), strings.TrimSpace(req.UserID))
	if err != nil {
		h.respondError(c, err, "failed to reassign ownership")
		return
	}

	detail := h.toDetailWithUsers(c, e)
	respond.OK(c, messageResponse{Message: "ownership reassigned", Extraction: &detail})
}

func (h *Handler) toDetailWithUsers(c *gin.Context, e Extraction) detailResponse {
	var sharedWith []users.Summary
	if h.Users != nil {
		resolved, err := h.Users.Summaries(c.Request.Context(), e.SharedWith)
		if err == nil {
			sharedWith = resolved
		}
	}
	return toDetail(e, sharedWith)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "extraction not found", nil)
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusNotFound, "user_not_found", "user not found", nil)
	case errors.Is(err, ErrOwnerOnly):
		respond.Error(c, http.StatusForbidden, "owner_only", "only the owner can manage sharing", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "insufficient privileges", nil)
	case errors.Is(err, ErrAlreadyShared):
		respond.Error(c, http.StatusBadRequest, "already_shared", "record is already shared with this user", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "unsupported_type", "unsupported document type", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
