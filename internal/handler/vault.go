package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cubbyhole/cubbyhole/internal/auth"
	"github.com/cubbyhole/cubbyhole/internal/handler/dto"
	"github.com/cubbyhole/cubbyhole/internal/model"
	"github.com/cubbyhole/cubbyhole/internal/service"
	"github.com/cubbyhole/cubbyhole/internal/storage"
)

// VaultService is the item surface VaultHandler depends on.
type VaultService interface {
	List(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error)
	Get(ctx context.Context, ownerID, id string) (*model.Item, error)
	CreateFolder(ctx context.Context, ownerID, name string, parentID *string) (*model.Item, error)
	Upload(ctx context.Context, ownerID string, in service.UploadInput) (*model.Item, error)
	Delete(ctx context.Context, ownerID, id string) error
	DownloadURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error)
	PreviewURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error)
}

// VaultHandler handles HTTP requests for vault items.
type VaultHandler struct {
	svc    VaultService
	logger *slog.Logger
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(svc VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/items. An absent parent_id lists the root.
func (h *VaultHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())

	var parentID *string
	if p := r.URL.Query().Get("parent_id"); p != "" {
		parentID = &p
	}

	items, err := h.svc.List(r.Context(), ownerID, parentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToItemListResponse(items))
}

// Get handles GET /api/v1/items/{id}.
func (h *VaultHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Item ID is required")
		return
	}

	item, err := h.svc.Get(r.Context(), ownerID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToItemResponse(item))
}

// CreateFolder handles POST /api/v1/folders.
func (h *VaultHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())

	var req dto.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	item, err := h.svc.CreateFolder(r.Context(), ownerID, req.Name, req.ParentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("folder_created",
		"item_id", item.ID,
		"user_id", ownerID,
	)

	writeJSON(w, http.StatusCreated, dto.ToItemResponse(item))
}

// Upload handles POST /api/v1/files. Expects a multipart form with a
// `file` part and an optional `parent_id` field. The body size limit is
// enforced upstream by the MaxBodySize middleware.
func (h *VaultHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	var parentID *string
	if p := r.FormValue("parent_id"); p != "" {
		parentID = &p
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	item, err := h.svc.Upload(r.Context(), ownerID, service.UploadInput{
		Name:        header.Filename,
		ParentID:    parentID,
		Size:        header.Size,
		ContentType: contentType,
		Body:        file,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("file_uploaded",
		"item_id", item.ID,
		"user_id", ownerID,
		"size_bytes", item.Size,
	)

	writeJSON(w, http.StatusCreated, dto.ToItemResponse(item))
}

// Delete handles DELETE /api/v1/items/{id}.
func (h *VaultHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Item ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), ownerID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("item_deleted",
		"item_id", id,
		"user_id", ownerID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// Download handles GET /api/v1/items/{id}/download.
func (h *VaultHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.signedURL(w, r, h.svc.DownloadURL)
}

// Preview handles GET /api/v1/items/{id}/preview.
func (h *VaultHandler) Preview(w http.ResponseWriter, r *http.Request) {
	h.signedURL(w, r, h.svc.PreviewURL)
}

func (h *VaultHandler) signedURL(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, ownerID, id string) (storage.SignedURL, error)) {
	ownerID := auth.UserIDFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Item ID is required")
		return
	}

	u, err := fn(r.Context(), ownerID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// The expiry travels with the URL, so cache-served URLs report the
	// instant they were signed for rather than a fresh full lifetime.
	writeJSON(w, http.StatusOK, dto.SignedURLResponse{
		URL:       u.URL,
		ExpiresAt: u.ExpiresAt,
	})
}

// handleServiceError maps vault service errors to HTTP responses.
func (h *VaultHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case errors.Is(err, service.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Invalid item name")
	case errors.Is(err, service.ErrNotAFolder):
		writeError(w, http.StatusBadRequest, "NOT_A_FOLDER", "Parent must be a folder")
	case errors.Is(err, service.ErrFolderNotEmpty):
		writeError(w, http.StatusConflict, "FOLDER_NOT_EMPTY", "Folder is not empty")
	case errors.Is(err, service.ErrNotAFile):
		writeError(w, http.StatusBadRequest, "NOT_A_FILE", "Item is not a file")
	case errors.Is(err, service.ErrNotPreviewable):
		writeError(w, http.StatusUnprocessableEntity, "NOT_PREVIEWABLE", "Item cannot be previewed")
	case errors.Is(err, service.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, "EMPTY_UPLOAD", "Upload has no content")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
