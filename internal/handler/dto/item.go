package dto

import (
	"time"

	"github.com/cubbyhole/cubbyhole/internal/model"
)

// CreateFolderRequest represents the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

// ItemResponse represents a vault item in API responses.
// Size is only meaningful for files and is omitted for folders.
type ItemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Size      *int64    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemListResponse represents a folder listing.
type ItemListResponse struct {
	Data []ItemResponse `json:"data"`
}

// SignedURLResponse carries a short-lived URL for a stored object.
type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToItemResponse converts an Item model to ItemResponse DTO.
func ToItemResponse(item *model.Item) *ItemResponse {
	resp := &ItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Type:      string(item.Type),
		ParentID:  item.ParentID,
		CreatedAt: item.CreatedAt,
	}
	if item.IsFile() {
		size := item.Size
		resp.Size = &size
	}
	return resp
}

// ToItemListResponse converts a slice of Item models to ItemListResponse.
func ToItemListResponse(items []*model.Item) *ItemListResponse {
	responses := make([]ItemResponse, len(items))
	for i, item := range items {
		responses[i] = *ToItemResponse(item)
	}
	return &ItemListResponse{Data: responses}
}
