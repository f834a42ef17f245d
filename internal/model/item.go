package model

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ItemType distinguishes the two item variants.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// IsValid checks if the item type is a known variant.
func (t ItemType) IsValid() bool {
	return t == ItemTypeFile || t == ItemTypeFolder
}

// Construction errors.
var (
	ErrMissingObjectKey = errors.New("file item requires an object key")
	ErrNegativeSize     = errors.New("file size cannot be negative")
)

// Item represents a file or folder owned by a user. A nil ParentID means
// the item sits at the root of the owner's vault. Folders always have a
// zero size and no object key; files always carry both. The constructors
// below are the only intended way to build an Item, so the variant rules
// hold from creation onward.
type Item struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Type      ItemType   `json:"type"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Size      int64      `json:"size"`
	ObjectKey string     `json:"-"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewFolder builds a folder item.
func NewFolder(id, ownerID, name string, parentID *string) *Item {
	return &Item{
		ID:        id,
		OwnerID:   ownerID,
		Name:      name,
		Type:      ItemTypeFolder,
		ParentID:  parentID,
		Size:      0,
		CreatedAt: time.Now().UTC(),
	}
}

// NewFile builds a file item referencing an already-stored binary object.
func NewFile(id, ownerID, name string, parentID *string, objectKey string, size int64) (*Item, error) {
	if objectKey == "" {
		return nil, ErrMissingObjectKey
	}
	if size < 0 {
		return nil, ErrNegativeSize
	}

	return &Item{
		ID:        id,
		OwnerID:   ownerID,
		Name:      name,
		Type:      ItemTypeFile,
		ParentID:  parentID,
		Size:      size,
		ObjectKey: objectKey,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsFolder returns true for folder items.
func (i *Item) IsFolder() bool {
	return i.Type == ItemTypeFolder
}

// IsFile returns true for file items.
func (i *Item) IsFile() bool {
	return i.Type == ItemTypeFile
}

// imageExtensions lists filename extensions eligible for inline previews.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsImage reports whether the item's filename looks like an image.
// Preview URLs are only issued for items passing this check.
func (i *Item) IsImage() bool {
	if !i.IsFile() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(i.Name))
	return imageExtensions[ext]
}
