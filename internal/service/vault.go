package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cubbyhole/cubbyhole/internal/cache"
	"github.com/cubbyhole/cubbyhole/internal/metrics"
	"github.com/cubbyhole/cubbyhole/internal/model"
	"github.com/cubbyhole/cubbyhole/internal/repository"
	"github.com/cubbyhole/cubbyhole/internal/storage"
)

// Vault service errors.
var (
	ErrItemNotFound   = errors.New("item not found")
	ErrForbidden      = errors.New("access denied")
	ErrInvalidName    = errors.New("invalid item name")
	ErrNotAFolder     = errors.New("parent is not a folder")
	ErrFolderNotEmpty = errors.New("folder is not empty")
	ErrNotAFile       = errors.New("item is not a file")
	ErrNotPreviewable = errors.New("item cannot be previewed")
	ErrEmptyUpload    = errors.New("upload has no content")
)

const maxItemNameLength = 255

// ItemRepository is the metadata persistence surface VaultService depends on.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, ownerID, id string) (*model.Item, error)
	ListItems(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error)
	HasChildren(ctx context.Context, ownerID, id string) (bool, error)
	MarkItemDeleting(ctx context.Context, ownerID, id string) error
	DeleteItem(ctx context.Context, id string) error
}

// ObjectStore is the binary storage surface VaultService depends on.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	DownloadURL(ctx context.Context, key, filename string) (storage.SignedURL, error)
	PreviewURL(ctx context.Context, key string) (storage.SignedURL, error)
}

// URLCache caches presigned URLs, expiry included, for a TTL below the
// presign lifetime.
type URLCache interface {
	GetDownloadURL(ctx context.Context, objectKey string) (storage.SignedURL, error)
	SetDownloadURL(ctx context.Context, objectKey string, u storage.SignedURL) error
	GetPreviewURL(ctx context.Context, objectKey string) (storage.SignedURL, error)
	SetPreviewURL(ctx context.Context, objectKey string, u storage.SignedURL) error
}

// VaultService orchestrates item metadata and binary objects. Metadata
// and bytes live in different systems with no shared transaction, so
// mutations run as explicit two-phase sequences with compensation: see
// Upload and Delete.
type VaultService struct {
	items   ItemRepository
	objects ObjectStore
	urls    URLCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewVaultService creates a new VaultService. The URL cache is optional;
// pass nil to presign on every request.
func NewVaultService(items ItemRepository, objects ObjectStore, urls URLCache, recorder metrics.Recorder, logger *slog.Logger) *VaultService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultService{
		items:   items,
		objects: objects,
		urls:    urls,
		metrics: recorder,
		logger:  logger,
	}
}

// List returns the caller's items directly under parentID, newest first.
// A nil parentID lists the root. A non-nil parentID must name a folder
// the caller owns.
func (s *VaultService) List(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error) {
	if parentID != nil {
		parent, err := s.getOwned(ctx, ownerID, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, ErrNotAFolder
		}
	}

	items, err := s.items.ListItems(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return items, nil
}

// Get returns a single item owned by the caller.
func (s *VaultService) Get(ctx context.Context, ownerID, id string) (*model.Item, error) {
	return s.getOwned(ctx, ownerID, id)
}

// CreateFolder creates a folder under parentID (nil for root).
func (s *VaultService) CreateFolder(ctx context.Context, ownerID, name string, parentID *string) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if err := validateItemName(name); err != nil {
		return nil, err
	}

	if err := s.checkParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	folder := model.NewFolder(generateULID(), ownerID, name, parentID)
	if err := s.items.CreateItem(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	s.metrics.IncFolderCreated()

	return folder, nil
}

// UploadInput defines input for uploading a file.
type UploadInput struct {
	Name        string
	ParentID    *string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Upload stores the file bytes and then the metadata record, in that
// order. If the record insert fails the uploaded object is deleted
// again, so a failed upload never strands bytes in the store.
func (s *VaultService) Upload(ctx context.Context, ownerID string, in UploadInput) (*model.Item, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateItemName(name); err != nil {
		return nil, err
	}
	if in.Size <= 0 || in.Body == nil {
		return nil, ErrEmptyUpload
	}

	if err := s.checkParent(ctx, ownerID, in.ParentID); err != nil {
		return nil, err
	}

	key := storage.NewObjectKey()
	if err := s.objects.Upload(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	item, err := model.NewFile(generateULID(), ownerID, name, in.ParentID, key, in.Size)
	if err != nil {
		// Unreachable with a fresh key and validated size, but compensate anyway.
		s.compensateUpload(ctx, key)
		return nil, err
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		s.compensateUpload(ctx, key)
		return nil, fmt.Errorf("failed to create item record: %w", err)
	}

	s.metrics.IncUpload()

	return item, nil
}

// Delete removes an item. Folders must be empty. For files the record
// is first hidden, then the object is deleted, then the record removed;
// a failed object delete leaves the hidden record for the janitor to
// retry, so the item is gone from the caller's view either way.
func (s *VaultService) Delete(ctx context.Context, ownerID, id string) error {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if item.IsFolder() {
		hasChildren, err := s.items.HasChildren(ctx, ownerID, item.ID)
		if err != nil {
			return fmt.Errorf("failed to check folder contents: %w", err)
		}
		if hasChildren {
			return ErrFolderNotEmpty
		}

		if err := s.items.DeleteItem(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}

		s.metrics.IncItemDeleted()
		return nil
	}

	if err := s.items.MarkItemDeleting(ctx, ownerID, item.ID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to mark item deleting: %w", err)
	}

	if err := s.objects.Delete(ctx, item.ObjectKey); err != nil {
		// The record stays marked; the janitor retries the object delete.
		s.logger.Warn("object delete failed, queued for retry",
			slog.String("item_id", item.ID),
			slog.String("object_key", item.ObjectKey),
			slog.String("error", err.Error()),
		)
		s.metrics.IncDeleteRetryQueued()
		return nil
	}

	if err := s.items.DeleteItem(ctx, item.ID); err != nil {
		// Object is gone and the record is hidden; the janitor finishes the job.
		s.logger.Warn("record delete failed after object delete",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.metrics.IncItemDeleted()

	return nil
}

// DownloadURL returns a time-limited URL serving the file's bytes. A
// cache hit keeps the expiry the URL was signed with.
func (s *VaultService) DownloadURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return storage.SignedURL{}, err
	}
	if !item.IsFile() {
		return storage.SignedURL{}, ErrNotAFile
	}

	if s.urls != nil {
		if u, err := s.urls.GetDownloadURL(ctx, item.ObjectKey); err == nil {
			s.metrics.IncURLCacheHit()
			return u, nil
		}
		s.metrics.IncURLCacheMiss()
	}

	u, err := s.objects.DownloadURL(ctx, item.ObjectKey, item.Name)
	if err != nil {
		return storage.SignedURL{}, fmt.Errorf("failed to create download URL: %w", err)
	}

	if s.urls != nil {
		if err := s.urls.SetDownloadURL(ctx, item.ObjectKey, u); err != nil {
			s.logger.Debug("failed to cache download url", slog.String("error", err.Error()))
		}
	}

	return u, nil
}

// PreviewURL returns a time-limited inline locator for image files. A
// cache hit keeps the expiry the URL was signed with.
func (s *VaultService) PreviewURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error) {
	item, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return storage.SignedURL{}, err
	}
	if !item.IsImage() {
		return storage.SignedURL{}, ErrNotPreviewable
	}

	if s.urls != nil {
		if u, err := s.urls.GetPreviewURL(ctx, item.ObjectKey); err == nil {
			s.metrics.IncURLCacheHit()
			return u, nil
		}
		s.metrics.IncURLCacheMiss()
	}

	u, err := s.objects.PreviewURL(ctx, item.ObjectKey)
	if err != nil {
		return storage.SignedURL{}, fmt.Errorf("failed to create preview URL: %w", err)
	}

	if s.urls != nil {
		if err := s.urls.SetPreviewURL(ctx, item.ObjectKey, u); err != nil {
			s.logger.Debug("failed to cache preview url", slog.String("error", err.Error()))
		}
	}

	return u, nil
}

// getOwned fetches an item and maps repository errors to service errors.
func (s *VaultService) getOwned(ctx context.Context, ownerID, id string) (*model.Item, error) {
	item, err := s.items.GetItem(ctx, ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return nil, ErrItemNotFound
		case errors.Is(err, repository.ErrForbidden):
			return nil, ErrForbidden
		default:
			return nil, fmt.Errorf("failed to get item: %w", err)
		}
	}

	return item, nil
}

// checkParent validates that parentID, when set, names a folder the
// caller owns.
func (s *VaultService) checkParent(ctx context.Context, ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}

	parent, err := s.getOwned(ctx, ownerID, *parentID)
	if err != nil {
		return err
	}
	if !parent.IsFolder() {
		return ErrNotAFolder
	}

	return nil
}

// compensateUpload deletes an object whose metadata record never
// materialized. Failure here is logged for manual cleanup; there is no
// record to drive the janitor.
func (s *VaultService) compensateUpload(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete orphaned object",
			slog.String("object_key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.IncUploadCompensated()
}

// validateItemName checks name constraints shared by files and folders.
func validateItemName(name string) error {
	if name == "" || len(name) > maxItemNameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\x00") {
		return ErrInvalidName
	}
	return nil
}

// ensure interface satisfaction at compile time.
var (
	_ ItemRepository = (*repository.Repository)(nil)
	_ UserRepository = (*repository.Repository)(nil)
	_ ObjectStore    = (*storage.Store)(nil)
	_ URLCache       = (*cache.Cache)(nil)
)
