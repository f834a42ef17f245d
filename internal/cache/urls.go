package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cubbyhole/cubbyhole/internal/storage"
)

// Presigned URL cache keys and TTL.
const (
	downloadURLPrefix = "url:dl:"
	previewURLPrefix  = "url:pv:"

	// URLCacheTTL must stay comfortably below the presign expiry so a
	// cached URL is never handed out after the store stops honoring it.
	URLCacheTTL = 10 * time.Minute
)

// GetDownloadURL retrieves a cached presigned download URL for an object
// key. Returns ErrCacheMiss if not found.
func (c *Cache) GetDownloadURL(ctx context.Context, objectKey string) (storage.SignedURL, error) {
	return c.getURL(ctx, downloadURLPrefix+objectKey)
}

// SetDownloadURL caches a presigned download URL with its expiry.
func (c *Cache) SetDownloadURL(ctx context.Context, objectKey string, u storage.SignedURL) error {
	return c.setURL(ctx, downloadURLPrefix+objectKey, u)
}

// GetPreviewURL retrieves a cached presigned preview URL for an object
// key. Returns ErrCacheMiss if not found.
func (c *Cache) GetPreviewURL(ctx context.Context, objectKey string) (storage.SignedURL, error) {
	return c.getURL(ctx, previewURLPrefix+objectKey)
}

// SetPreviewURL caches a presigned preview URL with its expiry.
func (c *Cache) SetPreviewURL(ctx context.Context, objectKey string, u storage.SignedURL) error {
	return c.setURL(ctx, previewURLPrefix+objectKey, u)
}

func (c *Cache) getURL(ctx context.Context, key string) (storage.SignedURL, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.SignedURL{}, ErrCacheMiss
		}
		return storage.SignedURL{}, fmt.Errorf("redis get failed: %w", err)
	}

	u, ok := decodeSignedURL(value)
	if !ok {
		// An entry in an unreadable format is treated as a miss.
		return storage.SignedURL{}, ErrCacheMiss
	}

	return u, nil
}

func (c *Cache) setURL(ctx context.Context, key string, u storage.SignedURL) error {
	if err := c.client.SetEx(ctx, key, encodeSignedURL(u), URLCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache url: %w", err)
	}

	return nil
}

// encodeSignedURL packs the expiry in front of the URL so a cache hit
// reports when the URL actually stops working, not when it was read.
func encodeSignedURL(u storage.SignedURL) string {
	return fmt.Sprintf("%d|%s", u.ExpiresAt.Unix(), u.URL)
}

func decodeSignedURL(value string) (storage.SignedURL, bool) {
	expiry, url, ok := strings.Cut(value, "|")
	if !ok {
		return storage.SignedURL{}, false
	}

	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return storage.SignedURL{}, false
	}

	return storage.SignedURL{
		URL:       url,
		ExpiresAt: time.Unix(unix, 0).UTC(),
	}, true
}
