package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cubbyhole/cubbyhole/internal/model"
)

// Common errors for item repository operations.
var (
	ErrItemNotFound = errors.New("item not found")
	ErrForbidden    = errors.New("item belongs to another owner")
)

const itemColumns = `id, owner_id, name, item_type, parent_id, size_bytes, object_key, deleted_at, created_at`

// CreateItem inserts a new file or folder record.
func (r *Repository) CreateItem(ctx context.Context, item *model.Item) error {
	query := `
		INSERT INTO items (id, owner_id, name, item_type, parent_id, size_bytes, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.OwnerID,
		item.Name,
		item.Type,
		item.ParentID,
		item.Size,
		item.ObjectKey,
		item.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetItem retrieves a live item by ID and checks ownership. A row owned
// by a different user surfaces as ErrForbidden so callers can report it
// distinctly from a missing row.
func (r *Repository) GetItem(ctx context.Context, ownerID, id string) (*model.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE id = $1 AND deleted_at IS NULL
	`

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if item.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	return item, nil
}

// ListItems retrieves the items directly under the given parent, newest
// first. A nil parentID lists the owner's root.
func (r *Repository) ListItems(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE owner_id = $1
		  AND deleted_at IS NULL
	`
	args := []any{ownerID}

	if parentID == nil {
		query += " AND parent_id IS NULL"
	} else {
		query += " AND parent_id = $2"
		args = append(args, *parentID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// HasChildren reports whether any item references the given folder as
// its parent. Rows marked deleting count too: they still hold a foreign
// key to the folder until the janitor removes them, so the folder
// cannot be deleted out from under them.
func (r *Repository) HasChildren(ctx context.Context, ownerID, id string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM items
			WHERE owner_id = $1 AND parent_id = $2
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, ownerID, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check folder children: %w", err)
	}

	return exists, nil
}

// MarkItemDeleting hides an item from all reads while its binary object
// is being removed. The row survives until DeleteItem so a failed object
// delete can be retried later.
func (r *Repository) MarkItemDeleting(ctx context.Context, ownerID, id string) error {
	query := `
		UPDATE items
		SET deleted_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark item deleting: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// DeleteItem removes an item record permanently.
func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

// ListDeletingFiles returns file records that were marked deleting
// before the given cutoff. The janitor uses this to finish deletes whose
// object removal failed.
func (r *Repository) ListDeletingFiles(ctx context.Context, olderThan time.Time, limit int) ([]*model.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE item_type = 'file'
		  AND deleted_at IS NOT NULL
		  AND deleted_at < $1
		ORDER BY deleted_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deleting files: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deleting file: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deleting files: %w", err)
	}

	return items, nil
}

// scanItem scans a single row into an Item model.
func scanItem(row pgx.Row) (*model.Item, error) {
	var item model.Item
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Name,
		&item.Type,
		&item.ParentID,
		&item.Size,
		&item.ObjectKey,
		&item.DeletedAt,
		&item.CreatedAt,
	)
	return &item, err
}
