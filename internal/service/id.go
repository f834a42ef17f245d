package service

import "github.com/oklog/ulid/v2"

// generateULID returns a lexicographically sortable unique identifier.
// Sortability keeps the (created_at, id) list ordering stable for items
// created in the same millisecond.
func generateULID() string {
	return ulid.Make().String()
}
