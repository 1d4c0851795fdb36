package ops

import (
	"strings"

	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// tempPosition parks sibling i below zero while siblings are renumbered, so no
// intermediate state collides on the (parent, position) index.
func tempPosition(i int) int {
	return -(i + 1)
}

// IDInput addresses a single record.
type IDInput struct {
	ID string `json:"id"`
}

// PositionInput addresses the sibling at a position under a parent.
type PositionInput struct {
	ParentID string `json:"parentId"`
	Position int    `json:"position"`
}

// ReorderInput lists every sibling id under ParentID in the desired order.
type ReorderInput struct {
	ParentID string   `json:"parentId"`
	IDs      []string `json:"ids"`
}

// DeleteInput moves a record to the trash.
type DeleteInput struct {
	ID string `json:"id"`

	// Cascade also trashes children in the same batch.
	Cascade bool `json:"cascade,omitempty"`
}

// DeleteOutput contains the result of a delete.
type DeleteOutput struct {
	DeletedItemID    string        `json:"deletedItemId"`
	Type             tabs.ItemType `json:"type"`
	OriginalLocation string        `json:"originalLocation"`
	Cascaded         int           `json:"cascaded"`
}

// CountOutput is returned by the aggregate counts.
type CountOutput struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}

// idOrNew returns the caller-supplied id, or a fresh ULID when blank.
func idOrNew(id string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	generated, err := tabs.NewID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return generated, nil
}

// checkReorder verifies ids is a permutation of current.
func checkReorder(ids, current []string) error {
	if len(ids) != len(current) {
		return errors.NewInvalidRequest("ids must list every sibling exactly once")
	}
	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !want[id] || seen[id] {
			return errors.NewInvalidRequest("ids must list every sibling exactly once")
		}
		seen[id] = true
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
