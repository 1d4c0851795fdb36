package tabs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RetentionPeriod is how long a deleted item stays restorable.
const RetentionPeriod = 14 * 24 * time.Hour

// RetentionMillis is RetentionPeriod in Unix milliseconds.
const RetentionMillis = int64(RetentionPeriod / time.Millisecond)

// DeletedItem is a tombstone holding the full prior state of a workspace,
// tab group, or tab. Data is the JSON snapshot; Type says how to read it.
type DeletedItem struct {
	ID               string          `json:"id"`
	Type             ItemType        `json:"type"`
	Data             json.RawMessage `json:"data"`
	DeletedAt        int64           `json:"deletedAt"`
	OriginalLocation string          `json:"originalLocation"`
	ParentID         *string         `json:"parentId,omitempty"`

	// BatchID is set on children trashed along with a parent; it holds the
	// parent's tombstone id.
	BatchID *string `json:"batchId,omitempty"`
}

// NewDeletedItem snapshots e into a tombstone.
func NewDeletedItem(id string, e Entity, deletedAt int64, location string, batchID *string) (*DeletedItem, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s: %w", e.Kind(), e.EntityID(), err)
	}

	item := &DeletedItem{
		ID:               id,
		Type:             e.Kind(),
		Data:             data,
		DeletedAt:        deletedAt,
		OriginalLocation: location,
		BatchID:          batchID,
	}
	if parent := e.Parent(); parent != "" {
		item.ParentID = &parent
	}
	return item, nil
}

// ExpiresAt returns the Unix millisecond instant after which the item can no
// longer be restored.
func (d *DeletedItem) ExpiresAt() int64 {
	return d.DeletedAt + RetentionMillis
}

// IsExpired reports whether now is strictly past the retention window.
func (d *DeletedItem) IsExpired(now int64) bool {
	return now-d.DeletedAt > RetentionMillis
}

// DaysRemaining returns whole days left before expiry, rounded up, never negative.
func (d *DeletedItem) DaysRemaining(now int64) int {
	left := d.ExpiresAt() - now
	if left <= 0 {
		return 0
	}
	day := int64(24 * time.Hour / time.Millisecond)
	return int((left + day - 1) / day)
}

// Payload decodes and validates the snapshot according to Type.
func (d *DeletedItem) Payload() (Entity, error) {
	return DecodePayload(d.Type, d.Data)
}

// Workspace returns the snapshot as a Workspace.
func (d *DeletedItem) Workspace() (*Workspace, error) {
	var w Workspace
	if err := decodeInto(d.Type, TypeWorkspace, d.Data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Group returns the snapshot as a TabGroup.
func (d *DeletedItem) Group() (*TabGroup, error) {
	var g TabGroup
	if err := decodeInto(d.Type, TypeTabGroup, d.Data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Tab returns the snapshot as a Tab.
func (d *DeletedItem) Tab() (*Tab, error) {
	var t Tab
	if err := decodeInto(d.Type, TypeTab, d.Data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DecodePayload reads data as the entity named by typ. Unknown fields are
// rejected so a payload cannot pass as a different entity type, and the result
// must pass Validate.
func DecodePayload(typ ItemType, data []byte) (Entity, error) {
	var e Entity
	switch typ {
	case TypeWorkspace:
		e = &Workspace{}
	case TypeTabGroup:
		e = &TabGroup{}
	case TypeTab:
		e = &Tab{}
	default:
		return nil, fmt.Errorf("unknown deleted item type %q", typ)
	}
	if err := decodeInto(typ, typ, data, e); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeInto(have, want ItemType, data []byte, dst any) error {
	if have != want {
		return fmt.Errorf("deleted item holds a %s, not a %s", have, want)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", want, err)
	}
	if err := Validate(dst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", want, err)
	}
	return nil
}
