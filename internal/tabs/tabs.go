// Package tabs defines the workspace, tab group, tab, and deleted item records
// persisted by tabshelf.
package tabs

// ItemType identifies which collection an entity belongs to.
type ItemType string

const (
	TypeWorkspace ItemType = "workspace"
	TypeTabGroup  ItemType = "tabGroup"
	TypeTab       ItemType = "tab"
)

// ParseItemType validates a raw type string.
func ParseItemType(s string) (ItemType, bool) {
	switch ItemType(s) {
	case TypeWorkspace, TypeTabGroup, TypeTab:
		return ItemType(s), true
	}
	return "", false
}

// Entity is implemented by every record that can be moved to the trash.
type Entity interface {
	EntityID() string
	Kind() ItemType
	// Parent returns the immediate parent id, or "" for workspaces.
	Parent() string
}

// Workspace is a top-level named container for tab groups.
// Timestamps are Unix milliseconds.
type Workspace struct {
	ID             string `json:"id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	IsDefault      bool   `json:"isDefault"`
	CreatedAt      int64  `json:"createdAt"`
	LastAccessedAt int64  `json:"lastAccessedAt"`
}

func (w *Workspace) EntityID() string { return w.ID }
func (w *Workspace) Kind() ItemType   { return TypeWorkspace }
func (w *Workspace) Parent() string   { return "" }

// TabGroup is a named, ordered container of tabs within a workspace.
// Position is unique among groups sharing WorkspaceID.
type TabGroup struct {
	ID          string `json:"id" validate:"required"`
	WorkspaceID string `json:"workspaceId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Icon        string `json:"icon"`
	Position    int    `json:"position" validate:"min=0"`
	IsArchived  bool   `json:"isArchived"`
	ArchivedAt  *int64 `json:"archivedAt,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

func (g *TabGroup) EntityID() string { return g.ID }
func (g *TabGroup) Kind() ItemType   { return TypeTabGroup }
func (g *TabGroup) Parent() string   { return g.WorkspaceID }

// Tab is a single saved browser tab within a group.
// Position is unique among tabs sharing GroupID.
type Tab struct {
	ID         string `json:"id" validate:"required"`
	GroupID    string `json:"groupId" validate:"required"`
	URL        string `json:"url" validate:"required"`
	Title      string `json:"title"`
	Favicon    string `json:"favicon"`
	Position   int    `json:"position" validate:"min=0"`
	IsArchived bool   `json:"isArchived"`
	ArchivedAt *int64 `json:"archivedAt,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
}

func (t *Tab) EntityID() string { return t.ID }
func (t *Tab) Kind() ItemType   { return TypeTab }
func (t *Tab) Parent() string   { return t.GroupID }
