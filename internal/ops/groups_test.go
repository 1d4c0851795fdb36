package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/tabshelf/internal/errors"
)

func TestCreateGroup_AppendsWhenPositionOmitted(t *testing.T) {
	database := setupTestDB(t)
	mustWorkspace(t, database, "w1", true)

	g1 := mustGroup(t, database, "g1", "w1")
	g2 := mustGroup(t, database, "g2", "w1")
	if g1.Position != 0 || g2.Position != 1 {
		t.Errorf("positions = %d, %d; want 0, 1", g1.Position, g2.Position)
	}
}

func TestCreateGroup_MissingWorkspace(t *testing.T) {
	database := setupTestDB(t)

	_, err := CreateGroup(context.Background(), database, CreateGroupInput{ID: "g1", WorkspaceID: "nope", Name: "Docs"})
	assertCode(t, err, errors.ErrNotFound)
}

func TestCreateGroup_NegativePosition(t *testing.T) {
	database := setupTestDB(t)
	mustWorkspace(t, database, "w1", true)

	_, err := CreateGroup(context.Background(), database, CreateGroupInput{WorkspaceID: "w1", Name: "Docs", Position: intPtr(-1)})
	assertCode(t, err, errors.ErrInvalidRequest)
}

// Siblings never share a position; a collision leaves the store unchanged.
func TestCreateGroup_PositionUniqueness(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustWorkspace(t, database, "w2", false)

	if _, err := CreateGroup(ctx, database, CreateGroupInput{ID: "g1", WorkspaceID: "w1", Name: "A", Position: intPtr(0)}); err != nil {
		t.Fatalf("create g1: %v", err)
	}
	_, err := CreateGroup(ctx, database, CreateGroupInput{ID: "g2", WorkspaceID: "w1", Name: "B", Position: intPtr(0)})
	sErr := assertCode(t, err, errors.ErrDuplicatePosition)
	if sErr.Details["occupant_id"] != "g1" {
		t.Errorf("occupant_id = %v, want g1", sErr.Details["occupant_id"])
	}

	groups, err := ListGroups(ctx, database, ListGroupsInput{WorkspaceID: "w1", IncludeArchived: true})
	if err != nil || len(groups) != 1 {
		t.Errorf("groups after failed create = %v, %v", groups, err)
	}

	// Same slot in another workspace is fine.
	if _, err := CreateGroup(ctx, database, CreateGroupInput{ID: "g3", WorkspaceID: "w2", Name: "C", Position: intPtr(0)}); err != nil {
		t.Errorf("create g3 in w2: %v", err)
	}
}

func TestUpdateGroup_PositionPreCheck(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustGroup(t, database, "g1", "w1")
	mustGroup(t, database, "g2", "w1")

	_, err := UpdateGroup(ctx, database, UpdateGroupInput{ID: "g2", Position: intPtr(0)})
	sErr := assertCode(t, err, errors.ErrDuplicatePosition)
	if sErr.Details["occupant_id"] != "g1" {
		t.Errorf("occupant_id = %v, want g1", sErr.Details["occupant_id"])
	}

	// Re-asserting its own slot is not a collision.
	if _, err := UpdateGroup(ctx, database, UpdateGroupInput{ID: "g2", Position: intPtr(1), Name: stringPtr("Renamed")}); err != nil {
		t.Errorf("update own slot: %v", err)
	}

	g, err := UpdateGroup(ctx, database, UpdateGroupInput{ID: "g2", Position: intPtr(5)})
	if err != nil || g.Position != 5 || g.Name != "Renamed" {
		t.Errorf("move to 5 = %+v, %v", g, err)
	}
}

func TestUpdateGroup_MoveAcrossWorkspaces(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustWorkspace(t, database, "w2", false)
	mustGroup(t, database, "g1", "w1")
	mustGroup(t, database, "g2", "w2")

	moved, err := UpdateGroup(ctx, database, UpdateGroupInput{ID: "g1", WorkspaceID: stringPtr("w2")})
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if moved.WorkspaceID != "w2" || moved.Position != 1 {
		t.Errorf("moved = %+v; want w2 at position 1", moved)
	}

	_, err = UpdateGroup(ctx, database, UpdateGroupInput{ID: "g1", WorkspaceID: stringPtr("ghost")})
	assertCode(t, err, errors.ErrNotFound)
}

func TestArchiveGroup(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustGroup(t, database, "g1", "w1")
	mustGroup(t, database, "g2", "w1")

	archived, err := ArchiveGroup(ctx, database, IDInput{ID: "g1"})
	if err != nil {
		t.Fatalf("ArchiveGroup failed: %v", err)
	}
	if !archived.IsArchived || archived.ArchivedAt == nil {
		t.Errorf("archived = %+v", archived)
	}

	active, _ := ListGroups(ctx, database, ListGroupsInput{WorkspaceID: "w1"})
	if len(active) != 1 || active[0].ID != "g2" {
		t.Errorf("active groups = %v", active)
	}
	everything, _ := ListGroups(ctx, database, ListGroupsInput{IncludeArchived: true})
	if len(everything) != 2 {
		t.Errorf("all groups = %v", everything)
	}

	restored, err := UnarchiveGroup(ctx, database, IDInput{ID: "g1"})
	if err != nil {
		t.Fatalf("UnarchiveGroup failed: %v", err)
	}
	if restored.IsArchived || restored.ArchivedAt != nil {
		t.Errorf("unarchived = %+v", restored)
	}
}

func TestGroupAtPosition(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustGroup(t, database, "g1", "w1")
	mustGroup(t, database, "g2", "w1")

	g, err := GroupAtPosition(ctx, database, PositionInput{ParentID: "w1", Position: 1})
	if err != nil || g.ID != "g2" {
		t.Errorf("GroupAtPosition(w1, 1) = %v, %v", g, err)
	}
	_, err = GroupAtPosition(ctx, database, PositionInput{ParentID: "w1", Position: 9})
	assertCode(t, err, errors.ErrNotFound)
}

func TestReorderGroups(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustGroup(t, database, "g1", "w1")
	mustGroup(t, database, "g2", "w1")
	mustGroup(t, database, "g3", "w1")

	ordered, err := ReorderGroups(ctx, database, ReorderInput{ParentID: "w1", IDs: []string{"g3", "g1", "g2"}})
	if err != nil {
		t.Fatalf("ReorderGroups failed: %v", err)
	}
	want := []string{"g3", "g1", "g2"}
	for i, g := range ordered {
		if g.ID != want[i] || g.Position != i {
			t.Errorf("ordered[%d] = %s@%d, want %s@%d", i, g.ID, g.Position, want[i], i)
		}
	}

	_, err = ReorderGroups(ctx, database, ReorderInput{ParentID: "w1", IDs: []string{"g1", "g2"}})
	assertCode(t, err, errors.ErrInvalidRequest)
}

func TestDeleteGroup_Cascade(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	mustWorkspace(t, database, "w1", true)
	mustGroup(t, database, "g1", "w1")
	mustTab(t, database, "t1", "g1")
	mustTab(t, database, "t2", "g1")

	out, err := DeleteGroup(ctx, database, DeleteInput{ID: "g1", Cascade: true})
	if err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if out.Cascaded != 2 {
		t.Errorf("Cascaded = %d, want 2", out.Cascaded)
	}
	if out.OriginalLocation != "Workspace w1 / Group g1" {
		t.Errorf("OriginalLocation = %q", out.OriginalLocation)
	}

	remaining, _ := ListTabs(ctx, database, ListTabsInput{IncludeArchived: true})
	if len(remaining) != 0 {
		t.Errorf("tabs after cascade = %v", remaining)
	}
	trash, _ := ListTrash(ctx, database, ListTrashInput{})
	if trash.Total != 3 {
		t.Errorf("trash total = %d, want 3", trash.Total)
	}
}
