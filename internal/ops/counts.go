package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/tabs"
)

// GroupSummary pairs a group with its tab counts.
type GroupSummary struct {
	Group      tabs.TabGroup `json:"group"`
	ActiveTabs int           `json:"activeTabs"`
	TotalTabs  int           `json:"totalTabs"`
}

// WorkspaceSummaryOutput contains the result of WorkspaceSummary.
type WorkspaceSummaryOutput struct {
	Workspace  tabs.Workspace `json:"workspace"`
	Groups     []GroupSummary `json:"groups"`
	ActiveTabs int            `json:"activeTabs"`
}

// ActiveTabCount counts the non-archived tabs of a group. An unknown group
// counts zero.
func ActiveTabCount(ctx context.Context, database *sql.DB, input IDInput) (*CountOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	all, err := db.ListTabsByGroup(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &CountOutput{ID: id, Count: len(activeTabs(all))}, nil
}

// ActiveWorkspaceTabCount counts non-archived tabs in the non-archived groups
// of a workspace. Both reads share one transaction.
func ActiveWorkspaceTabCount(ctx context.Context, database *sql.DB, input IDInput) (*CountOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var count int
	err = db.WithReadTx(ctx, database, func(tx *sql.Tx) error {
		groups, err := db.ListGroupsByWorkspace(ctx, tx, id, false)
		if err != nil {
			return err
		}
		active := make(map[string]bool, len(groups))
		for _, g := range groups {
			active[g.ID] = true
		}

		candidates, err := db.ListActiveTabs(ctx, tx)
		if err != nil {
			return err
		}
		for _, t := range candidates {
			if active[t.GroupID] {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CountOutput{ID: id, Count: count}, nil
}

// WorkspaceSummary reports every group of a workspace, archived included,
// with per-group counts. ActiveTabs only counts tabs in active groups.
func WorkspaceSummary(ctx context.Context, database *sql.DB, input IDInput) (*WorkspaceSummaryOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	var out *WorkspaceSummaryOutput
	err = db.WithReadTx(ctx, database, func(tx *sql.Tx) error {
		w, err := db.GetWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		groups, err := db.ListGroupsByWorkspace(ctx, tx, id, true)
		if err != nil {
			return err
		}

		out = &WorkspaceSummaryOutput{Workspace: *w, Groups: make([]GroupSummary, 0, len(groups))}
		for _, g := range groups {
			all, err := db.ListTabsByGroup(ctx, tx, g.ID)
			if err != nil {
				return err
			}
			summary := GroupSummary{Group: g, ActiveTabs: len(activeTabs(all)), TotalTabs: len(all)}
			if !g.IsArchived {
				out.ActiveTabs += summary.ActiveTabs
			}
			out.Groups = append(out.Groups, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
