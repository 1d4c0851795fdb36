package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/errors"
	"github.com/hpungsan/tabshelf/internal/mcp"
	"github.com/hpungsan/tabshelf/internal/ops"
	"github.com/hpungsan/tabshelf/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, log *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "tabshelf",
		Usage:   "Local store for saved browser tabs",
		Version: Version,
		Commands: []*cli.Command{
			workspaceCmd(db),
			groupCmd(db),
			tabCmd(db),
			trashCmd(db, log),
			countCmd(db),
			searchCmd(db),
			serveCmd(db, cfg, log),
			mcpCmd(db, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// workspaceCmd creates the workspace command group.
func workspaceCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Manage workspaces",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a workspace",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Workspace name"},
					&cli.StringFlag{Name: "id", Usage: "Explicit id (default: generated)"},
					&cli.BoolFlag{Name: "default", Usage: "Make this the default workspace"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.CreateWorkspace(ctx, db, ops.CreateWorkspaceInput{
							ID:        c.String("id"),
							Name:      c.String("name"),
							IsDefault: c.Bool("default"),
						})
					})
				},
			},
			{
				Name:  "list",
				Usage: "List workspaces, oldest first",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ListWorkspaces(ctx, db)
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a workspace",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.GetWorkspace(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:  "default",
				Usage: "Show the default workspace",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ensure", Usage: "Create or promote one when none is marked default"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						if c.Bool("ensure") {
							return ops.EnsureDefaultWorkspace(ctx, db)
						}
						return ops.GetDefaultWorkspace(ctx, db)
					})
				},
			},
			{
				Name:      "update",
				Usage:     "Rename a workspace or change its default flag",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.BoolFlag{Name: "default", Usage: "Set (--default) or clear (--default=false) the default flag"},
				},
				Action: func(c *cli.Context) error {
					input := ops.UpdateWorkspaceInput{ID: c.Args().First()}
					if c.IsSet("name") {
						name := c.String("name")
						input.Name = &name
					}
					if c.IsSet("default") {
						isDefault := c.Bool("default")
						input.IsDefault = &isDefault
					}
					return run(c, func(ctx context.Context) (any, error) {
						return ops.UpdateWorkspace(ctx, db, input)
					})
				},
			},
			{
				Name:      "touch",
				Usage:     "Mark a workspace as just opened",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.TouchWorkspace(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Move a workspace to the trash",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "cascade", Usage: "Also trash its groups and tabs"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.DeleteWorkspace(ctx, db, ops.DeleteInput{ID: c.Args().First(), Cascade: c.Bool("cascade")})
					})
				},
			},
		},
	}
}

// groupCmd creates the group command group.
func groupCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Manage tab groups",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a tab group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Group name"},
					&cli.StringFlag{Name: "icon", Usage: "Icon"},
					&cli.StringFlag{Name: "id", Usage: "Explicit id (default: generated)"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Usage: "Slot (default: append)"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.CreateGroup(ctx, db, ops.CreateGroupInput{
							ID:          c.String("id"),
							WorkspaceID: c.String("workspace"),
							Name:        c.String("name"),
							Icon:        c.String("icon"),
							Position:    intFlag(c, "position"),
						})
					})
				},
			},
			{
				Name:  "list",
				Usage: "List tab groups in position order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Only this workspace"},
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include archived groups"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ListGroups(ctx, db, ops.ListGroupsInput{
							WorkspaceID:     c.String("workspace"),
							IncludeArchived: c.Bool("all"),
						})
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a tab group",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.GetGroup(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:  "at",
				Usage: "Show the group at a position",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Required: true, Usage: "Slot"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.GroupAtPosition(ctx, db, ops.PositionInput{ParentID: c.String("workspace"), Position: c.Int("position")})
					})
				},
			},
			{
				Name:      "update",
				Usage:     "Rename, move, or reposition a tab group",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "icon", Usage: "New icon"},
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Move to this workspace"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Usage: "New slot"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.UpdateGroup(ctx, db, ops.UpdateGroupInput{
							ID:          c.Args().First(),
							WorkspaceID: stringFlag(c, "workspace"),
							Name:        stringFlag(c, "name"),
							Icon:        stringFlag(c, "icon"),
							Position:    intFlag(c, "position"),
						})
					})
				},
			},
			{
				Name:      "archive",
				Usage:     "Archive a tab group",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ArchiveGroup(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "unarchive",
				Usage:     "Unarchive a tab group",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.UnarchiveGroup(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "reorder",
				Usage:     "Reorder every group in a workspace",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ReorderGroups(ctx, db, ops.ReorderInput{ParentID: c.String("workspace"), IDs: c.Args().Slice()})
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Move a tab group to the trash",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "cascade", Usage: "Also trash its tabs"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.DeleteGroup(ctx, db, ops.DeleteInput{ID: c.Args().First(), Cascade: c.Bool("cascade")})
					})
				},
			},
		},
	}
}

// tabCmd creates the tab command group.
func tabCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "tab",
		Usage: "Manage saved tabs",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Save a tab into a group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Group id"},
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Page URL"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title"},
					&cli.StringFlag{Name: "favicon", Usage: "Favicon URL"},
					&cli.StringFlag{Name: "id", Usage: "Explicit id (default: generated)"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Usage: "Slot (default: append)"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.CreateTab(ctx, db, ops.CreateTabInput{
							ID:       c.String("id"),
							GroupID:  c.String("group"),
							URL:      c.String("url"),
							Title:    c.String("title"),
							Favicon:  c.String("favicon"),
							Position: intFlag(c, "position"),
						})
					})
				},
			},
			{
				Name:  "list",
				Usage: "List tabs in position order",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Only this group"},
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include archived tabs"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ListTabs(ctx, db, ops.ListTabsInput{
							GroupID:         c.String("group"),
							IncludeArchived: c.Bool("all"),
						})
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a tab",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.GetTab(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:  "at",
				Usage: "Show the tab at a position",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Group id"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Required: true, Usage: "Slot"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.TabAtPosition(ctx, db, ops.PositionInput{ParentID: c.String("group"), Position: c.Int("position")})
					})
				},
			},
			{
				Name:      "update",
				Usage:     "Edit, move, or reposition a tab",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "New URL"},
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
					&cli.StringFlag{Name: "favicon", Usage: "New favicon URL"},
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Move to this group"},
					&cli.IntFlag{Name: "position", Aliases: []string{"p"}, Usage: "New slot"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.UpdateTab(ctx, db, ops.UpdateTabInput{
							ID:       c.Args().First(),
							GroupID:  stringFlag(c, "group"),
							URL:      stringFlag(c, "url"),
							Title:    stringFlag(c, "title"),
							Favicon:  stringFlag(c, "favicon"),
							Position: intFlag(c, "position"),
						})
					})
				},
			},
			{
				Name:      "archive",
				Usage:     "Archive a tab",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ArchiveTab(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "unarchive",
				Usage:     "Unarchive a tab",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.UnarchiveTab(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "reorder",
				Usage:     "Reorder every tab in a group",
				ArgsUsage: "<id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Group id"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ReorderTabs(ctx, db, ops.ReorderInput{ParentID: c.String("group"), IDs: c.Args().Slice()})
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Move a tab to the trash",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.DeleteTab(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
		},
	}
}

// trashCmd creates the trash command group.
func trashCmd(db *sql.DB, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "trash",
		Usage: "Inspect, restore, and purge deleted items",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List trashed items, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Only workspace|tabGroup|tab"},
					&cli.BoolFlag{Name: "expired", Usage: "Only items past the retention window"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						if c.Bool("expired") {
							return ops.ListExpired(ctx, db)
						}
						return ops.ListTrash(ctx, db, ops.ListTrashInput{Type: c.String("type")})
					})
				},
			},
			{
				Name:      "restore",
				Usage:     "Restore a trashed item",
				ArgsUsage: "<deleted-item-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "cascade", Usage: "Also restore items trashed in the same batch"},
				},
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.RestoreDeletedItem(ctx, db, ops.RestoreInput{ID: c.Args().First(), Cascade: c.Bool("cascade")})
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Permanently remove one trashed item",
				ArgsUsage: "<deleted-item-id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.PermanentDelete(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:  "purge",
				Usage: "Permanently remove expired items",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.PurgeExpired(ctx, db, log)
					})
				},
			},
			{
				Name:  "empty",
				Usage: "Permanently remove everything in the trash",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.EmptyTrash(ctx, db)
					})
				},
			},
		},
	}
}

// countCmd creates the count command group.
func countCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Count active tabs",
		Subcommands: []*cli.Command{
			{
				Name:      "group",
				Usage:     "Active tabs in a group",
				ArgsUsage: "<group-id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ActiveTabCount(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "workspace",
				Usage:     "Active tabs across a workspace's active groups",
				ArgsUsage: "<workspace-id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.ActiveWorkspaceTabCount(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
			{
				Name:      "summary",
				Usage:     "Per-group counts for a workspace",
				ArgsUsage: "<workspace-id>",
				Action: func(c *cli.Context) error {
					return run(c, func(ctx context.Context) (any, error) {
						return ops.WorkspaceSummary(ctx, db, ops.IDInput{ID: c.Args().First()})
					})
				},
			},
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find workspaces, groups, and tabs by text",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Only groups and tabs in this workspace"},
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Only tabs in this group"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max results per kind"},
		},
		Action: func(c *cli.Context) error {
			return run(c, func(ctx context.Context) (any, error) {
				return ops.Search(ctx, db, ops.SearchInput{
					Query:       c.Args().First(),
					WorkspaceID: c.String("workspace"),
					GroupID:     c.String("group"),
					Limit:       c.Int("limit"),
				})
			})
		},
	}
}

// serveCmd starts the local HTTP API.
func serveCmd(db *sql.DB, cfg *config.Config, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local HTTP API for the browser extension",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if c.IsSet("bind") {
				serveCfg.WebBind = c.String("bind")
			}
			if c.IsSet("port") {
				serveCfg.WebPort = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			srv := web.NewServer(db, &serveCfg, log, Version)
			if err := web.Run(ctx, srv, log); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// mcpCmd runs the MCP server on stdio, same as invoking with piped stdin.
func mcpCmd(db *sql.DB, cfg *config.Config, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := mcp.Run(ctx, db, cfg, log, Version); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// run executes fn and writes its result, or the error, for the CLI.
func run(c *cli.Context, fn func(context.Context) (any, error)) error {
	out, err := fn(c.Context)
	if err != nil {
		return outputError(err)
	}
	return outputJSON(c, out)
}

// outputJSON marshals result to the app's writer (stdout) as JSON.
func outputJSON(c *cli.Context, v any) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stringFlag returns a pointer to the flag value when it was set, nil otherwise.
func stringFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// intFlag returns a pointer to the flag value when it was set, nil otherwise.
func intFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}
