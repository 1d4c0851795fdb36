package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hpungsan/tabshelf/internal/config"
	"github.com/hpungsan/tabshelf/internal/db"
	"github.com/hpungsan/tabshelf/internal/logger"
	"github.com/hpungsan/tabshelf/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// homeEnv overrides the data directory (default ~/.tabshelf).
const homeEnv = "TABSHELF_HOME"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"workspace": true, "group": true, "tab": true,
	"trash": true, "count": true, "search": true,
	"serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _         _          _  __
  | |_ __ _| |__  ___| |__   ___| |/ _|
  | __/ _' | '_ \/ __| '_ \ / _ \ | |_
  | || (_| | |_) \__ \ | | |  __/ |  _|
   \__\__,_|_.__/|___/_| |_|\___|_|_|

  Local store for saved browser tabs

  Usage: tabshelf <command> [options]
         tabshelf --help

  MCP server mode requires piped input.`)
}

// baseDir resolves the data directory.
func baseDir() (string, error) {
	if dir := os.Getenv(homeEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, config.DirName), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, config.DefaultConfig(), logger.Discard())
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(dir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	log := logger.New(logger.Config{
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(cfg.LogLevel),
	})

	database, err := db.Open(dir, db.Options{
		DiscardOnRebuild: cfg.DiscardOnRebuild,
		Logger:           log,
	})
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode() {
		app := newCLIApp(database, cfg, log)
		if err := app.Run(os.Args); err != nil {
			database.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		database.Close()
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabshelf --help' for usage.\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := mcp.Run(ctx, database, cfg, log, Version); err != nil {
		log.Error("mcp server stopped", "error", err)
		database.Close()
		os.Exit(1)
	}
}
