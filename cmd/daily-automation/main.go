package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TimDavid1111/daily-automation/internal/claude"
	"github.com/TimDavid1111/daily-automation/internal/config"
	"github.com/TimDavid1111/daily-automation/internal/dedup"
	"github.com/TimDavid1111/daily-automation/internal/doctor"
	"github.com/TimDavid1111/daily-automation/internal/event"
	"github.com/TimDavid1111/daily-automation/internal/log"
	"github.com/TimDavid1111/daily-automation/internal/notion"
	"github.com/TimDavid1111/daily-automation/internal/pipeline"
	"github.com/TimDavid1111/daily-automation/internal/runlog"
	"github.com/TimDavid1111/daily-automation/internal/tui/watch"
	"github.com/TimDavid1111/daily-automation/internal/webhook"
)

var version = "0.1.0-dev"

const runHistorySize = 200

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "serve":
		return runServe(args)
	case "doctor":
		return runDoctor(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		return runVersion()
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`daily-automation - Notion daily journal summarization service

Listens for Notion webhook events, summarizes meeting transcripts with
Claude, and writes a daily task page back to Notion.

Usage:
  daily-automation <command> [flags]

Commands:
  serve     Start the webhook service in foreground
  doctor    Validate configuration and report problems
  watch     Live monitor TUI for a running instance
  version   Show version information
  help      Show this help message

Configuration is read from a YAML file (--config) or, without one, from
environment variables: NOTION_TOKEN, NOTION_DATABASE_ID,
NOTION_PARENT_PAGE_ID, ANTHROPIC_API_KEY, WEBHOOK_SECRET, PORT,
LOG_LEVEL, STATE_PATH.
`)
}

// loadConfig reads the config file when one is given, otherwise builds the
// configuration from the environment.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.FromEnv()
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("daily-automation starting", "version", version, "listen", cfg.Listen)

	result := doctor.New(cfg).Validate()
	for _, w := range result.Warnings {
		logger.Warn("config check", "category", w.Category, "field", w.Field, "message", w.Message)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			logger.Error("config check", "category", e.Category, "field", e.Field, "message", e.Message)
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs := runlog.New(runHistorySize)
	opts := pipeline.Options{Runs: runs}

	if cfg.State.Path != "" {
		store, err := dedup.Open(ctx, cfg.State.Path)
		if err != nil {
			logger.Error("failed to open dedup store", "path", cfg.State.Path, "error", err)
			return 1
		}
		defer store.Close()
		logger.Info("dedup store opened", "path", cfg.State.Path)
		opts.Dedup = store
		opts.Key = dedup.Key
	} else {
		logger.Warn("no state path configured; duplicate deliveries will produce duplicate task pages")
	}

	filter := event.NewFilter(cfg.Notion.DatabaseID)
	notionClient := notion.New(cfg.Notion, log.WithComponent("notion"))
	claudeClient := claude.New(cfg.Claude, log.WithComponent("claude"))
	pipe := pipeline.New(filter, notionClient, claudeClient, notionClient,
		log.WithComponent("pipeline"), opts)

	server := webhook.New(cfg, pipe, runs, log.WithComponent("webhook"))

	err = server.Start(ctx)
	if err != nil && err != context.Canceled {
		logger.Error("server failed", "error", err)
		return 1
	}

	logger.Info("daily-automation stopped")
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output result as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8000", "Service base URL")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	m := watch.New(*baseURL)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

func runVersion() int {
	fmt.Printf("daily-automation %s\n", strings.TrimSpace(version))
	if commit := readBuildSetting("vcs.revision"); commit != "" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Printf("commit: %s\n", commit)
	}
	return 0
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
