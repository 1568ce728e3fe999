// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/internal/tui"
	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	JSONOut  bool
	Quiet    bool
	Verbose  bool
	Config   string
	DB       string
	BaseURL  string
	LogFile  string
	LogLevel string
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "myrientdl",
		Short:         "Polite, resumable crawler and downloader for the Myrient archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(ro)
		},
	}

	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events (progress, results)")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (minimal logs)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "Verbose logs (debug details)")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&ro.DB, "db", "", "Path to the catalog SQLite database (overrides config)")
	root.PersistentFlags().StringVar(&ro.BaseURL, "base-url", "", "Archive base URL (overrides config)")
	root.PersistentFlags().StringVar(&ro.LogFile, "log-file", "", "Write logs to file (in addition to stderr)")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	crawlCmd := newCrawlCmd(ctx, ro)
	root.AddCommand(crawlCmd)
	root.AddCommand(newDownloadCmd(ctx, ro))
	root.AddCommand(newSearchCmd(ctx, ro))
	root.AddCommand(newListCmd(ctx, ro))
	root.AddCommand(newStatusCmd(ctx, ro))
	root.AddCommand(newServeCmd(ro))
	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newConfigCmd())

	// Make crawl the default command when no subcommand is given.
	root.RunE = crawlCmd.RunE
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func setupLogging(ro *RootOpts) error {
	lvl := slog.LevelInfo
	switch strings.ToLower(ro.LogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if ro.Verbose {
		lvl = slog.LevelDebug
	}
	if ro.Quiet {
		lvl = slog.LevelWarn
	}

	var w io.Writer = os.Stderr
	if ro.LogFile != "" {
		f, err := os.OpenFile(ro.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	var handler slog.Handler
	if ro.JSONOut {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// resolveConfig layers flags over a config file (explicit --config, or
// the first of ~/.config/myrientdl.{json,yaml,yml} found) over
// myrient.DefaultConfig.
func resolveConfig(ro *RootOpts) (myrient.Config, error) {
	path := ro.Config
	if path == "" {
		home, _ := os.UserHomeDir()
		for _, name := range []string{"myrientdl.json", "myrientdl.yaml", "myrientdl.yml"} {
			candidate := filepath.Join(home, ".config", name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	var cfg myrient.Config
	var err error
	if path != "" {
		cfg, err = myrient.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = myrient.DefaultConfig()
	}

	if ro.DB != "" {
		cfg.DatabasePath = ro.DB
	}
	if ro.BaseURL != "" {
		cfg.BaseURL = ro.BaseURL
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// progressHandler picks the progress renderer for ro's output mode:
// JSON lines, a quiet text log, or the live terminal renderer.
func progressHandler(ro *RootOpts, cfg myrient.Config) (myrient.ProgressFunc, func()) {
	if ro.JSONOut {
		return jsonProgress(os.Stdout), func() {}
	}
	if ro.Quiet {
		return cliProgress(), func() {}
	}
	ui := tui.NewLiveRenderer(cfg)
	return ui.Handler(), ui.Close
}

// cliProgress returns a simple text-based progress handler.
func cliProgress() myrient.ProgressFunc {
	return func(ev myrient.ProgressEvent) {
		switch ev.Event {
		case "crawl_dir":
			fmt.Printf("crawling: %s\n", ev.URL)
		case "crawl_file":
			fmt.Printf("found: %s (%d bytes)\n", ev.Path, ev.Total)
		case "retry":
			fmt.Printf("retry %s (attempt %d): %s\n", ev.Path, ev.Attempt, ev.Message)
		case "file_start":
			fmt.Printf("downloading: %s (%d bytes)\n", ev.Path, ev.Total)
		case "file_done":
			if strings.HasPrefix(ev.Message, "skip") {
				fmt.Printf("skip: %s %s\n", ev.Path, ev.Message)
			} else {
				fmt.Printf("done: %s\n", ev.Path)
			}
		case "error":
			fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
		case "done":
			fmt.Println(ev.Message)
		}
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) myrient.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev myrient.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}
