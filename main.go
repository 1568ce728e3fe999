// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

var Version = "0.1.0"

// Global (root) CLI options for the standalone fetch tool.
type rootOpts struct {
	jsonOut bool
	quiet   bool
	config  string
}

func main() {
	ro := &rootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	var (
		output      string
		concurrency int
		perHost     int
		retries     int
		verify      bool
		console     string
	)

	root := &cobra.Command{
		Use:           "myrientdl-fetch URL",
		Short:         "Fetch a single file directly from its Myrient URL",
		Long: `myrientdl-fetch downloads one file straight from a fully-qualified
Myrient URL, without crawling or a catalog database. It is the quick
equivalent of "curl -O" with resume and retries. With no catalog there is
no expected checksum to verify against; the file's SHA-256 is computed
but not compared.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(ro)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.DownloadRoot = output
			}
			if concurrency > 0 {
				cfg.Concurrency.Global = concurrency
			}
			if perHost > 0 {
				cfg.Concurrency.PerHost = perHost
			}
			if retries > 0 {
				cfg.Retries.MaxAttempts = retries
			}
			cfg.VerifyChecksums = verify

			rec, err := fileRecordFromURL(args[0], console)
			if err != nil {
				return err
			}

			downloader := myrient.NewDownloader(cfg, nil)
			progress := cliProgress(ro)
			if err := downloader.DownloadOne(ctx, rec, progress); err != nil {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&ro.jsonOut, "json", false, "Emit machine-readable JSON progress events")
	root.PersistentFlags().BoolVarP(&ro.quiet, "quiet", "q", false, "Quiet mode (errors and summary only)")
	root.PersistentFlags().StringVar(&ro.config, "config", "", "Path to a myrientdl config file (JSON or YAML) to base defaults on")

	root.Flags().StringVarP(&output, "output", "o", "", "Destination directory (overrides config's downloadRoot)")
	root.Flags().IntVarP(&concurrency, "connections", "c", 0, "Global concurrency override")
	root.Flags().IntVar(&perHost, "per-host", 0, "Per-host concurrency override")
	root.Flags().IntVar(&retries, "retries", 0, "Max retry attempts override")
	root.Flags().BoolVar(&verify, "verify", true, "Verify checksum when the catalog has one on record")
	root.Flags().StringVar(&console, "console", "", "Console/platform label to file the download under (inferred from the URL path when omitted)")

	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		if ro.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			_ = enc.Encode(map[string]any{"level": "error", "error": err.Error()})
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// signalContext cancels when the user hits Ctrl-C or the process receives SIGTERM.
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

// resolveConfig loads a config file when --config is given, or falls back
// to the package defaults. Unlike the full CLI, this tool never searches
// a default config path: a quick one-off fetch should not silently pick up
// whatever catalog configuration happens to live in ~/.config.
func resolveConfig(ro *rootOpts) (myrient.Config, error) {
	if ro.config == "" {
		return myrient.DefaultConfig(), nil
	}
	return myrient.LoadConfig(ro.config)
}

// fileRecordFromURL builds the minimal FileRecord DownloadOne needs from a
// raw URL and classifies it from the URL's full directory path. Unlike
// the crawler, it does not strip the configured base URL's path first, so
// for URLs under /files/ the first segment is "files" and Collection comes
// out as Unknown; Console and Region are still inferred.
func fileRecordFromURL(rawURL, consoleOverride string) (myrient.FileRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return myrient.FileRecord{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return myrient.FileRecord{}, errors.New("URL must be absolute (include scheme and host)")
	}

	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil || name == "" || name == "." || name == "/" {
		return myrient.FileRecord{}, errors.New("URL has no file name component")
	}

	rec := myrient.FileRecord{
		URL:        rawURL,
		Name:       name,
		ParentPath: path.Dir(u.Path),
		FileType:   strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")),
		AddedAt:    time.Now().UTC(),
		Status:     myrient.StatusPending,
	}
	myrient.Classify(&rec)
	if consoleOverride != "" {
		rec.Console = consoleOverride
	}
	return rec, nil
}

// cliProgress returns a progress callback honoring JSON/quiet modes, or a
// live cheggaaa/pb bar for an interactive terminal.
func cliProgress(ro *rootOpts) myrient.ProgressFunc {
	if ro.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		return func(ev myrient.ProgressEvent) {
			_ = enc.Encode(ev)
		}
	}
	if ro.quiet {
		return func(ev myrient.ProgressEvent) {
			if ev.Level == "error" || ev.Event == "done" {
				fmt.Fprintf(os.Stderr, "%s\n", ev.Message)
			}
		}
	}
	return newBarProgress().Handler()
}
