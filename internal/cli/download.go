// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newDownloadCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		console    string
		collection string
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download cataloged files, optionally filtered by console or collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(ro)
			if err != nil {
				return err
			}

			store, err := myrient.OpenSQLiteStore(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			st := myrient.DownloadStatus(status)
			if st == "" {
				st = myrient.StatusPending
			}
			files, err := store.List(ctx, myrient.ListFilter{
				Status:     st,
				Console:    console,
				Collection: myrient.Collection(collection),
				Limit:      limit,
			})
			if err != nil {
				return fmt.Errorf("list catalog: %w", err)
			}
			if len(files) == 0 {
				fmt.Println("nothing to download (no files match the given filters)")
				return nil
			}

			progress, closeUI := progressHandler(ro, cfg)
			defer closeUI()

			downloader := myrient.NewDownloader(cfg, store)
			result, err := downloader.DownloadAll(ctx, files, progress)
			if err != nil {
				return err
			}
			fmt.Printf("%d succeeded, %d failed, %d skipped\n", result.Successful, result.Failed, result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&console, "console", "", "Only download files for this console")
	cmd.Flags().StringVar(&collection, "collection", "", "Only download files from this collection (No-Intro, Redump, MAME, ...)")
	cmd.Flags().StringVar(&status, "status", string(myrient.StatusPending), "Only download files with this catalog status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of files to download (0 = unlimited)")

	return cmd
}
