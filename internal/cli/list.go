// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newListCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		status              string
		console             string
		collection          string
		limit               int
		offset              int
		distinctConsoles    bool
		distinctCollections bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged files, optionally filtered",
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

			if distinctConsoles {
				consoles, err := store.DistinctConsoles(ctx)
				if err != nil {
					return fmt.Errorf("distinct consoles: %w", err)
				}
				return printStrings(ro, consoles)
			}
			if distinctCollections {
				collections, err := store.DistinctCollections(ctx)
				if err != nil {
					return fmt.Errorf("distinct collections: %w", err)
				}
				names := make([]string, len(collections))
				for i, c := range collections {
					names[i] = string(c)
				}
				return printStrings(ro, names)
			}

			var files []myrient.FileRecord
			if collection != "" && status == "" && console == "" && offset == 0 {
				files, err = store.GamesByCollection(ctx, myrient.Collection(collection), limit)
			} else {
				files, err = store.List(ctx, myrient.ListFilter{
					Status:     myrient.DownloadStatus(status),
					Console:    console,
					Collection: myrient.Collection(collection),
					Limit:      limit,
					Offset:     offset,
				})
			}
			if err != nil {
				return fmt.Errorf("list catalog: %w", err)
			}

			if ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}

			if len(files) == 0 {
				fmt.Println("no files match")
				return nil
			}
			for _, f := range files {
				fmt.Printf("%-10s  %10s  %-24s  %s\n", f.Status, myrient.HumanizeBytes(f.Size), myrient.DefaultString(f.Console, "-"), f.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by catalog status (pending, downloading, completed, failed, paused)")
	cmd.Flags().StringVar(&console, "console", "", "Filter by console")
	cmd.Flags().StringVar(&collection, "collection", "", "Filter by collection")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset for pagination")
	cmd.Flags().BoolVar(&distinctConsoles, "distinct-consoles", false, "List every console present in the catalog instead of files")
	cmd.Flags().BoolVar(&distinctCollections, "distinct-collections", false, "List every collection present in the catalog instead of files")

	return cmd
}

// printStrings prints a flat list of strings, as JSON when ro.JSONOut is
// set or one per line otherwise.
func printStrings(ro *RootOpts, values []string) error {
	if ro.JSONOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}
