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

func newSearchCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		console    string
		collection string
		limit      int
		minScore   int
		substring  bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the local catalog by name, console, region, or collection",
		Args:  cobra.ExactArgs(1),
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

			if substring {
				files, err := store.SearchByNameSubstring(ctx, args[0], limit)
				if err != nil {
					return fmt.Errorf("search by name substring: %w", err)
				}
				if ro.JSONOut {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(files)
				}
				if len(files) == 0 {
					fmt.Println("no matches")
					return nil
				}
				for _, f := range files {
					fmt.Printf("%-24s  %s\n", f.Console, f.Name)
				}
				return nil
			}

			searcher := myrient.NewSearcher(store)
			results, err := searcher.Search(ctx, args[0], myrient.SearchOptions{
				Console:    console,
				Collection: myrient.Collection(collection),
				Limit:      limit,
				MinScore:   minScore,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%3d  %-8s  %-24s  %s\n", r.Score, r.MatchType, r.File.Console, r.File.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&console, "console", "", "Restrict search to this console")
	cmd.Flags().StringVar(&collection, "collection", "", "Restrict search to this collection")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 = default)")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "Minimum match score to include (0 = default)")
	cmd.Flags().BoolVar(&substring, "substring", false, "Plain case-insensitive substring match on name instead of fuzzy search")

	return cmd
}
