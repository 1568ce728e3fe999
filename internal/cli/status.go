// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newStatusCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		checkRobots bool
		console     string
		trending    int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog statistics and, optionally, trending titles",
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

			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			var robots string
			if checkRobots {
				robots, err = myrient.GetRobotsTxt(ctx, cfg)
				if err != nil {
					robots = fmt.Sprintf("(unavailable: %s)", err)
				}
			}

			var popular []myrient.FileRecord
			if trending > 0 {
				searcher := myrient.NewSearcher(store)
				popular, err = searcher.Popular(ctx, console, trending)
				if err != nil {
					return fmt.Errorf("popular: %w", err)
				}
			}

			if ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"stats":    stats,
					"robots":   robots,
					"trending": popular,
				})
			}

			printStats(stats)
			if checkRobots {
				fmt.Println()
				fmt.Println("robots.txt:")
				fmt.Println(robots)
			}
			if len(popular) > 0 {
				fmt.Println()
				fmt.Println("trending:")
				for _, f := range popular {
					fmt.Printf("  %-24s  %s\n", f.Console, f.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkRobots, "check-robots", false, "Fetch and print the archive's robots.txt")
	cmd.Flags().StringVar(&console, "console", "", "Restrict trending titles to this console")
	cmd.Flags().IntVar(&trending, "trending", 0, "Show this many trending titles (0 = off)")

	return cmd
}

func printStats(stats myrient.CatalogStats) {
	fmt.Printf("total size:       %s\n", myrient.HumanizeBytes(stats.TotalSize))
	fmt.Printf("downloaded:       %s\n", myrient.HumanizeBytes(stats.DownloadedBytes))

	fmt.Println("by status:")
	statuses := make([]string, 0, len(stats.StatusCounts))
	for s := range stats.StatusCounts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Printf("  %-12s  %d\n", s, stats.StatusCounts[myrient.DownloadStatus(s)])
	}

	fmt.Println("by console:")
	consoles := make([]string, 0, len(stats.ConsoleCounts))
	for c := range stats.ConsoleCounts {
		consoles = append(consoles, c)
	}
	sort.Strings(consoles)
	for _, c := range consoles {
		fmt.Printf("  %-32s  %d\n", c, stats.ConsoleCounts[c])
	}
}
