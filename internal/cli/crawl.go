// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newCrawlCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "crawl [START_URL]",
		Short: "Crawl an archive directory into the local catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(ro)
			if err != nil {
				return err
			}

			startURL := cfg.BaseURL
			if len(args) > 0 {
				startURL = args[0]
			}

			store, err := myrient.OpenSQLiteStore(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			progress, closeUI := progressHandler(ro, cfg)
			defer closeUI()

			crawler := myrient.NewCrawler(cfg, store)
			return crawler.Crawl(ctx, startURL, maxDepth, progress)
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 5, "Maximum directory recursion depth")

	return cmd
}
