// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JMit-dev/myrientDL/internal/server"
	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	var (
		addr string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server for browser-based crawling and downloads",
		Long: `Start an HTTP server that provides:
  - REST API for crawl/download job management, search, and catalog browsing
  - WebSocket for live job progress updates
  - Web UI status dashboard

Example:
  myrientdl serve
  myrientdl serve --port 3000`,
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

			srv := server.New(server.Config{
				Addr:          addr,
				Port:          port,
				MyrientConfig: cfg,
				Store:         store,
			})

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("myrientdl server listening on %s:%d\n", addr, port)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0", "Address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")

	return cmd
}
