// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package myrient provides a Go library for politely crawling, cataloging,
and downloading files from hierarchical HTTP archives such as Myrient's
Apache/nginx directory listings of game preservation collections.

# Features

  - Recursive, bounded-depth crawling of directory listings
  - Classification of files by console, region, and collection
  - A pluggable catalog store recording every discovered file and its
    download state
  - Resumable, checksummed downloads via HTTP byte ranges
  - Per-host rate limiting and two-tier (global + per-host) concurrency
  - A name/console/collection/region search engine over the catalog

# Quick Start

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/JMit-dev/myrientDL/pkg/myrient"
	)

	func main() {
		cfg := myrient.DefaultConfig()

		store, err := myrient.OpenSQLiteStore(cfg.DatabasePath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()

		crawler := myrient.NewCrawler(cfg, store)
		err = crawler.Crawl(context.Background(), cfg.BaseURL, 4, func(e myrient.ProgressEvent) {
			fmt.Printf("[%s] %s\n", e.Event, e.Path)
		})
		if err != nil {
			log.Fatal(err)
		}
	}

# Progress Events

The ProgressFunc callback receives events throughout crawling and
downloading:

  - crawl_dir: a directory was visited
  - crawl_file: a file was discovered and cataloged
  - file_start: a file download has started
  - file_progress: periodic progress update during download
  - file_done: a file download completed (or was skipped)
  - retry: a retry attempt is being made
  - search_done: reserved name; the Searcher does not emit it
  - error: an error occurred (crawling and downloading continue past it)
  - done: the whole operation finished

# Resume Behavior

Downloads resume from an existing ".part" file when the origin supports
byte ranges. The bytes already on disk are re-hashed before the range
request is issued so the final checksum still covers the whole file.

# Verification

Config.VerifyChecksums controls whether SHA-256 verification runs after
a download completes. TorrentZip CRC-32 metadata, when present in a
filename, is recorded but is advisory only — see Verify in verify.go.

# Concurrency

Two levels of concurrency are configurable via Config.Concurrency:

  - Global: maximum files downloading across all hosts at once
  - PerHost: maximum files downloading from a single host at once

A per-host token bucket additionally paces request rate within that
concurrency budget; see RateLimiter.
*/
package myrient
