// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Crawler recursively walks an origin's Apache/nginx directory listings,
// classifying and cataloging every file it finds while skipping anything
// that does not pass the configured include/exclude/size filters.
type Crawler struct {
	cfg    Config
	store  Store
	httpc  *http.Client
	mu     sync.Mutex
	visited map[string]struct{}
}

// NewCrawler builds a Crawler that records discoveries to store.
func NewCrawler(cfg Config, store Store) *Crawler {
	return &Crawler{
		cfg:     cfg,
		store:   store,
		httpc:   buildHTTPClient(cfg),
		visited: make(map[string]struct{}),
	}
}

// Crawl recursively lists startURL and its subdirectories up to maxDepth
// levels deep, cataloging every file that passes the configured filters.
// Errors listing an individual directory are reported via progress and
// swallowed so the rest of the crawl can continue.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxDepth int, progress ProgressFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	emit := progressEmitter(progress)

	c.mu.Lock()
	c.visited = make(map[string]struct{})
	c.mu.Unlock()

	c.crawlDir(ctx, startURL, maxDepth, emit)

	emit(ProgressEvent{Event: "done", Message: "crawl complete"})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (c *Crawler) crawlDir(ctx context.Context, dirURL string, depthLeft int, emit ProgressFunc) {
	if depthLeft <= 0 {
		return
	}

	c.mu.Lock()
	if _, seen := c.visited[dirURL]; seen {
		c.mu.Unlock()
		return
	}
	c.visited[dirURL] = struct{}{}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return
	default:
	}

	emit(ProgressEvent{Event: "crawl_dir", URL: dirURL, Path: dirURL})

	entries, err := c.listDirectory(ctx, dirURL)
	if err != nil {
		emit(ProgressEvent{Level: "error", Event: "error", URL: dirURL, Message: (&CrawlError{URL: dirURL, Err: err}).Error()})
		return
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir {
			subdirs = append(subdirs, entry.URL)
			continue
		}

		record := c.buildRecord(dirURL, entry)
		if !c.shouldInclude(record) {
			continue
		}

		inserted, err := c.store.UpsertDiscovery(ctx, record)
		if err != nil {
			emit(ProgressEvent{Level: "error", Event: "error", URL: entry.URL, Message: (&CatalogError{Op: "upsert", URL: entry.URL, Err: err}).Error()})
			continue
		}
		if inserted {
			emit(ProgressEvent{Event: "crawl_file", URL: record.URL, Path: record.Name, Total: record.Size})
		}
	}

	for _, subdir := range subdirs {
		c.crawlDir(ctx, subdir, depthLeft-1, emit)
	}
}

func (c *Crawler) buildRecord(dirURL string, entry ListingEntry) FileRecord {
	f := FileRecord{
		URL:        entry.URL,
		Name:       entry.Name,
		Size:       entry.Size,
		FileType:   fileTypeFromName(entry.Name),
		ParentPath: c.extractParentPath(dirURL),
		Status:     StatusPending,
		AddedAt:    time.Now().UTC(),
	}
	Classify(&f)
	return f
}

// extractParentPath strips the crawl's configured base URL path from a
// listing directory URL, yielding a catalog-relative path such as
// "No-Intro/Nintendo - Game Boy". dirURL's path is percent-decoded first,
// since directory segments with spaces (the common case) arrive encoded.
func (c *Crawler) extractParentPath(dirURL string) string {
	basePath := pathOf(c.cfg.BaseURL)
	p := strings.TrimSuffix(pathOf(dirURL), "/")
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	basePath = strings.TrimSuffix(basePath, "/")
	if strings.HasPrefix(p, basePath) {
		p = strings.TrimPrefix(p[len(basePath):], "/")
	}
	return p
}

func pathOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rawURL = rawURL[i+3:]
	}
	if i := strings.Index(rawURL, "/"); i >= 0 {
		return rawURL[i:]
	}
	return ""
}

// shouldInclude applies the include/exclude glob patterns and the
// optional size ceiling. A file with unknown size (Size == 0) is never
// excluded by MaxDownloadSize, since it cannot be compared.
func (c *Crawler) shouldInclude(f FileRecord) bool {
	if len(c.cfg.IncludePatterns) > 0 {
		matched := false
		for _, pattern := range c.cfg.IncludePatterns {
			if ok, _ := filepath.Match(pattern, f.Name); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range c.cfg.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, f.Name); ok {
			return false
		}
	}

	if c.cfg.MaxDownloadSize > 0 && f.Size > c.cfg.MaxDownloadSize {
		return false
	}

	return true
}

func (c *Crawler) listDirectory(ctx context.Context, dirURL string) ([]ListingEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, err
	}
	addHeaders(req, c.cfg.UserAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: dirURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return ParseListing(dirURL, strings.NewReader(string(body)))
}

// progressEmitter wraps a possibly-nil ProgressFunc so callers can invoke
// it unconditionally, stamping Time when the caller did not set one.
func progressEmitter(fn ProgressFunc) ProgressFunc {
	return func(ev ProgressEvent) {
		if fn == nil {
			return
		}
		if ev.Time.IsZero() {
			ev.Time = time.Now().UTC()
		}
		fn(ev)
	}
}
