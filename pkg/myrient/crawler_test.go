// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const rootListingHTML = `
<html><body><table>
<tr><td><a href="../">Parent Directory</a></td><td></td></tr>
<tr><td><a href="Nintendo%20-%20Game%20Boy/">Nintendo - Game Boy/</a></td><td>-</td></tr>
</table></body></html>
`

const gameBoyListingHTML = `
<html><body><table>
<tr><td><a href="../">Parent Directory</a></td><td></td></tr>
<tr><td><a href="Tetris%20%28World%29.zip">Tetris (World).zip</a></td><td>1.0M</td></tr>
<tr><td><a href="readme.txt">readme.txt</a></td><td>512</td></tr>
</table></body></html>
`

func newCrawlTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/No-Intro/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rootListingHTML))
	})
	mux.HandleFunc("/files/No-Intro/Nintendo - Game Boy/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(gameBoyListingHTML))
	})
	return httptest.NewServer(mux)
}

func TestCrawlerDiscoversFilesAndRespectsDepth(t *testing.T) {
	srv := newCrawlTestServer(t)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/files/"
	cfg.IncludePatterns = nil
	cfg.ExcludePatterns = nil

	store := newTestStore(t)
	crawler := NewCrawler(cfg, store)

	var crawledFiles []string
	progress := func(ev ProgressEvent) {
		if ev.Event == "crawl_file" {
			crawledFiles = append(crawledFiles, ev.Path)
		}
	}

	if err := crawler.Crawl(context.Background(), cfg.BaseURL+"No-Intro/", 1, progress); err != nil {
		t.Fatalf("Crawl(depth=1): %v", err)
	}
	if len(crawledFiles) != 0 {
		t.Fatalf("Crawl(depth=1) found files %v, want none (subdirectory not descended)", crawledFiles)
	}

	crawledFiles = nil
	if err := crawler.Crawl(context.Background(), cfg.BaseURL+"No-Intro/", 2, progress); err != nil {
		t.Fatalf("Crawl(depth=2): %v", err)
	}
	if len(crawledFiles) != 2 {
		t.Fatalf("Crawl(depth=2) found %d files, want 2: %v", len(crawledFiles), crawledFiles)
	}

	all, err := store.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("catalog has %d records, want 2", len(all))
	}
	for _, f := range all {
		if f.Console != "Game Boy" {
			t.Errorf("record %q Console = %q, want Game Boy", f.Name, f.Console)
		}
	}
}

func TestCrawlerShouldIncludeFilters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludePatterns = []string{"*.zip"}
	cfg.ExcludePatterns = []string{"*BIOS*"}
	cfg.MaxDownloadSize = 1000

	c := &Crawler{cfg: cfg}

	if !c.shouldInclude(FileRecord{Name: "Game.zip", Size: 500}) {
		t.Errorf("expected a small .zip to be included")
	}
	if c.shouldInclude(FileRecord{Name: "Game.txt", Size: 500}) {
		t.Errorf("expected a non-.zip file to be excluded")
	}
	if c.shouldInclude(FileRecord{Name: "BIOS Pack.zip", Size: 500}) {
		t.Errorf("expected a BIOS-named file to be excluded")
	}
	if c.shouldInclude(FileRecord{Name: "Big.zip", Size: 5000}) {
		t.Errorf("expected an oversized file to be excluded")
	}
	if !c.shouldInclude(FileRecord{Name: "Unknown.zip", Size: 0}) {
		t.Errorf("expected a file with unknown size to never be excluded by MaxDownloadSize")
	}
}
