// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testDownloaderConfig(t *testing.T, baseURL string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.DownloadRoot = t.TempDir()
	cfg.VerifyChecksums = true
	cfg.RateLimit = RateLimitConfig{TokensPerSec: 1000, Burst: 1000}
	cfg.Retries = RetryConfig{MaxAttempts: 3, BackoffBase: 0, BackoffCap: 0}
	return cfg
}

// TestChecksumMismatchFailsWithoutRetry asserts a VerificationError
// ends the retry loop immediately: the handler should be hit exactly
// once even though MaxAttempts allows three.
func TestChecksumMismatchFailsWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("actual-bytes"))
	}))
	defer srv.Close()

	cfg := testDownloaderConfig(t, srv.URL+"/")
	store := newTestStore(t)
	d := NewDownloader(cfg, store)

	f := FileRecord{
		URL:      srv.URL + "/game.zip",
		Name:     "game.zip",
		FileType: "zip",
		Checksum: "0000000000000000000000000000000000000000000000000000000000000",
	}
	store.UpsertDiscovery(context.Background(), f)

	err := d.DownloadOne(context.Background(), f, nil)
	if err == nil {
		t.Fatalf("expected a download error from the checksum mismatch")
	}
	if hits != 1 {
		t.Errorf("handler hit %d times, want exactly 1 (checksum mismatch must not retry)", hits)
	}

	got, err := store.Get(context.Background(), f.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, StatusFailed)
	}
}

// TestTransientErrorRetriesUpToMaxAttempts asserts a retryable failure
// (502) is retried until MaxAttempts is exhausted.
func TestTransientErrorRetriesUpToMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testDownloaderConfig(t, srv.URL+"/")
	d := NewDownloader(cfg, nil)

	f := FileRecord{URL: srv.URL + "/game.zip", Name: "game.zip", FileType: "zip"}
	err := d.DownloadOne(context.Background(), f, nil)
	if err == nil {
		t.Fatalf("expected an error from repeated 502s")
	}
	if hits != int32(cfg.Retries.MaxAttempts) {
		t.Errorf("handler hit %d times, want %d (exhaust MaxAttempts on a retryable error)", hits, cfg.Retries.MaxAttempts)
	}
}

func TestDownloadAllReportsBatchResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.zip":
			w.Write([]byte("hello"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testDownloaderConfig(t, srv.URL+"/")
	store := newTestStore(t)
	d := NewDownloader(cfg, store)

	files := []FileRecord{
		{URL: srv.URL + "/ok.zip", Name: "ok.zip", FileType: "zip", Status: StatusPending},
		{URL: srv.URL + "/missing.zip", Name: "missing.zip", FileType: "zip", Status: StatusPending},
		{URL: srv.URL + "/already-done.zip", Name: "already-done.zip", FileType: "zip", Status: StatusCompleted},
	}

	result, err := d.DownloadAll(context.Background(), files, nil)
	if err != nil {
		t.Fatalf("DownloadAll: %v", err)
	}
	if result.Successful != 1 || result.Failed != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want {Successful:1 Failed:1 Skipped:1}", result)
	}
}

// TestDownloadRecordsSession asserts a completed download leaves a row
// in download_sessions when the store is a SQLiteStore.
func TestDownloadRecordsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	cfg := testDownloaderConfig(t, srv.URL+"/")
	store := newTestStore(t)
	d := NewDownloader(cfg, store)

	f := FileRecord{URL: srv.URL + "/game.zip", Name: "game.zip", FileType: "zip"}
	if err := d.DownloadOne(context.Background(), f, nil); err != nil {
		t.Fatalf("DownloadOne: %v", err)
	}

	var count int
	row := store.db.QueryRow(`SELECT COUNT(*) FROM download_sessions WHERE url = ? AND outcome = 'completed'`, f.URL)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 1 {
		t.Errorf("download_sessions has %d completed rows for %s, want 1", count, f.URL)
	}
}
