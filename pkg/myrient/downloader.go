// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Downloader fetches cataloged files with resumable byte-range requests,
// per-host rate limiting, two-tier concurrency, and retry with
// exponential backoff.
type Downloader struct {
	cfg     Config
	store   Store
	httpc   *http.Client
	limiter *hostRateLimiters
	gate    *concurrencyGate
}

// NewDownloader builds a Downloader that persists progress to store.
func NewDownloader(cfg Config, store Store) *Downloader {
	initMetrics()
	return &Downloader{
		cfg:     cfg,
		store:   store,
		httpc:   buildHTTPClient(cfg),
		limiter: newHostRateLimiters(cfg.RateLimit),
		gate:    newConcurrencyGate(cfg.Concurrency),
	}
}

// BatchResult summarizes the outcome of a DownloadAll batch.
type BatchResult struct {
	Successful int
	Failed     int
	Skipped    int
}

// DownloadAll fetches every record in files concurrently, subject to the
// configured global/per-host concurrency limits. Each file's failure is
// independent: one file exhausting its retries does not cancel the
// others. The returned error is non-nil only if ctx was canceled.
func (d *Downloader) DownloadAll(ctx context.Context, files []FileRecord, progress ProgressFunc) (BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	emit := progressEmitter(progress)

	var mu sync.Mutex
	var result BatchResult

	done := make(chan struct{}, len(files))
	for _, f := range files {
		f := f
		go func() {
			defer func() { done <- struct{}{} }()
			if f.Status == StatusCompleted {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				emit(ProgressEvent{Event: "file_done", URL: f.URL, Path: f.Name, Total: f.Size, Bytes: f.BytesDownloaded, Message: "skip (already completed)"})
				return
			}
			if err := d.DownloadOne(ctx, f, emit); err != nil {
				mu.Lock()
				result.Failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Successful++
			mu.Unlock()
		}()
	}
	for range files {
		<-done
	}

	emit(ProgressEvent{Event: "done", Message: fmt.Sprintf(
		"download batch complete: %d succeeded, %d failed, %d skipped", result.Successful, result.Failed, result.Skipped,
	)})
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// DownloadOne downloads a single file, acquiring the global+per-host
// concurrency gate and per-host rate limiter before issuing any request.
func (d *Downloader) DownloadOne(ctx context.Context, f FileRecord, emit ProgressFunc) error {
	emit = progressEmitter(emit)

	host := hostOf(f.URL)
	release, err := d.gate.acquire(ctx, host)
	if err != nil {
		return err
	}
	defer release()

	return d.downloadWithRetry(ctx, f, host, emit)
}

func (d *Downloader) downloadWithRetry(ctx context.Context, f FileRecord, host string, emit ProgressFunc) error {
	limiter := d.limiter.get(host)
	var lastErr error
	sessionStart := time.Now()

	for attempt := 1; attempt <= d.cfg.Retries.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := limiter.Take(ctx, 1); err != nil {
			return err
		}

		f.DownloadAttempts = attempt
		f.Status = StatusDownloading
		d.saveState(ctx, f)

		emit(ProgressEvent{Event: "file_start", URL: f.URL, Path: f.Name, Total: f.Size, Attempt: attempt})

		metInflight.Inc()
		start := time.Now()
		err := d.downloadAttempt(ctx, &f, emit)
		metInflight.Dec()
		if err == nil {
			metRequests.WithLabelValues("ok").Inc()
			metBytesDownloaded.Add(float64(f.BytesDownloaded))
			metDownloadDuration.Observe(time.Since(start).Seconds())
			metFilesProcessed.WithLabelValues("completed").Inc()

			f.Status = StatusCompleted
			now := time.Now().UTC()
			f.CompletedAt = &now
			elapsed := time.Since(start).Seconds()
			if elapsed > 0 {
				f.AverageDownloadSpeed = float64(f.BytesDownloaded) / elapsed
			}
			f.IsSpeedLimited = f.AverageDownloadSpeed >= 8000 && f.AverageDownloadSpeed <= 12000
			d.saveState(ctx, f)
			d.recordSession(ctx, f, sessionStart, "completed")
			emit(ProgressEvent{Event: "file_done", URL: f.URL, Path: f.Name, Total: f.Size, Bytes: f.BytesDownloaded})
			return nil
		}

		metRequests.WithLabelValues("error").Inc()
		lastErr = err
		f.ErrorMessage = err.Error()

		if !isRetryableErr(err) {
			break
		}

		if attempt < d.cfg.Retries.MaxAttempts {
			metRetries.Inc()
			delay := backoffDelay(d.cfg.Retries, attempt)
			emit(ProgressEvent{Event: "retry", URL: f.URL, Path: f.Name, Attempt: attempt, Message: err.Error()})
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
		}
	}

	f.Status = StatusFailed
	d.saveState(ctx, f)
	d.recordSession(ctx, f, sessionStart, "failed")
	metFilesProcessed.WithLabelValues("failed").Inc()
	emit(ProgressEvent{Level: "error", Event: "error", URL: f.URL, Path: f.Name, Message: lastErr.Error()})
	return &DownloadError{URL: f.URL, Err: lastErr}
}

// isRetryableErr reports whether a download failure might succeed if
// attempted again. A VerificationError means the bytes actually
// transferred do not match what the catalog recorded for this URL, so
// the upstream blob itself differs: retrying would just spend another
// full transfer reproducing the same mismatch. Non-retryable HTTP
// statuses (4xx other than 429) fail the same way.
func isRetryableErr(err error) bool {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var herr *HTTPStatusError
	if errors.As(err, &herr) {
		return herr.IsRetryable()
	}
	return true
}

// sessionRecorder is implemented by stores that keep a throttling-
// diagnostics history (currently only SQLiteStore). Stores that don't
// implement it, and a nil Store, are silently skipped.
type sessionRecorder interface {
	RecordSession(ctx context.Context, sess DownloadSession) error
}

func (d *Downloader) recordSession(ctx context.Context, f FileRecord, start time.Time, outcome string) {
	rec, ok := d.store.(sessionRecorder)
	if !ok {
		return
	}
	_ = rec.RecordSession(ctx, DownloadSession{
		URL:              f.URL,
		StartedAt:        start,
		EndedAt:          time.Now().UTC(),
		BytesTransferred: f.BytesDownloaded,
		AverageSpeed:     f.AverageDownloadSpeed,
		Outcome:          outcome,
	})
}

func (d *Downloader) saveState(ctx context.Context, f FileRecord) {
	if d.store == nil {
		return
	}
	_ = d.store.UpdateDownloadState(ctx, f)
}

// downloadAttempt performs one GET (possibly resuming from an existing
// .part file) and, on success, verifies size and optionally checksum
// before publishing the file atomically.
func (d *Downloader) downloadAttempt(ctx context.Context, f *FileRecord, emit ProgressFunc) error {
	if f.LocalPath == "" {
		console := f.Console
		if console == "" {
			console = "Unknown"
		}
		dir := filepath.Join(d.cfg.DownloadRoot, console)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f.LocalPath = filepath.Join(dir, f.Name)
	}

	if fi, err := os.Stat(f.LocalPath); err == nil {
		if f.Size > 0 && fi.Size() == f.Size {
			f.BytesDownloaded = f.Size
			return nil
		}
	}

	tempPath := f.LocalPath + ".part"
	hasher := sha256.New()
	var startPos int64

	if d.cfg.ResumeDownloads {
		if fi, err := os.Stat(tempPath); err == nil {
			startPos = fi.Size()
			if startPos > 0 {
				if err := rehashExisting(tempPath, hasher); err != nil {
					startPos = 0
					hasher.Reset()
					_ = os.Remove(tempPath)
				}
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}
	addHeaders(req, d.cfg.UserAgent)
	if startPos > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startPos))
	}

	resp, err := d.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		if fi, statErr := os.Stat(tempPath); statErr == nil {
			if f.Size == 0 || fi.Size() == f.Size {
				if err := os.Rename(tempPath, f.LocalPath); err != nil {
					return err
				}
				f.BytesDownloaded = fi.Size()
				return nil
			}
		}
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: f.URL}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return ErrRateLimited
		}
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: f.URL}
	}

	if startPos == 0 || resp.StatusCode == http.StatusOK {
		startPos = 0
		hasher.Reset()
	}
	if resp.ContentLength > 0 && startPos == 0 {
		f.Size = resp.ContentLength
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startPos > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(tempPath, flags, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	f.BytesDownloaded = startPos
	writer := io.MultiWriter(out, hasher)
	pr := &progressTap{
		total:    f.Size,
		soFar:    startPos,
		interval: 500 * time.Millisecond,
		emit: func(bytes int64) {
			emit(ProgressEvent{Event: "file_progress", URL: f.URL, Path: f.Name, Bytes: bytes, Total: f.Size})
		},
	}

	if _, err := io.Copy(writer, io.TeeReader(resp.Body, pr)); err != nil {
		return err
	}
	f.BytesDownloaded = pr.soFar

	if f.Size > 0 && f.BytesDownloaded != f.Size {
		return fmt.Errorf("short read: got %d bytes, want %d", f.BytesDownloaded, f.Size)
	}

	if d.cfg.VerifyChecksums && f.Checksum != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if sum != f.Checksum {
			return &VerificationError{URL: f.URL, Expected: f.Checksum, Actual: sum, Method: "sha256"}
		}
	} else if f.Checksum == "" {
		f.Checksum = hex.EncodeToString(hasher.Sum(nil))
		f.ChecksumType = "sha256"
	}

	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tempPath, f.LocalPath)
}

// rehashExisting feeds the bytes already on disk through hasher so the
// final checksum still covers the whole file after a resumed download.
func rehashExisting(path string, hasher io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(hasher, f)
	return err
}

// progressTap counts bytes as they stream through and emits a throttled
// progress callback, matching the reference implementation's "update at
// most every N ms" behavior.
type progressTap struct {
	total    int64
	soFar    int64
	interval time.Duration
	lastEmit time.Time
	emit     func(bytes int64)
}

func (p *progressTap) Write(b []byte) (int, error) {
	n := len(b)
	p.soFar += int64(n)
	if time.Since(p.lastEmit) >= p.interval {
		p.emit(p.soFar)
		p.lastEmit = time.Now()
	}
	return n, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
