// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// joinURL resolves ref against base the way a browser would when
// following a relative href found in a directory listing.
func joinURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref url: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

// backoffDelay returns the exponential backoff duration for the given
// 1-based attempt number, capped at cfg.BackoffCap. This matches the
// reference implementation's retry math exactly:
// min(backoffCap, backoffBase * 2^(attempt-1)).
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(cfg.BackoffBase) * math.Pow(2, float64(attempt-1)))
	if d > cfg.BackoffCap {
		d = cfg.BackoffCap
	}
	return d
}

// sleepCtx waits for d or returns false if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// HumanizeBytes renders a byte count as a short human-readable string
// (e.g. "12.3 MB"), using decimal (1000-based) units to match the
// units typically printed by CLI tools in this corpus.
func HumanizeBytes(n int64) string {
	return humanizeBytes(n)
}

func humanizeBytes(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// DefaultString returns s if non-empty, otherwise def.
func DefaultString(s, def string) string {
	return defaultString(s, def)
}

// defaultString returns s if non-empty, otherwise def.
func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
