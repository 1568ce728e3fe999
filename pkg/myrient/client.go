// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// buildHTTPClient creates an HTTP client tuned for many small-to-medium
// requests against one or a few origin hosts.
func buildHTTPClient(cfg Config) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   cfg.Concurrency.PerHost + 1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeouts.Connect,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeouts.Read,
	}
}

// addHeaders sets the descriptive User-Agent required for polite
// crawling and downloading.
func addHeaders(req *http.Request, userAgent string) {
	if userAgent == "" {
		userAgent = DefaultConfig().UserAgent
	}
	req.Header.Set("User-Agent", userAgent)
}

// headAcceptRanges issues a HEAD request and reports whether the
// origin advertises byte-range support for this URL, along with the
// Content-Length and caching headers if present.
func headAcceptRanges(ctx context.Context, httpc *http.Client, userAgent, urlStr string) (acceptsRanges bool, size int64, etag string, lastModified string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, urlStr, nil)
	if err != nil {
		return false, 0, "", ""
	}
	addHeaders(req, userAgent)

	resp, err := httpc.Do(req)
	if err != nil {
		return false, 0, "", ""
	}
	defer resp.Body.Close()

	accepts := strings.Contains(strings.ToLower(resp.Header.Get("Accept-Ranges")), "bytes")
	return accepts, resp.ContentLength, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
}

// GetRobotsTxt fetches the robots.txt in effect for cfg.BaseURL, for
// display in the CLI's status command. It is a best-effort courtesy
// check, not an enforcement mechanism: the crawler does not parse or
// obey it.
func GetRobotsTxt(ctx context.Context, cfg Config) (string, error) {
	httpc := buildHTTPClient(cfg)
	return getRobotsTxt(ctx, httpc, cfg.UserAgent, cfg.BaseURL)
}

// getRobotsTxt fetches robots.txt for the origin of baseURL, returning
// its body as a string. A request failure is returned as an error; a
// non-200 response yields an empty string and a nil error.
// This is a best-effort courtesy check, not an enforcement mechanism.
func getRobotsTxt(ctx context.Context, httpc *http.Client, userAgent, baseURL string) (string, error) {
	robotsURL, err := joinURL(baseURL, "/robots.txt")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return "", err
	}
	addHeaders(req, userAgent)

	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}
