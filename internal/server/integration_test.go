// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

// getFreePort finds an available port
func getFreePort() int {
	l, _ := net.Listen("tcp", "127.0.0.1:0")
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// These tests require network access and actually crawl the live
// Myrient archive. Run with: go test -tags=integration -v ./internal/server/

func TestIntegration_FullCrawlAndDownloadFlow(t *testing.T) {
	port := getFreePort()

	store, err := myrient.OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()

	cfg := Config{
		Addr:          "127.0.0.1",
		Port:          port,
		MyrientConfig: myrient.DefaultConfig(),
		Store:         store,
	}

	srv := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.ListenAndServe(ctx)
	time.Sleep(200 * time.Millisecond)

	baseURL := "http://127.0.0.1:" + strconv.Itoa(port)

	t.Run("health check", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/health")
		if err != nil {
			t.Fatalf("Health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("crawl and download small directory", func(t *testing.T) {
		body := `{"startUrl": "https://myrient.erista.me/files/No-Intro/", "maxDepth": 1}`
		resp, err := http.Post(baseURL+"/api/crawl", "application/json", httpBody(body))
		if err != nil {
			t.Fatalf("Start crawl failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 202 {
			t.Fatalf("Expected 202, got %d", resp.StatusCode)
		}

		var job Job
		json.NewDecoder(resp.Body).Decode(&job)
		if job.ID == "" {
			t.Error("Job ID should not be empty")
		}

		timeout := time.After(60 * time.Second)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-timeout:
				t.Fatal("Crawl timed out")
			case <-ticker.C:
				jobResp, _ := http.Get(baseURL + "/api/jobs/" + job.ID)
				var current Job
				json.NewDecoder(jobResp.Body).Decode(&current)
				jobResp.Body.Close()

				t.Logf("Job status: %s, discovered: %d, completed: %d",
					current.Status, current.Progress.FilesDiscovered, current.Progress.FilesCompleted)

				if current.Status == JobStatusCompleted {
					t.Log("Crawl+download completed successfully!")
					return
				}
				if current.Status == JobStatusFailed {
					t.Fatalf("Job failed: %s", current.Error)
				}
			}
		}
	})
}

func TestIntegration_SearchAfterCrawl(t *testing.T) {
	port := getFreePort()

	store, err := myrient.OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()

	cfg := Config{
		Addr:          "127.0.0.1",
		Port:          port,
		MyrientConfig: myrient.DefaultConfig(),
		Store:         store,
	}

	srv := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.ListenAndServe(ctx)
	time.Sleep(200 * time.Millisecond)

	baseURL := "http://127.0.0.1:" + strconv.Itoa(port)

	crawler := myrient.NewCrawler(cfg.MyrientConfig, store)
	if err := crawler.Crawl(ctx, "https://myrient.erista.me/files/No-Intro/", 1, nil); err != nil {
		t.Fatalf("seed crawl failed: %v", err)
	}

	resp, err := http.Get(baseURL + "/api/search?q=nintendo")
	if err != nil {
		t.Fatalf("Search request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result map[string]any
	json.NewDecoder(resp.Body).Decode(&result)
	t.Logf("Search returned %v results", result["count"])
}
