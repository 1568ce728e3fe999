// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"testing"
	"time"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

func newTestJobManager(t *testing.T) *JobManager {
	t.Helper()
	store, err := myrient.OpenSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := Config{
		MyrientConfig: myrient.DefaultConfig(),
		Store:         store,
	}
	hub := NewWSHub()
	go hub.Run()
	return NewJobManager(cfg, hub)
}

func TestJobManager_CreateJob(t *testing.T) {
	mgr := newTestJobManager(t)

	t.Run("creates queued job with defaulted max depth", func(t *testing.T) {
		req := CrawlRequest{StartURL: "https://example.test/files/Console1/"}

		job, wasExisting, err := mgr.CreateJob(req)
		if err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
		if wasExisting {
			t.Error("Expected new job, got existing")
		}
		if job.MaxDepth != 5 {
			t.Errorf("Expected default max depth 5, got %d", job.MaxDepth)
		}
		if job.StartURL != req.StartURL {
			t.Errorf("Expected start URL %s, got %s", req.StartURL, job.StartURL)
		}
	})

	t.Run("honors requested max depth", func(t *testing.T) {
		req := CrawlRequest{StartURL: "https://example.test/files/Console2/", MaxDepth: 2}

		job, _, err := mgr.CreateJob(req)
		if err != nil {
			t.Fatalf("CreateJob failed: %v", err)
		}
		if job.MaxDepth != 2 {
			t.Errorf("Expected max depth 2, got %d", job.MaxDepth)
		}
	})
}

func TestJobManager_Deduplication(t *testing.T) {
	mgr := newTestJobManager(t)

	req := CrawlRequest{StartURL: "https://example.test/files/Dedup/"}

	job1, wasExisting1, _ := mgr.CreateJob(req)
	if wasExisting1 {
		t.Error("First job should not be existing")
	}

	job2, wasExisting2, _ := mgr.CreateJob(req)
	if !wasExisting2 {
		t.Error("Second job should be detected as existing")
	}
	if job1.ID != job2.ID {
		t.Errorf("Expected same job ID, got %s vs %s", job1.ID, job2.ID)
	}
}

func TestJobManager_DifferentStartURLsNotDeduplicated(t *testing.T) {
	mgr := newTestJobManager(t)

	job1, _, _ := mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/A/"})
	job2, wasExisting, _ := mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/B/"})

	if wasExisting {
		t.Error("Different start URLs should create different jobs")
	}
	if job1.ID == job2.ID {
		t.Error("Different start URLs should have different IDs")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	mgr := newTestJobManager(t)

	job, _, _ := mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/Get/"})

	t.Run("returns existing job", func(t *testing.T) {
		found, ok := mgr.GetJob(job.ID)
		if !ok {
			t.Error("Expected to find job")
		}
		if found.ID != job.ID {
			t.Error("Wrong job returned")
		}
	})

	t.Run("returns false for missing job", func(t *testing.T) {
		_, ok := mgr.GetJob("nonexistent")
		if ok {
			t.Error("Should not find nonexistent job")
		}
	})
}

func TestJobManager_ListJobs(t *testing.T) {
	mgr := newTestJobManager(t)

	mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/List1/"})
	mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/List2/"})
	mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/List3/"})

	jobs := mgr.ListJobs()
	if len(jobs) < 3 {
		t.Errorf("Expected at least 3 jobs, got %d", len(jobs))
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	mgr := newTestJobManager(t)

	job, _, _ := mgr.CreateJob(CrawlRequest{StartURL: "https://example.test/files/Cancel/"})

	time.Sleep(50 * time.Millisecond)

	t.Run("cancels running job", func(t *testing.T) {
		ok := mgr.CancelJob(job.ID)
		if !ok {
			t.Error("Cancel should succeed")
		}

		found, _ := mgr.GetJob(job.ID)
		if found.Status != JobStatusCancelled {
			t.Errorf("Expected cancelled status, got %s", found.Status)
		}
	})

	t.Run("returns false for nonexistent job", func(t *testing.T) {
		ok := mgr.CancelJob("nonexistent")
		if ok {
			t.Error("Cancel should fail for nonexistent job")
		}
	})
}

func TestJobStatus_Values(t *testing.T) {
	statuses := []JobStatus{
		JobStatusQueued,
		JobStatusCrawling,
		JobStatusRunning,
		JobStatusCompleted,
		JobStatusFailed,
		JobStatusCancelled,
	}

	for _, s := range statuses {
		if s == "" {
			t.Error("Status should not be empty")
		}
	}
}
