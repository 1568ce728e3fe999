// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/JMit-dev/myrientDL/pkg/myrient"
)

// JobStatus represents the state of a crawl+download job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusCrawling  JobStatus = "crawling"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a crawl-then-download pipeline run.
type Job struct {
	ID         string      `json:"id"`
	StartURL   string      `json:"startUrl"`
	MaxDepth   int         `json:"maxDepth"`
	Console    string      `json:"console,omitempty"`
	Collection string      `json:"collection,omitempty"`
	Status     JobStatus   `json:"status"`
	Progress   JobProgress `json:"progress"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	EndedAt    *time.Time  `json:"endedAt,omitempty"`

	cancel context.CancelFunc `json:"-"`
}

// JobProgress holds aggregate progress info across the crawl and
// download phases.
type JobProgress struct {
	FilesDiscovered int   `json:"filesDiscovered"`
	FilesCompleted  int   `json:"filesCompleted"`
	FilesFailed     int   `json:"filesFailed"`
	FilesSkipped    int   `json:"filesSkipped"`
	TotalBytes      int64 `json:"totalBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
}

// JobManager manages crawl/download jobs.
type JobManager struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	config     Config
	listeners  []chan *Job
	listenerMu sync.RWMutex
	wsHub      *WSHub
}

// NewJobManager creates a new job manager.
func NewJobManager(cfg Config, wsHub *WSHub) *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		config: cfg,
		wsHub:  wsHub,
	}
}

func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateJob starts a new crawl+download job. Returns the existing job
// if one with the same start URL is already queued or running.
func (m *JobManager) CreateJob(req CrawlRequest) (*Job, bool, error) {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	m.mu.Lock()
	for _, existing := range m.jobs {
		if existing.StartURL == req.StartURL &&
			(existing.Status == JobStatusQueued || existing.Status == JobStatusCrawling || existing.Status == JobStatusRunning) {
			m.mu.Unlock()
			return existing, true, nil
		}
	}

	job := &Job{
		ID:         generateID(),
		StartURL:   req.StartURL,
		MaxDepth:   maxDepth,
		Console:    req.Console,
		Collection: req.Collection,
		Status:     JobStatusQueued,
		CreatedAt:  time.Now(),
	}
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runJob(job)

	return job, false, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob cancels a running or queued job.
func (m *JobManager) CancelJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	if job.Status == JobStatusQueued || job.Status == JobStatusCrawling || job.Status == JobStatusRunning {
		if job.cancel != nil {
			job.cancel()
		}
		job.Status = JobStatusCancelled
		now := time.Now()
		job.EndedAt = &now
		m.notifyListeners(job)
		return true
	}
	return false
}

// Subscribe adds a listener for job updates.
func (m *JobManager) Subscribe() chan *Job {
	ch := make(chan *Job, 100)
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, ch)
	m.listenerMu.Unlock()
	return ch
}

// Unsubscribe removes a listener.
func (m *JobManager) Unsubscribe(ch chan *Job) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *JobManager) notifyListeners(job *Job) {
	m.listenerMu.RLock()
	for _, ch := range m.listeners {
		select {
		case ch <- job:
		default:
		}
	}
	m.listenerMu.RUnlock()

	if m.wsHub != nil {
		m.wsHub.BroadcastJob(job)
	}
}

// runJob crawls StartURL into the shared catalog store, then downloads
// every pending file that was discovered (or already cataloged) under
// the requested console/collection filter.
func (m *JobManager) runJob(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel

	m.mu.Lock()
	job.Status = JobStatusCrawling
	now := time.Now()
	job.StartedAt = &now
	m.mu.Unlock()
	m.notifyListeners(job)

	crawler := myrient.NewCrawler(m.config.MyrientConfig, m.config.Store)

	crawlProgress := func(ev myrient.ProgressEvent) {
		m.mu.Lock()
		switch ev.Event {
		case "crawl_file":
			job.Progress.FilesDiscovered++
			job.Progress.TotalBytes += ev.Total
		}
		m.mu.Unlock()
		m.notifyListeners(job)
	}

	if err := crawler.Crawl(ctx, job.StartURL, job.MaxDepth, crawlProgress); err != nil {
		m.finishJob(job, ctx, err)
		return
	}

	m.mu.Lock()
	job.Status = JobStatusRunning
	m.mu.Unlock()
	m.notifyListeners(job)

	files, err := m.config.Store.List(ctx, myrient.ListFilter{
		Status:     myrient.StatusPending,
		Console:    job.Console,
		Collection: myrient.Collection(job.Collection),
	})
	if err != nil {
		m.finishJob(job, ctx, err)
		return
	}

	downloader := myrient.NewDownloader(m.config.MyrientConfig, m.config.Store)

	downloadProgress := func(ev myrient.ProgressEvent) {
		m.mu.Lock()
		switch ev.Event {
		case "file_progress":
			job.Progress.DownloadedBytes += ev.Bytes
		case "file_done":
			job.Progress.FilesCompleted++
		}
		m.mu.Unlock()
		m.notifyListeners(job)
	}

	result, err := downloader.DownloadAll(ctx, files, downloadProgress)
	m.mu.Lock()
	job.Progress.FilesFailed = result.Failed
	job.Progress.FilesSkipped = result.Skipped
	m.mu.Unlock()
	m.finishJob(job, ctx, err)
}

func (m *JobManager) finishJob(job *Job, ctx context.Context, err error) {
	m.mu.Lock()
	endTime := time.Now()
	job.EndedAt = &endTime
	switch {
	case ctx.Err() != nil:
		job.Status = JobStatusCancelled
	case err != nil:
		job.Status = JobStatusFailed
		job.Error = err.Error()
	default:
		job.Status = JobStatusCompleted
	}
	m.mu.Unlock()
	m.notifyListeners(job)
}
