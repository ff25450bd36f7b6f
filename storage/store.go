package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/core"
)

// JobStore is the persistence collaborator the pipeline writes through. A
// running job owns its record exclusively; the store only has to serialize
// writes, not arbitrate between writers.
type JobStore interface {
	CreateJob(ctx context.Context, job *core.Job) error
	GetJob(ctx context.Context, jobID string) (*core.Job, error)
	SetJobStatus(ctx context.Context, jobID string, status core.JobStatus) error
	UpdateProgress(ctx context.Context, jobID string, progress float64) error
	CompleteJob(ctx context.Context, jobID string, result *core.ProcessingResult, usage core.UsageTally) error
	FailJob(ctx context.Context, jobID string, message string) error

	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)

	UpsertVideo(ctx context.Context, video *core.Video) error
	GetVideo(ctx context.Context, videoID string) (*core.Video, error)
}

// NewJobStore selects the backend from the STORE environment variable:
// "postgres" uses the configured Postgres database, anything else falls back
// to the in-memory store.
func NewJobStore(cfg *config.Config) (JobStore, error) {
	backend := os.Getenv("STORE")
	switch backend {
	case "postgres":
		store, err := NewPgJobStore(context.Background(), cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres job store: %w", err)
		}
		log.Printf("Job store initialized: postgres")
		return store, nil
	default:
		log.Printf("Job store initialized: memory")
		return NewMemoryJobStore(), nil
	}
}

// ---------------- Memory implementation (default and test backend) ----------------

type MemoryJobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*core.Job
	videos    map[string]*core.Video
	cancelled map[string]bool
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:      make(map[string]*core.Job),
		videos:    make(map[string]*core.Video),
		cancelled: make(map[string]bool),
	}
}

func (s *MemoryJobStore) CreateJob(ctx context.Context, job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryJobStore) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryJobStore) SetJobStatus(ctx context.Context, jobID string, status core.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return core.ErrJobNotFound
	}
	job.Status = status
	return nil
}

func (s *MemoryJobStore) UpdateProgress(ctx context.Context, jobID string, progress float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return core.ErrJobNotFound
	}
	job.Progress = progress
	return nil
}

func (s *MemoryJobStore) CompleteJob(ctx context.Context, jobID string, result *core.ProcessingResult, usage core.UsageTally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return core.ErrJobNotFound
	}
	now := time.Now().UTC()
	job.Status = core.JobCompleted
	job.Progress = 1.0
	job.Result = result
	job.Usage = usage
	job.Error = ""
	job.CompletedAt = &now
	return nil
}

func (s *MemoryJobStore) FailJob(ctx context.Context, jobID string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return core.ErrJobNotFound
	}
	now := time.Now().UTC()
	job.Status = core.JobFailed
	job.Error = message
	job.CompletedAt = &now
	return nil
}

func (s *MemoryJobStore) RequestCancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return core.ErrJobNotFound
	}
	s.cancelled[jobID] = true
	return nil
}

func (s *MemoryJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID]; !ok {
		return false, core.ErrJobNotFound
	}
	return s.cancelled[jobID], nil
}

func (s *MemoryJobStore) UpsertVideo(ctx context.Context, video *core.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *video
	copied.UpdatedAt = time.Now().UTC()
	s.videos[video.ID] = &copied
	return nil
}

func (s *MemoryJobStore) GetVideo(ctx context.Context, videoID string) (*core.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	copied := *video
	return &copied, nil
}
