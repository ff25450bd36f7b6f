package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChugThaJug/hellfast/core"
)

// PgJobStore persists jobs and videos in Postgres. The schema is ensured at
// connect time so a fresh database works without a migration step.
type PgJobStore struct {
	pool *pgxpool.Pool
}

func NewPgJobStore(ctx context.Context, dbURL string) (*PgJobStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PgJobStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PgJobStore) Close() {
	s.pool.Close()
}

func (s *PgJobStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			status TEXT NOT NULL,
			progress DOUBLE PRECISION NOT NULL DEFAULT 0,
			mode TEXT NOT NULL,
			output_style TEXT NOT NULL,
			segments JSONB,
			result JSONB,
			input_tokens BIGINT NOT NULL DEFAULT 0,
			output_tokens BIGINT NOT NULL DEFAULT 0,
			cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS videos (
			video_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			input_tokens BIGINT NOT NULL DEFAULT 0,
			output_tokens BIGINT NOT NULL DEFAULT 0,
			cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PgJobStore) CreateJob(ctx context.Context, job *core.Job) error {
	segments, err := json.Marshal(job.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, video_id, status, progress, mode, output_style, segments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.VideoID, string(job.Status), job.Progress,
		string(job.Mode), string(job.Style), segments, job.CreatedAt)
	return err
}

func (s *PgJobStore) GetJob(ctx context.Context, jobID string) (*core.Job, error) {
	var (
		job         core.Job
		status      string
		mode        string
		style       string
		segments    []byte
		result      []byte
		completedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT job_id, video_id, status, progress, mode, output_style, segments, result,
		       input_tokens, output_tokens, cost, error, created_at, completed_at
		FROM jobs WHERE job_id = $1`, jobID).Scan(
		&job.ID, &job.VideoID, &status, &job.Progress, &mode, &style, &segments, &result,
		&job.Usage.InputTokens, &job.Usage.OutputTokens, &job.Usage.Cost,
		&job.Error, &job.CreatedAt, &completedAt)
	if err == pgx.ErrNoRows {
		return nil, core.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	job.Status = core.JobStatus(status)
	job.Mode = core.ProcessingMode(mode)
	job.Style = core.OutputStyle(style)
	job.CompletedAt = completedAt
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &job.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return &job, nil
}

func (s *PgJobStore) SetJobStatus(ctx context.Context, jobID string, status core.JobStatus) error {
	return s.execOnJob(ctx, jobID, `UPDATE jobs SET status = $2 WHERE job_id = $1`, string(status))
}

func (s *PgJobStore) UpdateProgress(ctx context.Context, jobID string, progress float64) error {
	return s.execOnJob(ctx, jobID, `UPDATE jobs SET progress = $2 WHERE job_id = $1`, progress)
}

func (s *PgJobStore) CompleteJob(ctx context.Context, jobID string, result *core.ProcessingResult, usage core.UsageTally) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.execOnJob(ctx, jobID, `
		UPDATE jobs SET status = 'completed', progress = 1.0, result = $2,
		       input_tokens = $3, output_tokens = $4, cost = $5, error = '', completed_at = now()
		WHERE job_id = $1`,
		data, usage.InputTokens, usage.OutputTokens, usage.Cost)
}

func (s *PgJobStore) FailJob(ctx context.Context, jobID string, message string) error {
	return s.execOnJob(ctx, jobID, `
		UPDATE jobs SET status = 'failed', error = $2, completed_at = now() WHERE job_id = $1`, message)
}

func (s *PgJobStore) RequestCancel(ctx context.Context, jobID string) error {
	return s.execOnJob(ctx, jobID, `UPDATE jobs SET cancel_requested = TRUE WHERE job_id = $1`)
}

func (s *PgJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var cancelled bool
	err := s.pool.QueryRow(ctx, `SELECT cancel_requested FROM jobs WHERE job_id = $1`, jobID).Scan(&cancelled)
	if err == pgx.ErrNoRows {
		return false, core.ErrJobNotFound
	}
	return cancelled, err
}

func (s *PgJobStore) UpsertVideo(ctx context.Context, video *core.Video) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO videos (video_id, title, status, input_tokens, output_tokens, cost, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title, status = EXCLUDED.status,
			input_tokens = EXCLUDED.input_tokens, output_tokens = EXCLUDED.output_tokens,
			cost = EXCLUDED.cost, error = EXCLUDED.error, updated_at = now()`,
		video.ID, video.Title, video.Status,
		video.Stats.InputTokens, video.Stats.OutputTokens, video.Stats.Cost, video.Error)
	return err
}

func (s *PgJobStore) GetVideo(ctx context.Context, videoID string) (*core.Video, error) {
	var video core.Video
	err := s.pool.QueryRow(ctx, `
		SELECT video_id, title, status, input_tokens, output_tokens, cost, error, updated_at
		FROM videos WHERE video_id = $1`, videoID).Scan(
		&video.ID, &video.Title, &video.Status,
		&video.Stats.InputTokens, &video.Stats.OutputTokens, &video.Stats.Cost,
		&video.Error, &video.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("video %s not found", videoID)
	}
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *PgJobStore) execOnJob(ctx context.Context, jobID, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, append([]any{jobID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrJobNotFound
	}
	return nil
}
