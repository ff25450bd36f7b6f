package processors

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/core"
	"github.com/ChugThaJug/hellfast/storage"
)

// Runner executes jobs through the full pipeline. Stages within one job run
// strictly in sequence (later stages consume the cumulative state of earlier
// ones); independent jobs run concurrently up to the configured limit.
type Runner struct {
	store storage.JobStore
	gen   TextGenerator
	cfg   *config.Config

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewRunner(store storage.JobStore, gen TextGenerator, cfg *config.Config) *Runner {
	return &Runner{
		store: store,
		gen:   gen,
		cfg:   cfg,
		sem:   make(chan struct{}, cfg.MaxConcurrentJobs),
	}
}

// Submit schedules a pending job for background execution.
func (r *Runner) Submit(jobID string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		r.Process(context.Background(), jobID)
	}()
}

// Wait blocks until all submitted jobs have finished. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Process drives one job pending -> processing -> completed/failed. Failures
// never publish a partial result; the captured error message lands on the
// job and video records instead.
func (r *Runner) Process(ctx context.Context, jobID string) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("Job %s not found: %v", jobID, err)
		return
	}

	if err := r.store.SetJobStatus(ctx, jobID, core.JobProcessing); err != nil {
		log.Printf("Job %s: failed to mark processing: %v", jobID, err)
		return
	}
	r.reportProgress(ctx, jobID, 0.1, "Starting processing")

	var (
		result *core.ProcessingResult
		usage  core.UsageTally
	)
	if job.Mode == core.ModeSimple {
		result, usage, err = r.processSimple(ctx, job)
	} else {
		result, usage, err = r.processDetailed(ctx, job)
	}

	if err != nil {
		log.Printf("Job %s failed: %v", jobID, err)
		if storeErr := r.store.FailJob(ctx, jobID, err.Error()); storeErr != nil {
			log.Printf("Job %s: failed to record failure: %v", jobID, storeErr)
		}
		r.updateVideo(ctx, job.VideoID, "failed", core.UsageTally{}, err.Error())
		return
	}

	if err := r.store.CompleteJob(ctx, jobID, result, usage); err != nil {
		log.Printf("Job %s: failed to record completion: %v", jobID, err)
		return
	}
	r.updateVideo(ctx, job.VideoID, "completed", usage, "")
	log.Printf("Job %s completed successfully (%d input tokens, %d output tokens, $%.6f)",
		jobID, usage.InputTokens, usage.OutputTokens, usage.Cost)
}

// processDetailed is the chunked pipeline: chunker, paragraph synthesis, TOC
// planning, section formatting, coherence reconciliation. Cancellation is
// checked between stages, never mid-call.
func (r *Runner) processDetailed(ctx context.Context, job *core.Job) (*core.ProcessingResult, core.UsageTally, error) {
	var usage core.UsageTally

	chunks := ChunkTranscript(job.Segments, r.cfg.ChunkSize)
	if len(chunks) == 0 {
		return nil, usage, core.ErrNoContent
	}

	synthesizer := NewParagraphSynthesizer(r.gen, r.cfg)
	// Paragraphs are always synthesized in article form; the requested style
	// is applied per section afterwards.
	paragraphs, synthUsage, err := synthesizer.Synthesize(ctx, chunks, r.cfg.PromptFor(core.StylePodcastArticle), func(progress float64, description string) {
		r.reportProgress(ctx, job.ID, progress, description)
	})
	usage.Merge(synthUsage)
	if err != nil {
		return nil, usage, err
	}

	if err := r.checkCancelled(ctx, job.ID); err != nil {
		return nil, usage, err
	}

	planner := NewChapterPlanner(r.gen, r.cfg)
	chapters, tocUsage := planner.Plan(ctx, paragraphs)
	usage.Merge(tocUsage)

	if err := r.checkCancelled(ctx, job.ID); err != nil {
		return nil, usage, err
	}

	formatter := NewSectionFormatter(r.gen, r.cfg)
	sections, formatUsage, err := formatter.Format(ctx, paragraphs, chapters, job.Style)
	usage.Merge(formatUsage)
	if err != nil {
		return nil, usage, err
	}
	r.reportProgress(ctx, job.ID, 0.8, "Formatting completed")

	sections = Reconcile(sections, job.Style)

	return &core.ProcessingResult{Style: job.Style, Sections: sections}, usage, nil
}

// processSimple makes a single generative call over the whole transcript and
// splits the response per style. No chunking, no TOC, one section.
func (r *Runner) processSimple(ctx context.Context, job *core.Job) (*core.ProcessingResult, core.UsageTally, error) {
	var usage core.UsageTally

	texts := make([]string, 0, len(job.Segments))
	for _, segment := range job.Segments {
		if t := strings.TrimSpace(segment.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil, usage, core.ErrNoContent
	}

	result, err := r.gen.Generate(ctx, r.cfg.PromptFor(job.Style), strings.Join(texts, " "), GenerateOptions{
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return nil, usage, fmt.Errorf("simple processing failed: %w", err)
	}
	price := r.cfg.PriceFor(r.cfg.Model)
	usage.Add(result.InputTokens, result.OutputTokens, price.Cost(result.InputTokens, result.OutputTokens))

	var items []string
	switch job.Style {
	case core.StyleBulletPoints:
		items = splitBullets(result.Content)
	case core.StyleSummary:
		items = []string{result.Content}
	default: // steps and article both keep blank-line granularity
		items = splitParagraphs(result.Content)
	}

	r.reportProgress(ctx, job.ID, 0.8, "Processing completed")

	return &core.ProcessingResult{
		Style:    job.Style,
		Sections: []core.Section{{Title: "Complete Content", Items: items}},
	}, usage, nil
}

func (r *Runner) checkCancelled(ctx context.Context, jobID string) error {
	cancelled, err := r.store.CancelRequested(ctx, jobID)
	if err != nil {
		return err
	}
	if cancelled {
		return core.ErrJobCancelled
	}
	return nil
}

func (r *Runner) reportProgress(ctx context.Context, jobID string, progress float64, description string) {
	if err := r.store.UpdateProgress(ctx, jobID, progress); err != nil {
		log.Printf("Job %s: failed to update progress: %v", jobID, err)
		return
	}
	log.Printf("Job %s: %s - %.0f%%", jobID, description, progress*100)
}

func (r *Runner) updateVideo(ctx context.Context, videoID, status string, stats core.UsageTally, errMsg string) {
	if videoID == "" {
		return
	}
	video, err := r.store.GetVideo(ctx, videoID)
	if err != nil {
		video = &core.Video{ID: videoID}
	}
	video.Status = status
	video.Stats = stats
	video.Error = errMsg
	if err := r.store.UpsertVideo(ctx, video); err != nil {
		log.Printf("failed to update video %s: %v", videoID, err)
	}
}
