package processors

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ChugThaJug/hellfast/core"
	"github.com/ChugThaJug/hellfast/storage"
)

// pipelineGenerator scripts all three generative stages: synthesis calls carry
// "part N of M" framing, the TOC call uses JSON mode, formatter calls carry
// "This is section" framing.
func pipelineGenerator(t *testing.T) *fakeGenerator {
	t.Helper()
	return &fakeGenerator{fn: func(_ int, systemPrompt, _ string, opts GenerateOptions) (*GenerateResult, error) {
		switch {
		case opts.JSONMode:
			return &GenerateResult{
				Content:      `{"chapters": [{"start_paragraph_number": 0, "title": "Setup"}, {"start_paragraph_number": 1, "title": "Usage"}]}`,
				InputTokens:  5,
				OutputTokens: 5,
			}, nil
		case strings.Contains(systemPrompt, "This is section"):
			return &GenerateResult{Content: "Step 1: Do the first thing.\n\nStep 2: Do the next thing.", InputTokens: 10, OutputTokens: 10}, nil
		default:
			return &GenerateResult{Content: "First paragraph of content.\n\nSecond paragraph of content.", InputTokens: 10, OutputTokens: 10}, nil
		}
	}}
}

func seedJob(t *testing.T, store storage.JobStore, mode core.ProcessingMode, style core.OutputStyle) *core.Job {
	t.Helper()
	job := &core.Job{
		ID:      "job_test",
		VideoID: "vid1",
		Status:  core.JobPending,
		Mode:    mode,
		Style:   style,
		Segments: []core.TranscriptSegment{
			{Start: 0, Text: "Hello and welcome to the tutorial."},
			{Start: 5, Text: "First install the dependencies."},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func TestProcessDetailedCompletes(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := pipelineGenerator(t)
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeDetailed, core.StyleStepByStep)

	runner.Process(context.Background(), "job_test")

	job, err := store.GetJob(context.Background(), "job_test")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != core.JobCompleted {
		t.Fatalf("expected completed, got %s (error %q)", job.Status, job.Error)
	}
	if job.Progress != 1.0 {
		t.Errorf("completed job should report progress 1.0, got %v", job.Progress)
	}
	if job.Result == nil || len(job.Result.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %+v", job.Result)
	}
	if job.Result.Sections[0].Title != "Setup" || job.Result.Sections[1].Title != "Usage" {
		t.Errorf("section titles should follow the planned chapters, got %+v", job.Result.Sections)
	}
	if job.Usage.InputTokens == 0 || job.Usage.OutputTokens == 0 || job.Usage.Cost <= 0 {
		t.Errorf("usage should aggregate all stages, got %+v", job.Usage)
	}
	if job.CompletedAt == nil {
		t.Error("completed job should carry a completion timestamp")
	}

	video, err := store.GetVideo(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if video.Status != "completed" || video.Stats != job.Usage {
		t.Errorf("video record should mirror the job outcome, got %+v", video)
	}
}

func TestProcessDetailedStepNumberingRunsAcrossSections(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := pipelineGenerator(t)
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeDetailed, core.StyleStepByStep)

	runner.Process(context.Background(), "job_test")

	job, _ := store.GetJob(context.Background(), "job_test")
	if job.Status != core.JobCompleted {
		t.Fatalf("expected completed, got %s (error %q)", job.Status, job.Error)
	}
	var steps []string
	for _, section := range job.Result.Sections {
		steps = append(steps, section.Items...)
	}
	for i, step := range steps {
		want := "Step " + string(rune('1'+i))
		if !strings.HasPrefix(step, want) {
			t.Errorf("step %d should start with %q, got %q", i, want, step)
		}
	}
}

func TestProcessSynthesisFailureFailsJob(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return nil, errors.New("service unavailable")
	}}
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeDetailed, core.StyleBulletPoints)

	runner.Process(context.Background(), "job_test")

	job, _ := store.GetJob(context.Background(), "job_test")
	if job.Status != core.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Result != nil {
		t.Error("failed job must not publish a partial result")
	}
	if job.Error == "" {
		t.Error("failed job should carry the failure message")
	}

	video, err := store.GetVideo(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if video.Status != "failed" || video.Error == "" {
		t.Errorf("video record should reflect the failure, got %+v", video)
	}
}

func TestProcessCancellationStopsBetweenStages(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := pipelineGenerator(t)
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeDetailed, core.StyleStepByStep)

	if err := store.RequestCancel(context.Background(), "job_test"); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	runner.Process(context.Background(), "job_test")

	job, _ := store.GetJob(context.Background(), "job_test")
	if job.Status != core.JobFailed {
		t.Fatalf("cancelled job should end failed, got %s", job.Status)
	}
	if !strings.Contains(job.Error, "cancelled") {
		t.Errorf("error should name the cancellation, got %q", job.Error)
	}
	// Synthesis runs before the first cancellation check; the TOC and
	// formatter calls must not.
	for _, call := range gen.calls {
		if call.Opts.JSONMode || strings.Contains(call.SystemPrompt, "This is section") {
			t.Errorf("no calls should run past the cancellation check, got prompt %q", call.SystemPrompt)
		}
	}
}

func TestProcessSimpleMode(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: "• First point\n• Second point", InputTokens: 30, OutputTokens: 15}, nil
	}}
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeSimple, core.StyleBulletPoints)

	runner.Process(context.Background(), "job_test")

	if gen.callCount() != 1 {
		t.Fatalf("simple mode should make exactly one call, got %d", gen.callCount())
	}
	job, _ := store.GetJob(context.Background(), "job_test")
	if job.Status != core.JobCompleted {
		t.Fatalf("expected completed, got %s (error %q)", job.Status, job.Error)
	}
	sections := job.Result.Sections
	if len(sections) != 1 || sections[0].Title != "Complete Content" {
		t.Fatalf("simple mode should produce one Complete Content section, got %+v", sections)
	}
	if len(sections[0].Items) != 2 || sections[0].Items[0] != "First point" {
		t.Errorf("bullet markers should be stripped, got %+v", sections[0].Items)
	}
	if job.Usage.InputTokens != 30 || job.Usage.OutputTokens != 15 {
		t.Errorf("usage should record the single call, got %+v", job.Usage)
	}
}

func TestProcessEmptyTranscriptFails(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := pipelineGenerator(t)
	runner := NewRunner(store, gen, testConfig())

	job := &core.Job{
		ID:       "job_empty",
		Status:   core.JobPending,
		Mode:     core.ModeDetailed,
		Style:    core.StyleSummary,
		Segments: []core.TranscriptSegment{{Start: 0, Text: "   "}},
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	runner.Process(context.Background(), "job_empty")

	got, _ := store.GetJob(context.Background(), "job_empty")
	if got.Status != core.JobFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if gen.callCount() != 0 {
		t.Errorf("no generative calls expected for an empty transcript, got %d", gen.callCount())
	}
}

func TestProcessUnknownJobIsNoOp(t *testing.T) {
	store := storage.NewMemoryJobStore()
	runner := NewRunner(store, pipelineGenerator(t), testConfig())
	runner.Process(context.Background(), "missing")
}

func TestSubmitRunsJobInBackground(t *testing.T) {
	store := storage.NewMemoryJobStore()
	gen := pipelineGenerator(t)
	runner := NewRunner(store, gen, testConfig())
	seedJob(t, store, core.ModeDetailed, core.StyleStepByStep)

	runner.Submit("job_test")
	runner.Wait()

	job, _ := store.GetJob(context.Background(), "job_test")
	if job.Status != core.JobCompleted {
		t.Fatalf("expected completed after Wait, got %s (error %q)", job.Status, job.Error)
	}
}
