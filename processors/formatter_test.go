package processors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ChugThaJug/hellfast/core"
)

func TestFormatArticleRoundTrip(t *testing.T) {
	// Article style slices the synthesized paragraphs directly: a single
	// chapter covering everything must reproduce every paragraph verbatim
	// with zero generative calls.
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		t.Fatal("article style must not call the generation service")
		return nil, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	paragraphs := makeParagraphs(6)
	chapters := []core.Chapter{{StartParagraphNumber: 0, Title: "Everything"}}

	sections, usage, err := formatter.Format(context.Background(), paragraphs, chapters, core.StylePodcastArticle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if len(sections[0].Items) != 6 {
		t.Fatalf("expected all 6 paragraphs, got %d", len(sections[0].Items))
	}
	for i, item := range sections[0].Items {
		if item != paragraphs[i].ParagraphText {
			t.Errorf("paragraph %d altered: %q", i, item)
		}
	}
	if usage.InputTokens != 0 || usage.Cost != 0 {
		t.Errorf("article style must cost nothing, got %+v", usage)
	}
}

func TestFormatChapterRanges(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: "item"}, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	paragraphs := makeParagraphs(10)
	chapters := []core.Chapter{
		{StartParagraphNumber: 0, Title: "First"},
		{StartParagraphNumber: 4, Title: "Second"},
		{StartParagraphNumber: 7, Title: "Third"},
	}

	_, _, err := formatter.Format(context.Background(), paragraphs, chapters, core.StyleSummary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("expected one call per chapter, got %d", gen.callCount())
	}

	// Chapter k owns [start_k, start_k+1); the last chapter runs to the end.
	if !strings.Contains(gen.calls[0].Content, "paragraph 0") || !strings.Contains(gen.calls[0].Content, "paragraph 3") ||
		strings.Contains(gen.calls[0].Content, "paragraph 4") {
		t.Errorf("first chapter range wrong: %q", gen.calls[0].Content)
	}
	if !strings.Contains(gen.calls[2].Content, "paragraph 7") || !strings.Contains(gen.calls[2].Content, "paragraph 9") {
		t.Errorf("last chapter should run to the end: %q", gen.calls[2].Content)
	}
}

func TestFormatStepCounterCarriesForward(t *testing.T) {
	responses := []string{
		"Step 1: Install the tool\n\nStep 2: Configure it",
		"Step 3: Run it",
	}
	gen := &fakeGenerator{fn: func(call int, _, _ string, _ GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: responses[call]}, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	paragraphs := makeParagraphs(4)
	chapters := []core.Chapter{
		{StartParagraphNumber: 0, Title: "Setup"},
		{StartParagraphNumber: 2, Title: "Usage"},
	}

	sections, _, err := formatter.Format(context.Background(), paragraphs, chapters, core.StyleStepByStep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}

	if !strings.Contains(gen.calls[0].SystemPrompt, "Start step numbering at Step 1.") {
		t.Errorf("first section should start at Step 1: %q", gen.calls[0].SystemPrompt)
	}
	// The first response's highest marker was Step 2, so the second section
	// must be told to continue at Step 3.
	if !strings.Contains(gen.calls[1].SystemPrompt, "Start step numbering at Step 3.") {
		t.Errorf("second section should continue at Step 3: %q", gen.calls[1].SystemPrompt)
	}
	if !strings.Contains(gen.calls[1].SystemPrompt, "which ended at Step 2.") {
		t.Errorf("second section framing should name the previous last step: %q", gen.calls[1].SystemPrompt)
	}
}

func TestFormatStepCounterFallsBackToFragmentCount(t *testing.T) {
	responses := []string{
		"Do the first thing\n\nDo the second thing\n\nDo the third thing",
		"continue",
	}
	gen := &fakeGenerator{fn: func(call int, _, _ string, _ GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: responses[call]}, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	chapters := []core.Chapter{
		{StartParagraphNumber: 0, Title: "A"},
		{StartParagraphNumber: 2, Title: "B"},
	}

	_, _, err := formatter.Format(context.Background(), makeParagraphs(4), chapters, core.StyleStepByStep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No step markers in the first response: advance by its 3 fragments.
	if !strings.Contains(gen.calls[1].SystemPrompt, "Start step numbering at Step 4.") {
		t.Errorf("counter should advance by fragment count: %q", gen.calls[1].SystemPrompt)
	}
}

func TestFormatBulletsStripMarkers(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: "• First point\n- Second point\nThird point\n\n"}, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	chapters := []core.Chapter{{StartParagraphNumber: 0, Title: "Points"}}
	sections, _, err := formatter.Format(context.Background(), makeParagraphs(2), chapters, core.StyleBulletPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"First point", "Second point", "Third point"}
	if len(sections[0].Items) != len(want) {
		t.Fatalf("expected %d bullets, got %+v", len(want), sections[0].Items)
	}
	for i, item := range sections[0].Items {
		if item != want[i] {
			t.Errorf("bullet %d: got %q want %q", i, item, want[i])
		}
	}
}

func TestFormatPositionalFraming(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return &GenerateResult{Content: "x"}, nil
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	chapters := []core.Chapter{
		{StartParagraphNumber: 0, Title: "Alpha"},
		{StartParagraphNumber: 1, Title: "Omega"},
	}
	_, _, err := formatter.Format(context.Background(), makeParagraphs(2), chapters, core.StyleBulletPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gen.calls[0].SystemPrompt, `section 1 of 2, titled "Alpha"`) {
		t.Errorf("first prompt missing section framing: %q", gen.calls[0].SystemPrompt)
	}
	if !strings.Contains(gen.calls[0].SystemPrompt, "This is the first section.") {
		t.Errorf("first prompt missing first-section framing")
	}
	if !strings.Contains(gen.calls[1].SystemPrompt, "This is the last section.") {
		t.Errorf("last prompt missing last-section framing")
	}
	if !strings.Contains(gen.calls[1].SystemPrompt, "Do NOT repeat information already covered") {
		t.Errorf("prompt missing repetition guard")
	}
}

func TestFormatCallFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{fn: func(int, string, string, GenerateOptions) (*GenerateResult, error) {
		return nil, errors.New("service down")
	}}
	formatter := NewSectionFormatter(gen, testConfig())

	chapters := []core.Chapter{{StartParagraphNumber: 0, Title: "Only"}}
	_, _, err := formatter.Format(context.Background(), makeParagraphs(2), chapters, core.StyleBulletPoints)
	if err == nil {
		t.Fatal("formatter call failure must propagate")
	}
}
