package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/core"
)

// tocMaxTokens bounds the breakpoint-list response; a TOC is tiny compared
// to content generation.
const tocMaxTokens = 1000

// ChapterPlanner asks the model for 3-7 chapter breakpoints over the full
// paragraph set. This is a single best-effort call: malformed output degrades
// to one default chapter instead of failing the job, and there is no retry.
type ChapterPlanner struct {
	gen TextGenerator
	cfg *config.Config
}

func NewChapterPlanner(gen TextGenerator, cfg *config.Config) *ChapterPlanner {
	return &ChapterPlanner{gen: gen, cfg: cfg}
}

type tocEntry struct {
	// Pointer so an absent field is distinguishable from paragraph 0.
	StartParagraphNumber *int   `json:"start_paragraph_number"`
	Title                string `json:"title"`
}

type tocResponse struct {
	Chapters []tocEntry `json:"chapters"`
}

// Plan never fails: any error path falls back to a single chapter covering
// the whole content. Usage from a received response is always recorded.
func (p *ChapterPlanner) Plan(ctx context.Context, paragraphs []core.Paragraph) ([]core.Chapter, core.UsageTally) {
	var usage core.UsageTally
	totalParagraphs := len(paragraphs)

	texts := make([]string, len(paragraphs))
	for i, paragraph := range paragraphs {
		texts[i] = paragraph.ParagraphText
	}

	result, err := p.gen.Generate(ctx, buildTOCPrompt(totalParagraphs), strings.Join(texts, "\n\n"), GenerateOptions{
		Temperature: p.cfg.Temperature,
		MaxTokens:   tocMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		log.Printf("TOC generation failed, using default chapter: %v", err)
		return defaultChapters(), usage
	}

	price := p.cfg.PriceFor(p.cfg.Model)
	usage.Add(result.InputTokens, result.OutputTokens, price.Cost(result.InputTokens, result.OutputTokens))

	var toc tocResponse
	if err := json.Unmarshal([]byte(result.Content), &toc); err != nil {
		log.Printf("failed to parse TOC JSON response: %v", err)
		return defaultChapters(), usage
	}

	var validChapters []core.Chapter
	lastValidStart := -1

	for _, entry := range toc.Chapters {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		start := entry.StartParagraphNumber
		if start == nil || *start >= totalParagraphs || *start <= lastValidStart {
			log.Printf("skipping invalid TOC entry: %+v", entry)
			continue
		}
		validChapters = append(validChapters, core.Chapter{
			StartParagraphNumber: *start,
			Title:                title,
		})
		lastValidStart = *start
	}

	if len(validChapters) == 0 {
		return defaultChapters(), usage
	}
	// The first chapter must own the leading paragraphs even when the model
	// placed its first breakpoint later.
	validChapters[0].StartParagraphNumber = 0
	return validChapters, usage
}

func defaultChapters() []core.Chapter {
	return []core.Chapter{{StartParagraphNumber: 0, Title: "Complete Content"}}
}

func buildTOCPrompt(totalParagraphs int) string {
	return fmt.Sprintf(`Create a detailed table of contents for this content.

Instructions:
1. Identify 3-7 major topics or natural break points
2. Each chapter should represent a coherent section of content
3. Make chapter titles clear and descriptive
4. Ensure chapters are evenly distributed
5. Look for natural topic transitions, not arbitrary divisions
6. Avoid creating sections that would break the flow of a step-by-step guide

Format your response as JSON with this structure:
{
    "chapters": [
        {"start_paragraph_number": 0, "title": "Introduction"},
        {"start_paragraph_number": N, "title": "Chapter Title"},
        ...
    ]
}

Rules:
- start_paragraph_number must be between 0 and %d
- Chapters must be in chronological order
- Chapter titles should be descriptive and relevant
- Each chapter should cover a distinct topic or theme
- The first chapter should always start at paragraph 0
- Do not create too many small sections - aim for 3-5 substantive sections
`, totalParagraphs-1)
}
