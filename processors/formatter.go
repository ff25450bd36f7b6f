package processors

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/core"
)

var stepNumberPattern = regexp.MustCompile(`Step\s*(\d+)`)

// SectionFormatter renders each chapter's paragraph range in the requested
// output style, one generative call per chapter. Continuity state (the
// running step counter, first/last framing) is carried forward so sections
// read as one document rather than independent fragments.
type SectionFormatter struct {
	gen TextGenerator
	cfg *config.Config
}

func NewSectionFormatter(gen TextGenerator, cfg *config.Config) *SectionFormatter {
	return &SectionFormatter{gen: gen, cfg: cfg}
}

// chapterRange is one chapter plus the concatenated text of the paragraphs
// it owns.
type chapterRange struct {
	title      string
	paragraphs []string
}

// Format renders all chapters. Article style reuses the synthesized
// paragraphs directly and costs nothing; the other styles issue one call per
// chapter and share the returned usage tally.
func (f *SectionFormatter) Format(ctx context.Context, paragraphs []core.Paragraph, chapters []core.Chapter, style core.OutputStyle) ([]core.Section, core.UsageTally, error) {
	ranges := buildChapterRanges(paragraphs, chapters)

	if style == core.StylePodcastArticle {
		sections := make([]core.Section, len(ranges))
		for i, r := range ranges {
			sections[i] = core.Section{Title: r.title, Items: r.paragraphs}
		}
		return sections, core.UsageTally{}, nil
	}

	var (
		sections []core.Section
		usage    core.UsageTally
	)
	price := f.cfg.PriceFor(f.cfg.Model)
	stepCount := 1

	for i, r := range ranges {
		prompt := f.buildSectionPrompt(style, i, len(ranges), r.title, stepCount)

		result, err := f.gen.Generate(ctx, prompt, strings.Join(r.paragraphs, "\n\n"), GenerateOptions{
			Temperature: f.cfg.Temperature,
			MaxTokens:   f.cfg.MaxTokens,
		})
		if err != nil {
			return nil, usage, fmt.Errorf("formatting section %d (%q): %w", i+1, r.title, err)
		}
		usage.Add(result.InputTokens, result.OutputTokens, price.Cost(result.InputTokens, result.OutputTokens))

		var items []string
		switch style {
		case core.StyleBulletPoints:
			items = splitBullets(result.Content)
		case core.StyleStepByStep:
			items = splitParagraphs(result.Content)
			stepCount = advanceStepCount(result.Content, stepCount, len(items))
		default: // summary
			items = splitParagraphs(result.Content)
		}

		sections = append(sections, core.Section{Title: r.title, Items: items})
	}

	return sections, usage, nil
}

// buildChapterRanges assigns each chapter the paragraphs from its start up to
// the next chapter's start; the last chapter runs to the end. Starts outside
// [0, len) have already been rejected by the planner.
func buildChapterRanges(paragraphs []core.Paragraph, chapters []core.Chapter) []chapterRange {
	ranges := make([]chapterRange, 0, len(chapters))
	for k, chapter := range chapters {
		start := chapter.StartParagraphNumber
		end := len(paragraphs)
		if k+1 < len(chapters) {
			end = chapters[k+1].StartParagraphNumber
		}

		texts := make([]string, 0, end-start)
		for i := start; i < end && i < len(paragraphs); i++ {
			texts = append(texts, paragraphs[i].ParagraphText)
		}
		ranges = append(ranges, chapterRange{title: chapter.Title, paragraphs: texts})
	}
	return ranges
}

// buildSectionPrompt appends positional framing to the style's base prompt.
// Step style additionally pins the starting step number so numbering runs
// continuously across sections.
func (f *SectionFormatter) buildSectionPrompt(style core.OutputStyle, index, total int, title string, stepCount int) string {
	opening := "This is the first section."
	if index > 0 {
		opening = "Continue from the previous section."
		if style == core.StyleStepByStep {
			opening = fmt.Sprintf("Continue from the previous section, which ended at Step %d.", stepCount-1)
		}
	}
	closing := "This will be followed by another section."
	if index == total-1 {
		closing = "This is the last section."
	}

	prompt := f.cfg.PromptFor(style) + fmt.Sprintf(`

This is section %d of %d, titled %q.
%s
%s
`, index+1, total, title, opening, closing)

	if style == core.StyleStepByStep {
		prompt += fmt.Sprintf("\nStart step numbering at Step %d.", stepCount)
	}
	prompt += `
Do NOT repeat information already covered in previous sections.
Do NOT include introductory text if this is not the first section.
Focus on content specific to this section.
`
	return prompt
}

// advanceStepCount moves the running counter past the highest step number the
// section emitted; when the section carries no step markers, the counter
// advances by the number of returned fragments instead.
func advanceStepCount(content string, stepCount, fragments int) int {
	matches := stepNumberPattern.FindAllStringSubmatch(content, -1)
	highest := 0
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	if highest > 0 {
		return highest + 1
	}
	return stepCount + fragments
}

// splitBullets breaks a completion into one item per line, stripping leading
// bullet and dash markers.
func splitBullets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "• ")
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
