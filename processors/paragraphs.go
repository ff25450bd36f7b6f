package processors

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ChugThaJug/hellfast/config"
	"github.com/ChugThaJug/hellfast/core"
)

// ProgressFunc receives monotonic job progress in [0,1] with a short
// human-readable description. A nil ProgressFunc is allowed everywhere.
type ProgressFunc func(progress float64, description string)

// Paragraph synthesis owns the first half of overall job progress.
const synthesisProgressShare = 0.5

// ParagraphSynthesizer rewrites transcript chunks into article paragraphs,
// one generative call per chunk with adjacent-chunk context injected.
type ParagraphSynthesizer struct {
	gen   TextGenerator
	cfg   *config.Config
	retry core.RetryPolicy
}

func NewParagraphSynthesizer(gen TextGenerator, cfg *config.Config) *ParagraphSynthesizer {
	return &ParagraphSynthesizer{gen: gen, cfg: cfg, retry: cfg.RetryPolicy()}
}

// Synthesize processes every chunk in order. A chunk that still fails after
// the retry budget contributes zero paragraphs and processing moves on; the
// run only fails hard when fewer than the configured fraction of chunks
// succeeded or no paragraphs were produced at all.
func (s *ParagraphSynthesizer) Synthesize(ctx context.Context, chunks []core.TextChunk, basePrompt string, progress ProgressFunc) ([]core.Paragraph, core.UsageTally, error) {
	var (
		paragraphs       []core.Paragraph
		usage            core.UsageTally
		successfulChunks int
	)

	price := s.cfg.PriceFor(s.cfg.Model)
	totalChunks := len(chunks)

	for i, chunk := range chunks {
		if progress != nil {
			progress(float64(i+1)/float64(totalChunks)*synthesisProgressShare, "Processing transcript chunks")
		}

		enhancedPrompt := buildChunkPrompt(basePrompt, i, totalChunks)
		chunkText := contextualizeChunk(chunks, i, s.cfg.ContextWindow)

		var result *GenerateResult
		err := s.retry.Do(ctx, func() error {
			var callErr error
			result, callErr = s.gen.Generate(ctx, enhancedPrompt, chunkText, GenerateOptions{
				Temperature: s.cfg.Temperature,
				MaxTokens:   int(float64(len(chunk.Text)) * 1.5),
			})
			if callErr != nil {
				log.Printf("chunk %d/%d generation failed: %v", i+1, totalChunks, callErr)
			}
			return callErr
		})
		if err != nil {
			log.Printf("giving up on chunk %d/%d after %d attempts: %v", i+1, totalChunks, s.retry.MaxAttempts, err)
			continue
		}

		usage.Add(result.InputTokens, result.OutputTokens, price.Cost(result.InputTokens, result.OutputTokens))

		fragments := splitParagraphs(result.Content)
		if len(fragments) == 0 {
			continue
		}
		successfulChunks++

		for _, fragment := range fragments {
			// The model sometimes echoes the injected context markers back;
			// those are scaffolding, not content.
			if isContextMarker(fragment) {
				continue
			}
			paragraphs = append(paragraphs, core.Paragraph{
				ParagraphNumber: len(paragraphs),
				ParagraphText:   fragment,
				StartTime:       chunk.StartTime,
				ChunkIndex:      i,
			})
		}
	}

	if float64(successfulChunks) < float64(totalChunks)*s.cfg.MinChunkSuccess {
		return nil, usage, fmt.Errorf("%w (%d/%d succeeded)", core.ErrTooManyFailedChunks, successfulChunks, totalChunks)
	}
	if len(paragraphs) == 0 {
		return nil, usage, core.ErrNoParagraphs
	}

	log.Printf("paragraph synthesis: %d/%d chunks succeeded, %d paragraphs", successfulChunks, totalChunks, len(paragraphs))
	return paragraphs, usage, nil
}

// buildChunkPrompt appends positional framing so each chunk knows where it
// sits in the transcript and does not restart introductions or numbering.
func buildChunkPrompt(basePrompt string, index, total int) string {
	opening := "Continue the flow from the previous part."
	if index == 0 {
		opening = "This is the beginning of the transcript."
	}
	closing := "The content continues in the next part."
	if index == total-1 {
		closing = "This is the end of the transcript."
	}

	return basePrompt + fmt.Sprintf(`

This is part %d of %d of the transcript. Your task is to:
1. Convert this section into coherent paragraphs
2. Maintain the flow of information
3. %s
4. %s
5. Do not repeat introductions or restart numbering
`, index+1, total, opening, closing)
}

// contextualizeChunk prepends the tail of the previous chunk and appends the
// head of the next one, tagged so the model treats them as context only.
func contextualizeChunk(chunks []core.TextChunk, index, window int) string {
	text := chunks[index].Text

	if index > 0 {
		prev := chunks[index-1].Text
		if len(prev) > window {
			prev = prev[len(prev)-window:]
		}
		text = fmt.Sprintf("[CONTEXT FROM PREVIOUS PART: %s]\n\n%s", prev, text)
	}
	if index < len(chunks)-1 {
		next := chunks[index+1].Text
		if len(next) > window {
			next = next[:window]
		}
		text = fmt.Sprintf("%s\n\n[CONTEXT FOR NEXT PART: %s]", text, next)
	}
	return text
}

// splitParagraphs breaks completion content on blank lines into trimmed,
// non-empty fragments.
func splitParagraphs(content string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimSpace(content), "\n\n") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isContextMarker(fragment string) bool {
	return strings.HasPrefix(fragment, "[CONTEXT") || strings.Contains(fragment, "CONTEXT]")
}
