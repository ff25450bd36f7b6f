package processors

import (
	"strings"

	"github.com/ChugThaJug/hellfast/core"
)

// ChunkTranscript concatenates consecutive segments into chunks of at most
// maxChunkChars characters. A chunk's start time is the start of its first
// segment and never moves. Whitespace-only segments are skipped; segment text
// is never split across chunks. An input with no usable text yields nil.
func ChunkTranscript(segments []core.TranscriptSegment, maxChunkChars int) []core.TextChunk {
	var chunks []core.TextChunk

	current := core.TextChunk{}
	currentLength := 0

	for _, segment := range segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}

		if currentLength+len(text) > maxChunkChars || current.Text == "" {
			if current.Text != "" {
				chunks = append(chunks, current)
			}
			current = core.TextChunk{Text: text, StartTime: segment.Start}
			currentLength = len(text)
		} else {
			current.Text += " " + text
			currentLength += len(text) + 1
		}
	}

	if current.Text != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
