package core

import (
	"time"
)

// ========== 转录与分块 ==========

// TranscriptSegment is one time-coded line of the source transcript.
// Segments arrive from the transcript provider already ordered by start time.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// TextChunk is a bounded slice of transcript text. StartTime is fixed to the
// start of the chunk's first segment when the chunk is created.
type TextChunk struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
}

// ========== 生成内容 ==========

type Paragraph struct {
	ParagraphNumber int     `json:"paragraph_number"`
	ParagraphText   string  `json:"paragraph_text"`
	StartTime       float64 `json:"start_time"`
	ChunkIndex      int     `json:"chunk_index"`
}

// Chapter is one TOC breakpoint. StartParagraphNumber values are strictly
// increasing across a valid chapter list and the first chapter starts at 0.
type Chapter struct {
	StartParagraphNumber int    `json:"start_paragraph_number"`
	Title                string `json:"title"`
}

// Section is a chapter rendered in the requested output style. Items are
// bullets, steps, summary fragments or article paragraphs depending on style.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// ProcessingResult is the final artifact handed to the persistence layer.
type ProcessingResult struct {
	Style    OutputStyle `json:"style"`
	Sections []Section   `json:"sections"`
}

// ========== 输出样式与处理模式 ==========

type OutputStyle string

const (
	StyleBulletPoints   OutputStyle = "bullet_points"
	StyleSummary        OutputStyle = "summary"
	StyleStepByStep     OutputStyle = "step_by_step"
	StylePodcastArticle OutputStyle = "podcast_article"
)

func ParseOutputStyle(s string) (OutputStyle, bool) {
	switch OutputStyle(s) {
	case StyleBulletPoints, StyleSummary, StyleStepByStep, StylePodcastArticle:
		return OutputStyle(s), true
	}
	return "", false
}

type ProcessingMode string

const (
	ModeSimple   ProcessingMode = "simple"
	ModeDetailed ProcessingMode = "detailed"
)

func ParseProcessingMode(s string) (ProcessingMode, bool) {
	switch ProcessingMode(s) {
	case ModeSimple, ModeDetailed:
		return ProcessingMode(s), true
	}
	return "", false
}

// ========== 作业与视频记录 ==========

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one processing request. The transcript rides along on the record so
// the runner never needs a second lookup against the transcript provider.
type Job struct {
	ID          string              `json:"job_id"`
	VideoID     string              `json:"video_id"`
	Status      JobStatus           `json:"status"`
	Progress    float64             `json:"progress"`
	Mode        ProcessingMode      `json:"mode"`
	Style       OutputStyle         `json:"output_style"`
	Segments    []TranscriptSegment `json:"segments,omitempty"`
	Result      *ProcessingResult   `json:"result,omitempty"`
	Usage       UsageTally          `json:"usage"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Video mirrors the externally visible state of the source video. One video
// may be reprocessed by several jobs; the latest job wins.
type Video struct {
	ID        string     `json:"video_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Stats     UsageTally `json:"stats"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
