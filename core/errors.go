package core

import "errors"

// Pipeline error kinds. Only these and unexpected internal errors surface as
// job failures; everything else is recovered locally (retry or fallback).
var (
	// ErrNoContent means the transcript had no non-empty segments, so there
	// is nothing to chunk.
	ErrNoContent = errors.New("transcript contains no usable text")

	// ErrTooManyFailedChunks means fewer than the configured fraction of
	// chunks produced paragraphs after all retries.
	ErrTooManyFailedChunks = errors.New("too many failed chunks")

	// ErrNoParagraphs means every chunk came back empty.
	ErrNoParagraphs = errors.New("no paragraphs were generated")

	// ErrJobCancelled is recorded when a cancel request is observed between
	// pipeline stages.
	ErrJobCancelled = errors.New("job cancelled by user")

	// ErrJobNotFound is returned by stores for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
)
