package core

import "math"

// UsageTally accumulates token counts and derived cost for one job run.
// It is scoped to a single pipeline execution and never shared across jobs.
type UsageTally struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add records one generative call. Cost is rounded to 6 decimal places so the
// stored value matches what billing reports.
func (u *UsageTally) Add(inputTokens, outputTokens int, cost float64) {
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.Cost = roundCost(u.Cost + cost)
}

// Merge folds another tally into this one.
func (u *UsageTally) Merge(other UsageTally) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Cost = roundCost(u.Cost + other.Cost)
}

func roundCost(c float64) float64 {
	return math.Round(c*1e6) / 1e6
}
