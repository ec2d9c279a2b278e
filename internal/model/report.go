package model

import (
	"time"

	"github.com/google/uuid"
)

// TickerResult is the outcome of one security's sync and profile refresh.
type TickerResult struct {
	Ticker    string `json:"ticker"`
	Synced    bool   `json:"synced"`
	NewRows   int    `json:"newRows"`
	Refreshed bool   `json:"refreshed"`
	Err       string `json:"error,omitempty"`
}

// RunReport aggregates the per-security results of one pipeline run.
type RunReport struct {
	ID         uuid.UUID      `json:"id"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Results    []TickerResult `json:"results"`
}

// Failed counts securities whose sync or refresh reported an error.
func (r *RunReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != "" {
			n++
		}
	}
	return n
}
