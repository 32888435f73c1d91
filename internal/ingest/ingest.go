package ingest

import (
	"time"
)

const (
	StatusCompleted = "COMPLETED"
	StatusPartial   = "PARTIAL"
	StatusCancelled = "CANCELLED"
)

// Run summarizes one bulk import.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Requested  int
	Added      int
	Skipped    int // already in the catalog
	Failed     int
	// Unsaved counts books added in memory whose snapshot write failed.
	Unsaved  int
	Failures []Failure
}

type Failure struct {
	ISBN string
	Err  error
}
