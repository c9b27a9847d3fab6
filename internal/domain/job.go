package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus uint8

const (
	JobNotStarted JobStatus = iota
	JobInProgress
	JobDone
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobNotStarted:
		return "not_started"
	case JobInProgress:
		return "in_progress"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is the lifecycle record of one unit of deferred work. It is created by
// any producer, mutated only by the worker loop, and swept by a periodic
// cleanup outside this engine.
type Job struct {
	ID uuid.UUID
	// RecordID is the subject of the work; AssociatedRecordID is the
	// recipient for fan-out jobs.
	RecordID           uuid.UUID
	AssociatedRecordID uuid.UUID
	CreatedByID        uuid.UUID
	Status             JobStatus
	FailedCount        int
	Created            time.Time
	Updated            time.Time
}
