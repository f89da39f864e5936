package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the lifecycle state of a report submission
type SubmissionStatus string

const (
	SubmissionStatusInProgress SubmissionStatus = "IN_PROGRESS"
	SubmissionStatusCompleted  SubmissionStatus = "COMPLETED"
	SubmissionStatusFailed     SubmissionStatus = "FAILED"
)

// Terminal reports whether no further transitions can happen
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusCompleted || s == SubmissionStatusFailed
}

// SubmissionState is a point-in-time snapshot of a submission.
// Reason is only set for FAILED.
type SubmissionState struct {
	ID        uuid.UUID
	Status    SubmissionStatus
	Reason    string
	UpdatedAt time.Time
}
