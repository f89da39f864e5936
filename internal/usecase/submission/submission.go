package submission

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

// Submission is an observable handle on one submitted report.
// It moves from IN_PROGRESS to exactly one terminal state.
type Submission struct {
	mu    sync.Mutex
	state domain.SubmissionState
	done  chan struct{}
}

func newSubmission(id uuid.UUID) *Submission {
	return &Submission{
		state: domain.SubmissionState{
			ID:        id,
			Status:    domain.SubmissionStatusInProgress,
			UpdatedAt: time.Now(),
		},
		done: make(chan struct{}),
	}
}

// ID returns the submission id
func (s *Submission) ID() uuid.UUID {
	return s.state.ID
}

// State returns a snapshot of the current state
func (s *Submission) State() domain.SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the submission reaches COMPLETED or FAILED
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission is terminal or ctx ends
func (s *Submission) Wait(ctx context.Context) (domain.SubmissionState, error) {
	select {
	case <-s.done:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}

// transition moves to a terminal state; only the first call wins
func (s *Submission) transition(status domain.SubmissionStatus, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Terminal() {
		return false
	}

	s.state.Status = status
	s.state.Reason = reason
	s.state.UpdatedAt = time.Now()
	return true
}

func (s *Submission) markDone() {
	close(s.done)
}
