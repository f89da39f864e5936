package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/simaogato/lotwise-backend/internal/domain"
)

const (
	DefaultStatusRetention = 10 * time.Minute
	DefaultShutdownGrace   = 10 * time.Second

	reasonShutdownBeforeStart = "submitter shut down before processing"
	reasonShutdownGrace       = "submitter shut down before the submission finished"
)

// job is one queued report waiting for the worker
type job struct {
	submission *Submission
	result     *domain.TaxReportResult
}

// TaxReportSubmitter marks every transaction used by a report as filed.
//
// Submissions are committed one at a time by a single worker goroutine, strictly
// in Submit order, so two reports never interleave their writes.
type TaxReportSubmitter struct {
	TransactionRepo domain.TransactionRepository
	Logger          *slog.Logger

	statusRetention time.Duration
	shutdownGrace   time.Duration
	statuses        *cache.Cache

	mu       sync.Mutex
	queue    []*job
	closed   bool
	inFlight *Submission

	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// Option configures a TaxReportSubmitter
type Option func(*TaxReportSubmitter)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *TaxReportSubmitter) {
		s.Logger = logger
	}
}

// WithStatusRetention keeps terminal statuses observable for d.
// Zero drops them as soon as they become terminal.
func WithStatusRetention(d time.Duration) Option {
	return func(s *TaxReportSubmitter) {
		s.statusRetention = d
	}
}

// WithShutdownGrace bounds how long Shutdown waits for the in-flight submission
func WithShutdownGrace(d time.Duration) Option {
	return func(s *TaxReportSubmitter) {
		s.shutdownGrace = d
	}
}

// NewTaxReportSubmitter creates a submitter and starts its worker
func NewTaxReportSubmitter(transactionRepo domain.TransactionRepository, opts ...Option) *TaxReportSubmitter {
	ctx, cancel := context.WithCancel(context.Background())

	s := &TaxReportSubmitter{
		TransactionRepo: transactionRepo,
		Logger:          slog.Default(),
		statusRetention: DefaultStatusRetention,
		shutdownGrace:   DefaultShutdownGrace,
		wake:            make(chan struct{}, 1),
		ctx:             ctx,
		cancel:          cancel,
		stopped:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	cleanup := s.statusRetention
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	s.statuses = cache.New(cache.NoExpiration, cleanup)

	go s.run()

	return s
}

// Submit enqueues the report and returns immediately with an IN_PROGRESS submission id
func (s *TaxReportSubmitter) Submit(result *domain.TaxReportResult) (uuid.UUID, error) {
	if result == nil {
		return uuid.Nil, errors.New("tax report result cannot be nil")
	}

	sub := newSubmission(uuid.New())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return uuid.Nil, domain.ErrSubmitterClosed
	}
	s.statuses.Set(sub.ID().String(), sub, cache.NoExpiration)
	s.queue = append(s.queue, &job{submission: sub, result: result})
	queued := len(s.queue)
	s.mu.Unlock()

	s.signal()

	s.Logger.Info("Tax report submitted",
		"submissionId", sub.ID(),
		"events", len(result.Events),
		"queued", queued)

	return sub.ID(), nil
}

// Status returns the handle for a submission, or false if it is unknown or
// its terminal state has outlived the retention period
func (s *TaxReportSubmitter) Status(id uuid.UUID) (*Submission, bool) {
	v, ok := s.statuses.Get(id.String())
	if !ok {
		return nil, false
	}
	return v.(*Submission), true
}

// Shutdown stops intake and waits for the worker
// Logic:
//  1. Reject further Submit calls
//  2. Fail every queued submission that has not started
//  3. Give the in-flight submission until ctx or the configured grace period ends
//  4. Past that, cancel the worker and fail the in-flight submission
//
// No submission is left IN_PROGRESS once Shutdown returns.
func (s *TaxReportSubmitter) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		select {
		case <-s.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.closed = true
	abandoned := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, j := range abandoned {
		s.finish(j.submission, domain.SubmissionStatusFailed, reasonShutdownBeforeStart)
	}
	s.signal()

	if s.shutdownGrace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownGrace)
		defer cancel()
	}

	select {
	case <-s.stopped:
		s.cancel()
		s.Logger.Info("Submitter stopped", "abandoned", len(abandoned))
		return nil
	case <-ctx.Done():
	}

	s.cancel()

	s.mu.Lock()
	inFlight := s.inFlight
	s.mu.Unlock()
	if inFlight != nil {
		s.finish(inFlight, domain.SubmissionStatusFailed, reasonShutdownGrace)
	}

	s.Logger.Warn("Submitter shutdown grace period elapsed",
		"abandoned", len(abandoned),
		"error", ctx.Err())

	return ctx.Err()
}

// run is the single worker loop
func (s *TaxReportSubmitter) run() {
	defer close(s.stopped)

	for {
		j, ok := s.next()
		if !ok {
			return
		}
		s.commit(j)
	}
}

// next pops the oldest job, blocking until one arrives or the submitter closes
func (s *TaxReportSubmitter) next() (*job, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			j := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.inFlight = j.submission
			s.mu.Unlock()
			return j, true
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-s.wake:
		case <-s.ctx.Done():
			return nil, false
		}
	}
}

// commit flips FiledWithIRS on every transaction the report touched.
// The first failing id fails the submission and the remaining ids are left alone.
func (s *TaxReportSubmitter) commit(j *job) {
	defer func() {
		s.mu.Lock()
		s.inFlight = nil
		s.mu.Unlock()
	}()

	sub := j.submission
	ids := j.result.TransactionIDs()

	for _, id := range ids {
		if err := s.ctx.Err(); err != nil {
			s.finish(sub, domain.SubmissionStatusFailed, reasonShutdownGrace)
			return
		}

		tx, err := s.TransactionRepo.GetByID(s.ctx, id)
		if err != nil {
			reason := fmt.Sprintf("failed to load transaction %s: %v", id, err)
			if errors.Is(err, domain.ErrTransactionNotFound) {
				reason = fmt.Sprintf("transaction not found: %s", id)
			}
			s.finish(sub, domain.SubmissionStatusFailed, reason)
			return
		}

		if err := s.TransactionRepo.Update(s.ctx, tx.MarkFiled()); err != nil {
			s.finish(sub, domain.SubmissionStatusFailed,
				fmt.Sprintf("failed to mark transaction %s as filed: %v", id, err))
			return
		}
	}

	s.finish(sub, domain.SubmissionStatusCompleted, "")
}

// finish records the terminal state, starts its retention clock, then releases waiters
func (s *TaxReportSubmitter) finish(sub *Submission, status domain.SubmissionStatus, reason string) {
	if !sub.transition(status, reason) {
		return
	}

	key := sub.ID().String()
	if s.statusRetention > 0 {
		s.statuses.Set(key, sub, s.statusRetention)
	} else {
		s.statuses.Delete(key)
	}

	sub.markDone()

	if status == domain.SubmissionStatusFailed {
		s.Logger.Warn("Tax report submission failed", "submissionId", sub.ID(), "reason", reason)
		return
	}
	s.Logger.Info("Tax report submission completed", "submissionId", sub.ID())
}

func (s *TaxReportSubmitter) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
