package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"parkly/internal/notifications"
	"parkly/internal/reservations"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/txn"
	"parkly/internal/tickets"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// errNotApplied rolls back a multi-record transition whose guard no longer matched
var errNotApplied = errors.New("record moved on before the sweep reached it")

// Locker is a cross-process lease; see cache.Lease
type Locker interface {
	Acquire(ctx context.Context) (release func(), acquired bool, err error)
}

type Dependencies struct {
	Store        Store
	Reservations reservations.Repository
	Tickets      tickets.Repository
	Transactor   txn.Transactor
	Availability reservations.AvailabilityInvalidator
	Publisher    notifications.Publisher
	// Lease is optional; without it every instance sweeps and the conditional writes keep that safe
	Lease  Locker
	Logger *logger.Logger
	Config config.ReconciliationConfig

	// Now defaults to time.Now
	Now func() time.Time
}

// Scheduler applies the time-driven reservation and ticket transitions on a fixed interval
type Scheduler struct {
	deps Dependencies

	runMu sync.Mutex // one pass at a time within the process

	mu       sync.Mutex
	running  bool
	status   JobStatus
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(deps Dependencies) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = notifications.NoopPublisher{}
	}
	if deps.Config.Interval <= 0 {
		deps.Config.Interval = defaultRunInterval
	}
	if deps.Config.BatchSize <= 0 {
		deps.Config.BatchSize = defaultBatchSize
	}
	return &Scheduler{
		deps: deps,
		done: make(chan struct{}),
		status: JobStatus{
			Enabled:   deps.Config.Enabled,
			Interval:  deps.Config.Interval.String(),
			BatchSize: deps.Config.BatchSize,
		},
	}
}

// Start runs a pass immediately and then on every tick until ctx ends or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.status.Running = true
	s.mu.Unlock()

	s.deps.Logger.Info("reconciliation scheduler started",
		"interval", s.deps.Config.Interval.String(), "batch_size", s.deps.Config.BatchSize)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.deps.Config.Interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight pass to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.mu.Unlock()
	s.deps.Logger.Info("reconciliation scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.deps.Logger.ErrorContext(ctx, "reconciliation pass failed", "error", err.Error())
	}
}

// Status returns a snapshot for the admin job-status endpoint
func (s *Scheduler) Status() JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.status
	if out.LastResult != nil {
		result := *out.LastResult
		out.LastResult = &result
	}
	return out
}

// RunOnce performs one full pass of all four sweeps. A failing sweep does not stop the others;
// their errors are joined into the returned error alongside the partial result.
func (s *Scheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var result SweepResult
	if s.deps.Lease != nil {
		release, acquired, err := s.deps.Lease.Acquire(ctx)
		if err != nil {
			// Redis trouble should not stall the sweeps
			s.deps.Logger.WarnContext(ctx, "reconciliation lease unavailable, sweeping unguarded", "error", err.Error())
		} else if !acquired {
			result.Skipped = true
			return result, nil
		} else {
			defer release()
		}
	}

	started := time.Now()
	now := s.deps.Now().UTC()

	var errs []error
	for _, sweep := range []struct {
		name string
		run  func(context.Context, time.Time, *SweepResult) (int, int, error)
	}{
		{SweepExpireHolds, s.expireHolds},
		{SweepNoShows, s.cancelNoShows},
		{SweepFinished, s.closeFinished},
		{SweepStaleTickets, s.expireTickets},
	} {
		sweepStart := time.Now()
		moved, failed, err := sweep.run(ctx, now, &result)
		result.Failed += failed
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sweep.name, err))
		}
		s.deps.Logger.LogSweep(ctx, sweep.name, moved, failed, time.Since(sweepStart))
	}

	if result.Total() > 0 && s.deps.Availability != nil {
		s.deps.Availability.InvalidateAvailability(ctx)
	}

	err := errors.Join(errs...)
	s.record(now, time.Since(started), result, err)
	return result, err
}

func (s *Scheduler) record(at time.Time, took time.Duration, result SweepResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.TotalRuns++
	s.status.LastRunAt = &at
	s.status.LastDuration = took.String()
	s.status.LastResult = &result
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
}

// expireHolds cancels pending reservations whose payment hold lapsed. Payment rows are left as they are.
func (s *Scheduler) expireHolds(ctx context.Context, now time.Time, result *SweepResult) (int, int, error) {
	candidates, err := s.deps.Store.FindExpiredHolds(ctx, now, s.deps.Config.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	moved, failed := 0, 0
	for _, r := range candidates {
		applied, err := s.deps.Reservations.Apply(ctx, r.ID, reservations.Transition{
			From: []reservations.Status{reservations.StatusPendingPayment},
			To:   reservations.StatusCancelled,
			Updates: map[string]interface{}{
				"payment_status": reservations.PaymentExpired,
				"cancelled_at":   now,
			},
			HoldLapsedBefore: now,
		})
		if err != nil {
			failed++
			s.logFailure(ctx, SweepExpireHolds, r.ID, err)
			continue
		}
		if !applied {
			continue
		}
		moved++
		s.emit(ctx, constants.TopicReservationHoldLapse, r)
	}
	result.ExpiredHolds += moved
	return moved, failed, nil
}

// cancelNoShows cancels paid reservations whose start passed without a scan, with their tickets
func (s *Scheduler) cancelNoShows(ctx context.Context, now time.Time, result *SweepResult) (int, int, error) {
	candidates, err := s.deps.Store.FindNoShows(ctx, now, s.deps.Config.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	moved, failed := 0, 0
	for _, c := range candidates {
		if c.Ticket == nil || c.Ticket.Status != tickets.StatusActive {
			continue
		}
		ticketID := c.Ticket.ID
		err := s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			applied, err := s.deps.Reservations.Apply(ctx, c.Reservation.ID, reservations.Transition{
				From:    []reservations.Status{reservations.StatusActive},
				To:      reservations.StatusCancelled,
				Updates: map[string]interface{}{"cancelled_at": now},
			})
			if err != nil {
				return err
			}
			if !applied {
				return errNotApplied
			}
			revoked, err := s.deps.Tickets.Transition(ctx, ticketID, tickets.StatusActive, tickets.StatusCancelled)
			if err != nil {
				return err
			}
			if !revoked {
				return errNotApplied
			}
			return nil
		})
		if errors.Is(err, errNotApplied) {
			continue
		}
		if err != nil {
			failed++
			s.logFailure(ctx, SweepNoShows, c.Reservation.ID, err)
			continue
		}
		moved++
		s.emit(ctx, constants.TopicReservationNoShow, c.Reservation)
	}
	result.CancelledNoShows += moved
	return moved, failed, nil
}

// closeFinished ends reservations whose window has passed: completed when the ticket was
// scanned, expired otherwise (and the unused ticket expires with it)
func (s *Scheduler) closeFinished(ctx context.Context, now time.Time, result *SweepResult) (int, int, error) {
	candidates, err := s.deps.Store.FindFinished(ctx, now, s.deps.Config.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	moved, failed := 0, 0
	for _, c := range candidates {
		// in_progress is only reached through a scan, whatever became of the ticket since
		scanned := c.Reservation.Status == reservations.StatusInProgress ||
			(c.Ticket != nil && c.Ticket.Status == tickets.StatusUsed)

		var topic string
		if scanned {
			topic = constants.TopicReservationCompleted
			err = s.complete(ctx, c)
		} else {
			topic = constants.TopicReservationExpired
			err = s.expireSession(ctx, c)
		}
		if errors.Is(err, errNotApplied) {
			continue
		}
		if err != nil {
			failed++
			s.logFailure(ctx, SweepFinished, c.Reservation.ID, err)
			continue
		}

		moved++
		if scanned {
			result.CompletedSessions++
		} else {
			result.ExpiredSessions++
		}
		s.emit(ctx, topic, c.Reservation)
	}
	return moved, failed, nil
}

func (s *Scheduler) complete(ctx context.Context, c Candidate) error {
	applied, err := s.deps.Reservations.Apply(ctx, c.Reservation.ID, reservations.Transition{
		From: []reservations.Status{reservations.StatusInProgress, reservations.StatusActive},
		To:   reservations.StatusCompleted,
	})
	if err != nil {
		return err
	}
	if !applied {
		return errNotApplied
	}
	return nil
}

func (s *Scheduler) expireSession(ctx context.Context, c Candidate) error {
	return s.deps.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		// an unscanned session is still active; in_progress here means a scan just landed
		applied, err := s.deps.Reservations.Apply(ctx, c.Reservation.ID, reservations.Transition{
			From: []reservations.Status{reservations.StatusActive},
			To:   reservations.StatusExpired,
		})
		if err != nil {
			return err
		}
		if !applied {
			return errNotApplied
		}
		if c.Ticket != nil {
			if _, err := s.deps.Tickets.Transition(ctx, c.Ticket.ID, tickets.StatusActive, tickets.StatusExpired); err != nil {
				return err
			}
		}
		return nil
	})
}

// expireTickets retires active tickets past their own deadline
func (s *Scheduler) expireTickets(ctx context.Context, now time.Time, result *SweepResult) (int, int, error) {
	stale, err := s.deps.Store.FindStaleTickets(ctx, now, s.deps.Config.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	moved, failed := 0, 0
	for _, t := range stale {
		applied, err := s.deps.Tickets.Transition(ctx, t.ID, tickets.StatusActive, tickets.StatusExpired)
		if err != nil {
			failed++
			s.deps.Logger.ErrorContext(ctx, "sweep record failed",
				"sweep", SweepStaleTickets, "ticket_id", t.ID.String(), "error", err.Error())
			continue
		}
		if applied {
			moved++
		}
	}
	result.ExpiredTickets += moved
	return moved, failed, nil
}

func (s *Scheduler) logFailure(ctx context.Context, sweep string, reservationID uuid.UUID, err error) {
	s.deps.Logger.ErrorContext(ctx, "sweep record failed",
		"sweep", sweep, "reservation_id", reservationID.String(), "error", err.Error())
}

func (s *Scheduler) emit(ctx context.Context, topic string, r reservations.Reservation) {
	notifications.Emit(ctx, s.deps.Publisher, s.deps.Logger, notifications.NewEvent(topic, r.ID, r.UserID, nil))
}
