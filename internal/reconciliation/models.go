package reconciliation

import (
	"time"

	"parkly/internal/reservations"
	"parkly/internal/tickets"
)

// Sweep names, as logged and reported
const (
	SweepExpireHolds   = "expire_holds"
	SweepNoShows       = "cancel_no_shows"
	SweepFinished      = "close_finished"
	SweepStaleTickets  = "expire_tickets"
	defaultBatchSize   = 500
	defaultRunInterval = time.Minute
)

// Candidate is a reservation picked by a sweep together with its ticket, if one was issued
type Candidate struct {
	Reservation reservations.Reservation
	Ticket      *tickets.Ticket
}

// SweepResult counts the records each sweep moved in one pass
type SweepResult struct {
	ExpiredHolds      int  `json:"expired_holds"`
	CancelledNoShows  int  `json:"cancelled_no_shows"`
	CompletedSessions int  `json:"completed_sessions"`
	ExpiredSessions   int  `json:"expired_sessions"`
	ExpiredTickets    int  `json:"expired_tickets"`
	Failed            int  `json:"failed"`
	Skipped           bool `json:"skipped,omitempty"`
}

// Total is the number of records transitioned
func (r SweepResult) Total() int {
	return r.ExpiredHolds + r.CancelledNoShows + r.CompletedSessions + r.ExpiredSessions + r.ExpiredTickets
}

// JobStatus is the scheduler snapshot served to admins
type JobStatus struct {
	Enabled      bool         `json:"enabled"`
	Running      bool         `json:"running"`
	Interval     string       `json:"interval"`
	BatchSize    int          `json:"batch_size"`
	TotalRuns    int64        `json:"total_runs"`
	LastRunAt    *time.Time   `json:"last_run_at,omitempty"`
	LastDuration string       `json:"last_duration,omitempty"`
	LastResult   *SweepResult `json:"last_result,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
}
