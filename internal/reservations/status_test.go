package reservations

import (
	"testing"
	"time"

	"parkly/internal/shared/constants"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingPayment, StatusActive, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusPaymentFailed, true},
		{StatusPendingPayment, StatusInProgress, false},
		{StatusActive, StatusInProgress, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusPendingPayment, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusActive, false},
		{StatusExpired, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalAndHolding(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true, StatusCancelled: true, StatusPaymentFailed: true, StatusExpired: true,
	}
	for _, s := range []Status{StatusPendingPayment, StatusActive, StatusInProgress, StatusCompleted, StatusCancelled, StatusPaymentFailed, StatusExpired} {
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v", s, s.IsTerminal())
		}
		if s.IsHolding() == terminal[s] {
			t.Errorf("%s.IsHolding() = %v", s, s.IsHolding())
		}
	}
	if Status("bogus").IsTerminal() {
		t.Error("unknown status must not be terminal")
	}
}

func TestHoldingStatusesMatchRawFilter(t *testing.T) {
	raw := statusStrings(HoldingStatuses)
	if len(raw) != len(constants.HoldingReservationStatuses) {
		t.Fatalf("holding statuses %v differ from %v", raw, constants.HoldingReservationStatuses)
	}
	for i := range raw {
		if raw[i] != constants.HoldingReservationStatuses[i] {
			t.Fatalf("holding statuses %v differ from %v", raw, constants.HoldingReservationStatuses)
		}
	}
}

func TestPredecessors(t *testing.T) {
	got := Predecessors(StatusInProgress)
	if len(got) != 1 || got[0] != StatusActive {
		t.Errorf("Predecessors(in_progress) = %v", got)
	}
}

func TestPricing(t *testing.T) {
	p := Pricing{FirstHourRate: 50, AdditionalHourRate: 60}
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		duration  time.Duration
		wantHours int
		wantCost  float64
	}{
		{15 * time.Minute, 1, 50},
		{time.Hour, 1, 50},
		{time.Hour + time.Minute, 2, 110},
		{90 * time.Minute, 2, 110},
		{3 * time.Hour, 3, 170},
		{24 * time.Hour, 24, 50 + 23*60},
	}
	for _, tt := range tests {
		end := start.Add(tt.duration)
		if got := BillableHours(start, end); got != tt.wantHours {
			t.Errorf("BillableHours(%v) = %d, want %d", tt.duration, got, tt.wantHours)
		}
		if got := p.Amount(start, end); got != tt.wantCost {
			t.Errorf("Amount(%v) = %v, want %v", tt.duration, got, tt.wantCost)
		}
	}
}

func TestReservationOverlaps(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &Reservation{StartTime: base, EndTime: base.Add(time.Hour)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"inside", base.Add(10 * time.Minute), base.Add(20 * time.Minute), true},
		{"straddles start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"ends at start", base.Add(-time.Hour), base, false},
		{"starts at end", base.Add(time.Hour), base.Add(2 * time.Hour), false},
	}
	for _, tt := range tests {
		if got := r.Overlaps(tt.start, tt.end); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}
