package reservations

// Status is the reservation lifecycle state
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusPaymentFailed  Status = "payment_failed"
	StatusExpired        Status = "expired"
)

// PaymentStatus mirrors the latest payment outcome on the reservation
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
)

// HoldingStatuses occupy the space for the reservation window
var HoldingStatuses = []Status{StatusPendingPayment, StatusActive, StatusInProgress}

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusActive, StatusCancelled, StatusPaymentFailed},
	// completed/expired from active only happen when the window closes without a scan
	StatusActive:     {StatusInProgress, StatusCancelled, StatusCompleted, StatusExpired},
	StatusInProgress: {StatusCompleted, StatusExpired, StatusCancelled},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusActive, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusPaymentFailed, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsHolding reports whether the status occupies the space
func (s Status) IsHolding() bool {
	for _, h := range HoldingStatuses {
		if s == h {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors lists every status that may move to target
func Predecessors(target Status) []Status {
	var out []Status
	for from, nexts := range transitions {
		for _, n := range nexts {
			if n == target {
				out = append(out, from)
			}
		}
	}
	return out
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
