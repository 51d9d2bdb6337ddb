package constants

// Lifecycle event topics. Kafka carries them all on one topic keyed by reservation id;
// NATS and RabbitMQ use them as subjects / queue names.
const (
	TopicReservationCreated   = "reservation.created"
	TopicReservationCancelled = "reservation.cancelled"
	TopicReservationNoShow    = "reservation.no_show"
	TopicReservationHoldLapse = "reservation.expired_hold"
	TopicReservationCompleted = "reservation.completed"
	TopicReservationExpired   = "reservation.expired"

	TopicPaymentOrderCreated = "payment.order_created"
	TopicPaymentCompleted    = "payment.completed"
	TopicPaymentFailed       = "payment.failed"

	TopicTicketIssued  = "ticket.issued"
	TopicTicketScanned = "ticket.scanned"
)

// HoldingReservationStatuses are the reservation statuses that occupy a space.
// Queries outside the reservations package filter on these raw values.
var HoldingReservationStatuses = []string{"pending_payment", "active", "in_progress"}
