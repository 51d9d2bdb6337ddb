package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one lifecycle fact: a reservation, payment or ticket changed state.
type Event struct {
	ID            string                 `json:"id"`
	Topic         string                 `json:"topic"`
	ReservationID string                 `json:"reservation_id,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

func NewEvent(topic string, reservationID, userID uuid.UUID, data map[string]interface{}) Event {
	ev := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	if reservationID != uuid.Nil {
		ev.ReservationID = reservationID.String()
	}
	if userID != uuid.Nil {
		ev.UserID = userID.String()
	}
	return ev
}

// Key orders events per reservation on partitioned transports
func (e Event) Key() string {
	if e.ReservationID != "" {
		return e.ReservationID
	}
	return e.ID
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EmailMessage is a rendered email ready for a sender
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}
