package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"parkly/internal/shared/constants"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

// RecipientLookup resolves contact details for a user id
type RecipientLookup interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (email, firstName, lastName string, err error)
}

type emailTemplate struct {
	subject string
	html    *template.Template
	text    *texttemplate.Template
}

// Dispatcher turns lifecycle events into customer emails
type Dispatcher struct {
	recipients RecipientLookup
	sender     EmailSender
	templates  map[string]emailTemplate
	log        *logger.Logger
}

func NewDispatcher(recipients RecipientLookup, sender EmailSender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		recipients: recipients,
		sender:     sender,
		templates:  defaultTemplates(),
		log:        log,
	}
}

// Topics lists the event topics that produce an email
func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.templates))
	for topic := range d.templates {
		topics = append(topics, topic)
	}
	return topics
}

// HandleEvent sends the email for event, if its topic has one
func (d *Dispatcher) HandleEvent(ctx context.Context, event Event) error {
	tmpl, ok := d.templates[event.Topic]
	if !ok {
		return nil
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return fmt.Errorf("event %s has no valid user id: %w", event.ID, err)
	}

	email, firstName, lastName, err := d.recipients.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"Name":          firstName,
		"ReservationID": event.ReservationID,
	}
	for k, v := range event.Data {
		data[k] = v
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := tmpl.html.Execute(&htmlBuf, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", event.Topic, err)
	}
	if err := tmpl.text.Execute(&textBuf, data); err != nil {
		return fmt.Errorf("failed to render %s email: %w", event.Topic, err)
	}

	msg := EmailMessage{
		To:      email,
		ToName:  firstName + " " + lastName,
		Subject: tmpl.subject,
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "notification email sent", "topic", event.Topic, "reservation_id", event.ReservationID)
	return nil
}

func defaultTemplates() map[string]emailTemplate {
	build := func(topic, subject, html, text string) emailTemplate {
		return emailTemplate{
			subject: subject,
			html:    template.Must(template.New(topic).Parse(html)),
			text:    texttemplate.Must(texttemplate.New(topic).Parse(text)),
		}
	}

	return map[string]emailTemplate{
		constants.TopicPaymentCompleted: build(constants.TopicPaymentCompleted,
			"Your parking booking is confirmed",
			`<p>Hi {{.Name}},</p>
<p>Your payment was received and booking <b>{{.ReservationID}}</b> is confirmed.</p>
{{if .ticketNumber}}<p>Ticket number: <b>{{.ticketNumber}}</b></p>{{end}}
<p>Show the ticket QR code at the gate up to 30 minutes before your start time.</p>`,
			`Hi {{.Name}},

Your payment was received and booking {{.ReservationID}} is confirmed.
{{if .ticketNumber}}Ticket number: {{.ticketNumber}}
{{end}}
Show the ticket QR code at the gate up to 30 minutes before your start time.
`),
		constants.TopicReservationCancelled: build(constants.TopicReservationCancelled,
			"Your parking booking was cancelled",
			`<p>Hi {{.Name}},</p>
<p>Booking <b>{{.ReservationID}}</b> has been cancelled.</p>`,
			`Hi {{.Name}},

Booking {{.ReservationID}} has been cancelled.
`),
		constants.TopicReservationNoShow: build(constants.TopicReservationNoShow,
			"Your parking booking was cancelled (no entry recorded)",
			`<p>Hi {{.Name}},</p>
<p>Booking <b>{{.ReservationID}}</b> was cancelled because the ticket was not scanned by the start time.</p>`,
			`Hi {{.Name}},

Booking {{.ReservationID}} was cancelled because the ticket was not scanned by the start time.
`),
	}
}
