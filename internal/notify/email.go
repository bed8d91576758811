// Package notify turns booking events into visitor emails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/events"
)

// Message is a rendered email.
type Message struct {
	EventID string `json:"eventId"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type bookingPayload struct {
	BookingID        string `json:"bookingId"`
	Email            string `json:"email"`
	FullName         string `json:"fullName"`
	DateOfVisit      string `json:"dateOfVisit"`
	NumberOfVisitors int    `json:"numberOfVisitors"`
	TotalPrice       int64  `json:"totalPrice"`
	PaymentStatus    string `json:"paymentStatus"`
}

var printer = message.NewPrinter(language.English)

// Render builds the email for ev. It reports false for topics that do not
// email the visitor or events without a recipient.
func Render(ev events.Event, toggles map[string]bool) (Message, bool, error) {
	if toggles != nil {
		if enabled, ok := toggles[ev.Topic]; ok && !enabled {
			return Message{}, false, nil
		}
	}
	var subject string
	switch ev.Topic {
	case events.TopicBookingCreated:
		subject = "ParkConnect booking received"
	case events.TopicBookingPaid:
		subject = "ParkConnect booking confirmed"
	case events.TopicBookingCancelled:
		subject = "ParkConnect booking cancelled"
	default:
		return Message{}, false, nil
	}
	var p bookingPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return Message{}, false, fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := strings.TrimSpace(p.Email)
	if to == "" {
		return Message{}, false, nil
	}
	return Message{
		EventID: ev.ID.String(),
		To:      to,
		Subject: fmt.Sprintf("%s (%s)", subject, p.BookingID),
		HTML:    body(ev.Topic, p),
	}, true, nil
}

func body(topic string, p bookingPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Namaste %s,</p>", html.EscapeString(p.FullName))
	switch topic {
	case events.TopicBookingCreated:
		b.WriteString("<p>We have received your booking. Present the ticket QR code at the gate on your visit date.</p>")
	case events.TopicBookingPaid:
		b.WriteString("<p>Your payment was received and your booking is confirmed.</p>")
	case events.TopicBookingCancelled:
		b.WriteString("<p>Your booking has been cancelled.</p>")
	}
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Booking ID: %s</li>", html.EscapeString(p.BookingID))
	fmt.Fprintf(&b, "<li>Visit date: %s</li>", html.EscapeString(p.DateOfVisit))
	fmt.Fprintf(&b, "<li>Visitors: %d</li>", p.NumberOfVisitors)
	b.WriteString(printer.Sprintf("<li>Total: Rs. %d</li>", p.TotalPrice))
	b.WriteString("</ul>")
	return b.String()
}

// EmailNotifier sends visitor emails synchronously.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	TopicToggles map[string]bool
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(_ context.Context, ev events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	msg, ok, err := Render(ev, n.TopicToggles)
	if err != nil || !ok {
		return err
	}
	return n.Mail.Send(msg.To, msg.Subject, msg.HTML)
}
