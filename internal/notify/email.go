package notify

import (
	"context"
	"fmt"

	"github.com/mailersend/mailersend-go"

	"github.com/example/circle-time/internal/application"
)

// AddressResolver maps a user id to an email address. Returning an empty
// string means the user has no deliverable address and the send is skipped.
type AddressResolver func(userID string) string

// EmailNotifier delivers booking notifications through MailerSend.
type EmailNotifier struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
	resolve   AddressResolver
}

// NewEmailNotifier constructs a MailerSend-backed notifier.
func NewEmailNotifier(apiKey, fromName, fromEmail string, resolve AddressResolver) *EmailNotifier {
	return &EmailNotifier{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		resolve:   resolve,
	}
}

func (n *EmailNotifier) send(ctx context.Context, event string, booking application.Booking) error {
	if n.resolve == nil {
		return nil
	}
	to := n.resolve(booking.OrganizerID)
	if to == "" {
		return nil
	}

	msg := renderMessage(event, booking)

	message := n.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: n.fromName, Email: n.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: to}})
	message.SetSubject(msg.Subject)
	message.SetText(msg.Body)

	if _, err := n.client.Email.Send(ctx, message); err != nil {
		return fmt.Errorf("send %s email: %w", event, err)
	}
	return nil
}

// SendConfirmation implements application.Notifier.
func (n *EmailNotifier) SendConfirmation(ctx context.Context, booking application.Booking) error {
	return n.send(ctx, EventConfirmed, booking)
}

// SendReminder implements application.Notifier.
func (n *EmailNotifier) SendReminder(ctx context.Context, booking application.Booking) error {
	return n.send(ctx, EventReminder, booking)
}

// SendNoShow implements application.Notifier.
func (n *EmailNotifier) SendNoShow(ctx context.Context, booking application.Booking) error {
	return n.send(ctx, EventNoShow, booking)
}

// SendCancellation implements application.Notifier.
func (n *EmailNotifier) SendCancellation(ctx context.Context, booking application.Booking) error {
	return n.send(ctx, EventCancelled, booking)
}
