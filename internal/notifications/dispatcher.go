// Package notifications delivers queued escalation notifications. The
// escalation engine only inserts rows; this package drains them
// out-of-band and marks them read on successful delivery, leaving
// failures unread for the next pass.
package notifications

import (
	"context"
	"fmt"
	"log"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

// Sender delivers one message to one address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher drains unread escalation notifications.
type Dispatcher struct {
	store  repository.NotificationStore
	users  repository.UserStore
	sender Sender
	logger *log.Logger
}

// NewDispatcher creates a dispatcher. A nil logger falls back to the
// standard logger.
func NewDispatcher(store repository.NotificationStore, users repository.UserStore, sender Sender, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{store: store, users: users, sender: sender, logger: logger}
}

// DispatchPending delivers up to limit unread notifications. A failed
// delivery is logged and left unread so a later pass retries it; only a
// confirmed send marks the row read. Returns the sent and failed
// counts.
func (d *Dispatcher) DispatchPending(ctx context.Context, limit int) (sent, failed int, err error) {
	pending, err := d.store.ListUnread(ctx, models.NotificationEscalationEmail, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list unread notifications: %w", err)
	}

	for _, n := range pending {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		if err := d.deliver(ctx, n); err != nil {
			failed++
			d.logger.Printf("notifications: deliver %d to user %d failed: %v", n.ID, n.UserID, err)
			continue
		}
		if err := d.store.MarkRead(ctx, n.ID); err != nil {
			// The mail went out; a failed mark means one duplicate on
			// the next pass, which beats losing the delivery record.
			d.logger.Printf("notifications: mark %d read failed: %v", n.ID, err)
		}
		sent++
	}
	return sent, failed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) error {
	user, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", n.UserID, err)
	}
	if user.Email == "" {
		return fmt.Errorf("recipient %d has no email address", n.UserID)
	}
	return d.sender.Send(ctx, user.Email, n.Subject, n.Body)
}
