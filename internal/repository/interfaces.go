// Package repository contains the persistence contracts and
// implementations for the SLA tracking and escalation core.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TicketStore is the slice of the ticket collaborator this service
// consumes: reads for evaluation, priority writes for escalation.
type TicketStore interface {
	GetByID(ctx context.Context, id int) (*models.Ticket, error)
	// ListOpen returns tickets whose status is in the given set,
	// oldest-created first, capped at limit.
	ListOpen(ctx context.Context, statuses []string, limit int) ([]*models.Ticket, error)
	// UpdatePriority writes the new priority and touches updated_at.
	UpdatePriority(ctx context.Context, id int, priority models.Priority, now time.Time) error
}

// SLAStore persists configurations, per-ticket tracking records, and the
// append-only pause/breach logs.
type SLAStore interface {
	// FindConfiguration selects the active configuration for a ticket's
	// priority and category: an exact category match wins over a
	// category-agnostic one. ErrNotFound means no SLA applies.
	FindConfiguration(ctx context.Context, priority models.Priority, categoryID *int) (*models.SLAConfiguration, error)
	GetConfiguration(ctx context.Context, id int) (*models.SLAConfiguration, error)
	ListConfigurations(ctx context.Context, activeOnly bool) ([]*models.SLAConfiguration, error)
	CreateConfiguration(ctx context.Context, cfg *models.SLAConfiguration) error
	UpdateConfiguration(ctx context.Context, cfg *models.SLAConfiguration) error
	DeleteConfiguration(ctx context.Context, id int) error

	GetTracking(ctx context.Context, ticketID int) (*models.TicketSLA, error)
	// UpsertTracking creates the tracking record if absent and returns
	// the winning row. Concurrent creators must converge on one row;
	// implementations resolve the race with an insert-on-conflict, not
	// an application-level existence check.
	UpsertTracking(ctx context.Context, tracking *models.TicketSLA) (*models.TicketSLA, error)
	// MutateTracking loads the ticket's record under a per-ticket lock,
	// applies fn, and persists the result if fn succeeds.
	MutateTracking(ctx context.Context, ticketID int, fn func(*models.TicketSLA) error) (*models.TicketSLA, error)

	AppendPauseHistory(ctx context.Context, entry *models.SLAPauseHistory) error
	ListPauseHistory(ctx context.Context, ticketSLAID int) ([]*models.SLAPauseHistory, error)
	AppendBreach(ctx context.Context, breach *models.SLABreach) error
	ListBreaches(ctx context.Context, ticketID int) ([]*models.SLABreach, error)
}

// RuleStore persists escalation rules.
type RuleStore interface {
	// ListActive returns active rules in ascending evaluation priority.
	ListActive(ctx context.Context) ([]*models.EscalationRule, error)
	List(ctx context.Context) ([]*models.EscalationRule, error)
	GetByID(ctx context.Context, id int) (*models.EscalationRule, error)
	Create(ctx context.Context, rule *models.EscalationRule) error
	Update(ctx context.Context, rule *models.EscalationRule) error
	Delete(ctx context.Context, id int) error
}

// EscalationLogStore appends cycle outcomes.
type EscalationLogStore interface {
	Append(ctx context.Context, entry *models.EscalationLog) error
	// HasFired reports whether a successful log row exists for the
	// (ticket, rule) pair. Backs the optional fire-once guard.
	HasFired(ctx context.Context, ticketID, ruleID int) (bool, error)
	ListByTicket(ctx context.Context, ticketID int) ([]*models.EscalationLog, error)
}

// CommentStore inserts internal notes on behalf of the system actor.
type CommentStore interface {
	Insert(ctx context.Context, comment *models.Comment) error
}

// NotificationStore queues notifications for the dispatcher.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListUnread(ctx context.Context, ntype string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id int) error
}

// UserStore resolves identities, in particular the system actor that
// authors automated comments.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	SystemActor(ctx context.Context) (*models.User, error)
}
