package escalation

import (
	"context"
	"fmt"

	"github.com/slakit-io/slakit/internal/models"
)

// Action names recorded in the actions_executed log snapshot.
const (
	actionComment  = "add_comment"
	actionPriority = "increase_priority"
	actionNotify   = "send_email_notification"
)

// action is one side effect of a fired rule. Actions run in order and
// are individually fault-isolated: one failure is recorded and the rest
// still run.
type action struct {
	name string
	run  func(context.Context) error
}

// buildActions translates a rule's action set into the ordered command
// list for one ticket.
func (e *Engine) buildActions(ticket *models.Ticket, rule *models.EscalationRule) []action {
	var actions []action

	if rule.Actions.AddComment != "" {
		actions = append(actions, action{name: actionComment, run: func(ctx context.Context) error {
			actor, err := e.systemActor(ctx)
			if err != nil {
				return fmt.Errorf("resolve system actor: %w", err)
			}
			return e.comments.Insert(ctx, &models.Comment{
				TicketID: ticket.ID,
				AuthorID: actor.ID,
				Body:     rule.Actions.AddComment,
				Internal: true,
			})
		}})
	}

	if rule.Actions.IncreasePriority {
		actions = append(actions, action{name: actionPriority, run: func(ctx context.Context) error {
			next := ticket.Priority.Next()
			if next == ticket.Priority {
				return nil // already at the ceiling
			}
			if err := e.tickets.UpdatePriority(ctx, ticket.ID, next, e.now()); err != nil {
				return err
			}
			ticket.Priority = next
			return nil
		}})
	}

	if rule.Actions.SendEmailNotification {
		actions = append(actions, action{name: actionNotify, run: func(ctx context.Context) error {
			recipients := rule.Actions.NotifyRecipients
			if len(recipients) == 0 && ticket.AssignedTo != nil {
				recipients = []int{*ticket.AssignedTo}
			}
			subject := fmt.Sprintf("Ticket #%d escalated: %s", ticket.ID, ticket.Title)
			body := fmt.Sprintf("Rule %q fired for ticket #%d (status %s, priority %s).",
				rule.Name, ticket.ID, ticket.Status, ticket.Priority)
			for _, userID := range recipients {
				n := &models.Notification{
					UserID:   userID,
					TicketID: ticket.ID,
					Type:     models.NotificationEscalationEmail,
					Subject:  subject,
					Body:     body,
				}
				if err := e.notifications.Insert(ctx, n); err != nil {
					return fmt.Errorf("queue notification for user %d: %w", userID, err)
				}
			}
			return nil
		}})
	}

	return actions
}

// executeActions runs the rule's actions for a ticket and returns the
// per-action outcomes and overall success.
func (e *Engine) executeActions(ctx context.Context, ticket *models.Ticket, rule *models.EscalationRule) (map[string]string, bool) {
	outcomes := make(map[string]string)
	success := true
	for _, a := range e.buildActions(ticket, rule) {
		if err := a.run(ctx); err != nil {
			outcomes[a.name] = err.Error()
			success = false
			actionFailures.WithLabelValues(a.name).Inc()
			e.logger.Printf("escalation: rule %q ticket %d action %s failed: %v", rule.Name, ticket.ID, a.name, err)
			continue
		}
		outcomes[a.name] = "ok"
	}
	return outcomes, success
}

// systemActor resolves the user that authors automated comments: the
// configured ID when set, otherwise the store's designated system user.
func (e *Engine) systemActor(ctx context.Context) (*models.User, error) {
	if e.systemUserID > 0 {
		return e.users.GetByID(ctx, e.systemUserID)
	}
	return e.users.SystemActor(ctx)
}
