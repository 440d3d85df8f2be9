package escalation

import (
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// referenceTime picks the clock a rule's threshold is measured against:
// time since creation for unassigned_time and resolution_time, time
// since the last ticket update for no_response_time.
func referenceTime(rule *models.EscalationRule, ticket *models.Ticket) time.Time {
	if rule.TimeCondition == models.TimeConditionNoResponse {
		return ticket.UpdatedAt
	}
	return ticket.CreatedAt
}

// evaluate reports whether the rule fires for the ticket at now, and how
// many minutes have elapsed on the rule's reference clock. All attribute
// filters are conjunctive; an absent filter matches everything.
func evaluate(rule *models.EscalationRule, ticket *models.Ticket, now time.Time) (bool, int) {
	elapsed := int(now.Sub(referenceTime(rule, ticket)) / time.Minute)
	if elapsed < rule.TimeThreshold {
		return false, elapsed
	}

	if len(rule.Conditions.Status) > 0 && !containsString(rule.Conditions.Status, ticket.Status) {
		return false, elapsed
	}
	if len(rule.Conditions.Priority) > 0 && !containsPriority(rule.Conditions.Priority, ticket.Priority) {
		return false, elapsed
	}
	if rule.Conditions.AssignedTo != nil {
		assigned := ticket.AssignedTo != nil
		if assigned != *rule.Conditions.AssignedTo {
			return false, elapsed
		}
	}
	return true, elapsed
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(set []models.Priority, v models.Priority) bool {
	for _, p := range set {
		if p == v {
			return true
		}
	}
	return false
}
