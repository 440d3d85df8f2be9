package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// MemoryEscalationRepository is an in-memory implementation of RuleStore
// and EscalationLogStore.
type MemoryEscalationRepository struct {
	mu         sync.Mutex
	rules      map[int]*models.EscalationRule
	logs       []*models.EscalationLog
	nextRuleID int
	nextLogID  int
}

// NewMemoryEscalationRepository creates a new in-memory escalation repository.
func NewMemoryEscalationRepository() *MemoryEscalationRepository {
	return &MemoryEscalationRepository{
		rules:      make(map[int]*models.EscalationRule),
		nextRuleID: 1,
		nextLogID:  1,
	}
}

func copyRule(rule *models.EscalationRule) *models.EscalationRule {
	copied := *rule
	copied.Conditions.Status = append([]string(nil), rule.Conditions.Status...)
	copied.Conditions.Priority = append([]models.Priority(nil), rule.Conditions.Priority...)
	if rule.Conditions.AssignedTo != nil {
		v := *rule.Conditions.AssignedTo
		copied.Conditions.AssignedTo = &v
	}
	copied.Actions.NotifyRecipients = append([]int(nil), rule.Actions.NotifyRecipients...)
	return &copied
}

func (r *MemoryEscalationRepository) sortedRules(activeOnly bool) []*models.EscalationRule {
	var rules []*models.EscalationRule
	for _, rule := range r.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		rules = append(rules, copyRule(rule))
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority == rules[j].Priority {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].Priority < rules[j].Priority
	})
	return rules
}

// ListActive returns active rules ordered by priority.
func (r *MemoryEscalationRepository) ListActive(_ context.Context) ([]*models.EscalationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedRules(true), nil
}

// List returns all rules ordered by priority.
func (r *MemoryEscalationRepository) List(_ context.Context) ([]*models.EscalationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedRules(false), nil
}

// GetByID retrieves a rule by ID.
func (r *MemoryEscalationRepository) GetByID(_ context.Context, id int) (*models.EscalationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule, ok := r.rules[id]; ok {
		return copyRule(rule), nil
	}
	return nil, ErrNotFound
}

// Create inserts a rule.
func (r *MemoryEscalationRepository) Create(_ context.Context, rule *models.EscalationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = r.nextRuleID
	r.nextRuleID++
	now := time.Now().UTC()
	rule.CreateTime, rule.ChangeTime = now, now
	r.rules[rule.ID] = copyRule(rule)
	return nil
}

// Update rewrites a rule.
func (r *MemoryEscalationRepository) Update(_ context.Context, rule *models.EscalationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return ErrNotFound
	}
	rule.ChangeTime = time.Now().UTC()
	r.rules[rule.ID] = copyRule(rule)
	return nil
}

// Delete removes a rule.
func (r *MemoryEscalationRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

// Append records an escalation attempt outcome.
func (r *MemoryEscalationRepository) Append(_ context.Context, entry *models.EscalationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	copied.ID = r.nextLogID
	r.nextLogID++
	if copied.TriggeredAt.IsZero() {
		copied.TriggeredAt = time.Now().UTC()
	}
	entry.ID = copied.ID
	r.logs = append(r.logs, &copied)
	return nil
}

// HasFired reports whether a rule has already fired successfully for a ticket.
func (r *MemoryEscalationRepository) HasFired(_ context.Context, ticketID, ruleID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.logs {
		if entry.RuleID == ruleID && entry.TicketID == ticketID && entry.Success {
			return true, nil
		}
	}
	return false, nil
}

// ListByTicket returns log entries for a ticket, oldest first.
func (r *MemoryEscalationRepository) ListByTicket(_ context.Context, ticketID int) ([]*models.EscalationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []*models.EscalationLog
	for _, entry := range r.logs {
		if entry.TicketID == ticketID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}
