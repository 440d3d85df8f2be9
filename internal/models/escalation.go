package models

import (
	"encoding/json"
	"time"
)

// TimeCondition selects the reference clock an escalation rule measures
// elapsed time against.
type TimeCondition string

const (
	TimeConditionUnassigned TimeCondition = "unassigned_time" // since ticket creation
	TimeConditionNoResponse TimeCondition = "no_response_time" // since last ticket update
	TimeConditionResolution TimeCondition = "resolution_time"  // since ticket creation
)

// Valid reports whether the time condition is one of the known clocks.
func (tc TimeCondition) Valid() bool {
	switch tc {
	case TimeConditionUnassigned, TimeConditionNoResponse, TimeConditionResolution:
		return true
	}
	return false
}

// RuleConditions are the attribute filters a rule applies on top of its
// time threshold. Nil slices/pointers mean "don't care".
type RuleConditions struct {
	Status     []string   `json:"status,omitempty"`
	Priority   []Priority `json:"priority,omitempty"`
	AssignedTo *bool      `json:"assigned_to,omitempty"` // false = must be unassigned, true = must be assigned
}

// RuleActions are the side effects executed when a rule fires.
type RuleActions struct {
	AddComment            string `json:"add_comment,omitempty"`
	IncreasePriority      bool   `json:"increase_priority,omitempty"`
	SendEmailNotification bool   `json:"send_email_notification,omitempty"`
	NotifyRecipients      []int  `json:"notify_recipients,omitempty"` // user IDs
}

// EscalationRule is a time-threshold- and attribute-triggered policy.
// Rules are evaluated in ascending Priority order each cycle.
type EscalationRule struct {
	ID            int            `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Priority      int            `json:"priority" db:"priority"` // evaluation order, lower first
	IsActive      bool           `json:"is_active" db:"is_active"`
	Conditions    RuleConditions `json:"conditions" db:"-"`
	TimeCondition TimeCondition  `json:"time_condition" db:"time_condition"`
	TimeThreshold int            `json:"time_threshold" db:"time_threshold"` // minutes
	Actions       RuleActions    `json:"actions" db:"-"`
	// FireOnce suppresses the rule for a ticket after one successful
	// firing. Off by default: the source system re-fires every cycle
	// while conditions keep matching, and that behavior is preserved
	// unless an administrator opts out per rule.
	FireOnce   bool      `json:"fire_once" db:"fire_once"`
	CreateTime time.Time `json:"create_time" db:"create_time"`
	ChangeTime time.Time `json:"change_time" db:"change_time"`
}

// EscalationLog is one append-only record per fired (ticket, rule) pair
// per cycle. Not deduplicated across cycles.
type EscalationLog struct {
	ID              int       `json:"id" db:"id"`
	RuleID          int       `json:"rule_id" db:"rule_id"`
	TicketID        int       `json:"ticket_id" db:"ticket_id"`
	EscalationType  string    `json:"escalation_type" db:"escalation_type"`
	TimeElapsed     int       `json:"time_elapsed" db:"time_elapsed"` // minutes
	ConditionsMet   string    `json:"conditions_met" db:"conditions_met"`     // JSON snapshot
	ActionsExecuted string    `json:"actions_executed" db:"actions_executed"` // JSON snapshot
	Success         bool      `json:"success" db:"success"`
	TriggeredAt     time.Time `json:"triggered_at" db:"triggered_at"`
}

// Snapshot serializes a value for storage in a log column. Falls back to
// "{}" so a marshaling hiccup never loses the log row itself.
func Snapshot(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// TicketEscalationResult names the rules that fired for one ticket in a
// cycle, for the trigger endpoint's structured payload.
type TicketEscalationResult struct {
	TicketID   int      `json:"ticket_id"`
	TicketTitle string  `json:"ticket_title"`
	RulesFired []string `json:"rules_fired"`
}

// CycleResult is the outcome of one escalation cycle.
type CycleResult struct {
	RunID     string                   `json:"run_id"`
	StartedAt time.Time                `json:"started_at"`
	Processed int                      `json:"processed"`
	Executed  int                      `json:"executed"`
	Results   []TicketEscalationResult `json:"results"`
}
