package models

import "time"

// Priority is the ordered ticket priority scale. The ordering is part of
// the contract: escalation actions advance one step along it.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

// String returns the wire name of the priority.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the priority is on the scale.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// Next returns the next higher priority. Saturates at critical.
func (p Priority) Next() Priority {
	if p >= PriorityCritical {
		return PriorityCritical
	}
	return p + 1
}

// ParsePriority resolves a wire name back to a Priority.
func ParsePriority(name string) (Priority, bool) {
	for p, n := range priorityNames {
		if n == name {
			return p, true
		}
	}
	return 0, false
}

// Ticket carries the ticket columns the SLA and escalation core reads.
// Full ticket lifecycle lives outside this service.
type Ticket struct {
	ID         int       `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Status     string    `json:"status" db:"status"`
	Priority   Priority  `json:"priority" db:"priority"`
	CategoryID *int      `json:"category_id,omitempty" db:"category_id"`
	AssignedTo *int      `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Comment is an internal note written against a ticket, e.g. by the
// escalation engine's system actor.
type Comment struct {
	ID        int       `json:"id"`
	TicketID  int       `json:"ticket_id"`
	AuthorID  int       `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the slice of the identity store this service consumes: enough
// to resolve the system actor that authors automated comments.
type User struct {
	ID       int    `json:"id"`
	Login    string `json:"login"`
	Email    string `json:"email"`
	IsSystem bool   `json:"is_system"`
}
