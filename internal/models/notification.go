package models

import "time"

// Notification types consumed by the dispatcher.
const (
	NotificationEscalationEmail = "escalation_email"
)

// Notification is one queued notification row. The escalation engine
// inserts them; the dispatcher delivers and marks them read. Failed
// deliveries stay unread for a later retry pass.
type Notification struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	TicketID  int       `json:"ticket_id" db:"ticket_id"`
	Type      string    `json:"type" db:"type"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
