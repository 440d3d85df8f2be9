package models

import "time"

// MetricStatus is the persisted lifecycle of a single SLA metric.
// at_risk never appears here: it is a read-time projection computed from
// elapsed time and the configuration's alert percentage.
type MetricStatus string

const (
	MetricPending  MetricStatus = "pending"
	MetricMet      MetricStatus = "met"
	MetricBreached MetricStatus = "breached"
	// MetricAtRisk is only ever returned by status computation, never stored.
	MetricAtRisk MetricStatus = "at_risk"
)

// Terminal reports whether the status is an end state.
func (s MetricStatus) Terminal() bool {
	return s == MetricMet || s == MetricBreached
}

// Breach types recorded in the breach log.
const (
	BreachFirstResponse = "first_response"
	BreachResolution    = "resolution"
)

// SLAConfiguration defines the time commitments applied to tickets of a
// given priority and, optionally, category. Authored by administrators,
// read-only to the tracker.
type SLAConfiguration struct {
	ID                 int       `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	CategoryID         *int      `json:"category_id,omitempty" db:"category_id"` // nil = any category
	Priority           Priority  `json:"priority" db:"priority"`
	FirstResponseTime  int       `json:"first_response_time" db:"first_response_time"` // minutes
	ResolutionTime     int       `json:"resolution_time" db:"resolution_time"`         // minutes
	BusinessHoursOnly  bool      `json:"business_hours_only" db:"business_hours_only"`
	BusinessHoursStart string    `json:"business_hours_start" db:"business_hours_start"` // "HH:MM"
	BusinessHoursEnd   string    `json:"business_hours_end" db:"business_hours_end"`     // "HH:MM"
	WorkingDays        []int     `json:"working_days" db:"-"`                            // ISO weekdays, 1=Monday..7=Sunday
	AlertPercentage    int       `json:"alert_percentage" db:"alert_percentage"`         // 0-100
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreateTime         time.Time `json:"create_time" db:"create_time"`
	CreateBy           int       `json:"create_by" db:"create_by"`
	ChangeTime         time.Time `json:"change_time" db:"change_time"`
	ChangeBy           int       `json:"change_by" db:"change_by"`
}

// TicketSLA is the per-ticket tracking record, unique on ticket_id.
// Targets are computed once at creation; terminal statuses are assigned
// exactly once by the qualifying event.
type TicketSLA struct {
	ID                  int          `json:"id" db:"id"`
	TicketID            int          `json:"ticket_id" db:"ticket_id"`
	SLAConfigurationID  int          `json:"sla_configuration_id" db:"sla_configuration_id"`
	FirstResponseTarget time.Time    `json:"first_response_target" db:"first_response_target"`
	ResolutionTarget    time.Time    `json:"resolution_target" db:"resolution_target"`
	FirstResponseAt     *time.Time   `json:"first_response_at,omitempty" db:"first_response_at"`
	ResolvedAt          *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	FirstResponseStatus MetricStatus `json:"first_response_status" db:"first_response_status"`
	ResolutionStatus    MetricStatus `json:"resolution_status" db:"resolution_status"`
	PausedAt            *time.Time   `json:"paused_at,omitempty" db:"paused_at"`
	TotalPausedTime     int          `json:"total_paused_time" db:"total_paused_time"` // minutes
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

// Paused reports whether the SLA clock is currently stopped.
func (t *TicketSLA) Paused() bool {
	return t.PausedAt != nil
}

// SLAPauseHistory is one completed pause interval, append-only.
type SLAPauseHistory struct {
	ID              int       `json:"id" db:"id"`
	TicketSLAID     int       `json:"ticket_sla_id" db:"ticket_sla_id"`
	PausedAt        time.Time `json:"paused_at" db:"paused_at"`
	ResumedAt       time.Time `json:"resumed_at" db:"resumed_at"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	PausedBy        int       `json:"paused_by" db:"paused_by"`
}

// SLABreach records a missed target, at most once per metric per ticket.
type SLABreach struct {
	ID                 int       `json:"id" db:"id"`
	TicketID           int       `json:"ticket_id" db:"ticket_id"`
	SLAConfigurationID int       `json:"sla_configuration_id" db:"sla_configuration_id"`
	BreachType         string    `json:"breach_type" db:"breach_type"`
	TargetTime         time.Time `json:"target_time" db:"target_time"`
	ActualTime         time.Time `json:"actual_time" db:"actual_time"`
	BreachMinutes      int       `json:"breach_minutes" db:"breach_minutes"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// MetricReport is the read-time view of one metric produced by status
// computation. Status may be at_risk here even though at_risk is never
// persisted.
type MetricReport struct {
	Target           time.Time    `json:"target"`
	Status           MetricStatus `json:"status"`
	Percentage       float64      `json:"percentage"`
	RemainingMinutes int          `json:"remaining_minutes"`
	ElapsedMinutes   int          `json:"elapsed_minutes"`
}

// SLAStatusReport bundles both metric views for a ticket.
type SLAStatusReport struct {
	FirstResponse MetricReport `json:"first_response"`
	Resolution    MetricReport `json:"resolution"`
}
