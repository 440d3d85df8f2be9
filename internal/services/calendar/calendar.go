// Package calendar provides business-time arithmetic for SLA target and
// elapsed-time computation. It is pure and safe for concurrent use.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"

	"github.com/slakit-io/slakit/internal/models"
)

// Business performs minute arithmetic for one SLA configuration. A nil
// inner calendar means the configuration is not business-hours
// constrained and all math is plain wall-clock time.
type Business struct {
	cal *cal.BusinessCalendar
}

// Compile validates an SLA configuration's business-hours settings and
// builds the calendar for it. A malformed configuration fails here, at
// load time, so no target date is ever derived from one.
//
// Working days use ISO numbering: 1=Monday .. 7=Sunday. This is the one
// place that numbering is translated to time.Weekday.
func Compile(cfg *models.SLAConfiguration) (*Business, error) {
	if !cfg.BusinessHoursOnly {
		return &Business{}, nil
	}

	start, err := parseClock(cfg.BusinessHoursStart)
	if err != nil {
		return nil, fmt.Errorf("invalid business_hours_start %q: %w", cfg.BusinessHoursStart, err)
	}
	end, err := parseClock(cfg.BusinessHoursEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid business_hours_end %q: %w", cfg.BusinessHoursEnd, err)
	}
	if end <= start {
		return nil, fmt.Errorf("business hours end %q not after start %q", cfg.BusinessHoursEnd, cfg.BusinessHoursStart)
	}
	if len(cfg.WorkingDays) == 0 {
		return nil, fmt.Errorf("business-hours configuration %q has no working days", cfg.Name)
	}

	working := make(map[time.Weekday]bool, len(cfg.WorkingDays))
	for _, iso := range cfg.WorkingDays {
		if iso < 1 || iso > 7 {
			return nil, fmt.Errorf("working day %d outside ISO range 1-7", iso)
		}
		working[time.Weekday(iso%7)] = true
	}

	c := cal.NewBusinessCalendar()
	c.SetWorkHours(start, end)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		c.SetWorkday(wd, working[wd])
	}

	return &Business{cal: c}, nil
}

// MinutesBetween returns the number of business minutes between start
// and end. Without business-hours constraints this is raw wall-clock
// minutes and may be negative when end precedes start.
func (b *Business) MinutesBetween(start, end time.Time) int {
	if b.cal == nil {
		return int(end.Sub(start) / time.Minute)
	}
	return int(b.cal.WorkHoursInRange(start, end) / time.Minute)
}

// TargetDate returns the instant reached after consuming the given
// number of business minutes from start.
func (b *Business) TargetDate(start time.Time, minutes int) time.Time {
	if b.cal == nil {
		return start.Add(time.Duration(minutes) * time.Minute)
	}
	return b.cal.AddWorkHours(start, time.Duration(minutes)*time.Minute)
}

// parseClock parses "HH:MM" into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, nil
}
