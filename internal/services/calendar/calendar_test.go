package calendar

import (
	"testing"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

func weekdayCfg() *models.SLAConfiguration {
	return &models.SLAConfiguration{
		Name:               "business hours",
		BusinessHoursOnly:  true,
		BusinessHoursStart: "08:00",
		BusinessHoursEnd:   "18:00",
		WorkingDays:        []int{1, 2, 3, 4, 5}, // Mon-Fri
	}
}

func TestCompileRejectsMalformedConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.SLAConfiguration)
	}{
		{"bad start", func(c *models.SLAConfiguration) { c.BusinessHoursStart = "8am" }},
		{"bad end", func(c *models.SLAConfiguration) { c.BusinessHoursEnd = "25:00" }},
		{"end before start", func(c *models.SLAConfiguration) { c.BusinessHoursEnd = "07:00" }},
		{"no working days", func(c *models.SLAConfiguration) { c.WorkingDays = nil }},
		{"weekday out of range", func(c *models.SLAConfiguration) { c.WorkingDays = []int{0, 8} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := weekdayCfg()
			tt.mutate(cfg)
			if _, err := Compile(cfg); err == nil {
				t.Fatalf("Compile accepted malformed config")
			}
		})
	}
}

func TestWallClockMinutes(t *testing.T) {
	b, err := Compile(&models.SLAConfiguration{BusinessHoursOnly: false})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	if got := b.MinutesBetween(start, start.Add(90*time.Minute)); got != 90 {
		t.Errorf("MinutesBetween = %d, want 90", got)
	}
	// end < start is the caller's problem but the sign must be honest
	if got := b.MinutesBetween(start, start.Add(-30*time.Minute)); got != -30 {
		t.Errorf("MinutesBetween = %d, want -30", got)
	}
	if got := b.TargetDate(start, 45); !got.Equal(start.Add(45 * time.Minute)) {
		t.Errorf("TargetDate = %v, want %v", got, start.Add(45*time.Minute))
	}
}

func TestMinutesWithinSingleWindow(t *testing.T) {
	b, err := Compile(weekdayCfg())
	if err != nil {
		t.Fatal(err)
	}
	// Monday 2025-01-06 is a working day
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 6, 11, 30, 0, 0, time.UTC)
	if got := b.MinutesBetween(start, end); got != 150 {
		t.Errorf("MinutesBetween = %d, want 150", got)
	}
}

func TestWeekendContributesNothing(t *testing.T) {
	b, err := Compile(weekdayCfg())
	if err != nil {
		t.Fatal(err)
	}
	// Saturday through Sunday
	start := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	if got := b.MinutesBetween(start, end); got != 0 {
		t.Errorf("weekend MinutesBetween = %d, want 0", got)
	}
}

func TestTargetDateCrossesWeekend(t *testing.T) {
	b, err := Compile(weekdayCfg())
	if err != nil {
		t.Fatal(err)
	}
	// Friday 2025-01-10 17:45; 15 minutes consumed Friday, 15 on Monday.
	start := time.Date(2025, 1, 10, 17, 45, 0, 0, time.UTC)
	want := time.Date(2025, 1, 13, 8, 15, 0, 0, time.UTC)
	if got := b.TargetDate(start, 30); !got.Equal(want) {
		t.Errorf("TargetDate = %v, want %v", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	b, err := Compile(weekdayCfg())
	if err != nil {
		t.Fatal(err)
	}
	starts := []time.Time{
		time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),  // Monday mid-morning
		time.Date(2025, 1, 10, 17, 45, 0, 0, time.UTC), // Friday near close
		time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC),  // Saturday
	}
	for _, start := range starts {
		for _, m := range []int{0, 1, 15, 30, 240, 600, 1500} {
			target := b.TargetDate(start, m)
			if got := b.MinutesBetween(start, target); got != m {
				t.Errorf("round trip start=%v m=%d got %d", start, m, got)
			}
		}
	}
}
