// Package seeds bootstraps SLA configurations and escalation rules from
// a YAML file on startup. Seeding is idempotent by name: rows that
// already exist are left untouched.
package seeds

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/calendar"
)

// File is the on-disk seed layout.
type File struct {
	Configurations []Configuration `yaml:"sla_configurations"`
	Rules          []Rule          `yaml:"escalation_rules"`
}

// Configuration is one seeded SLA configuration.
type Configuration struct {
	Name               string `yaml:"name"`
	Priority           string `yaml:"priority"`
	CategoryID         *int   `yaml:"category_id"`
	FirstResponseTime  int    `yaml:"first_response_time"`
	ResolutionTime     int    `yaml:"resolution_time"`
	BusinessHoursOnly  bool   `yaml:"business_hours_only"`
	BusinessHoursStart string `yaml:"business_hours_start"`
	BusinessHoursEnd   string `yaml:"business_hours_end"`
	WorkingDays        []int  `yaml:"working_days"`
	AlertPercentage    int    `yaml:"alert_percentage"`
}

// Rule is one seeded escalation rule.
type Rule struct {
	Name          string   `yaml:"name"`
	Priority      int      `yaml:"priority"`
	TimeCondition string   `yaml:"time_condition"`
	TimeThreshold int      `yaml:"time_threshold"`
	Status        []string `yaml:"status"`
	Priorities    []string `yaml:"priorities"`
	AssignedTo    *bool    `yaml:"assigned_to"`
	AddComment    string   `yaml:"add_comment"`
	IncreasePrio  bool     `yaml:"increase_priority"`
	SendEmail     bool     `yaml:"send_email_notification"`
	Recipients    []int    `yaml:"notify_recipients"`
	FireOnce      bool     `yaml:"fire_once"`
}

// Apply loads the seed file and inserts any configurations and rules
// not already present. Malformed entries fail the whole load so a bad
// seed file is caught at startup, not at first use.
func Apply(ctx context.Context, path string, slas repository.SLAStore, rules repository.RuleStore, actorID int, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	existing, err := slas.ListConfigurations(ctx, false)
	if err != nil {
		return fmt.Errorf("list configurations: %w", err)
	}
	haveConfig := make(map[string]bool, len(existing))
	for _, cfg := range existing {
		haveConfig[cfg.Name] = true
	}

	for _, seed := range file.Configurations {
		if haveConfig[seed.Name] {
			continue
		}
		cfg, err := seed.toModel(actorID)
		if err != nil {
			return fmt.Errorf("seed configuration %q: %w", seed.Name, err)
		}
		if err := slas.CreateConfiguration(ctx, cfg); err != nil {
			return fmt.Errorf("create configuration %q: %w", seed.Name, err)
		}
		logger.Printf("seeds: created sla configuration %q", seed.Name)
	}

	existingRules, err := rules.List(ctx)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	haveRule := make(map[string]bool, len(existingRules))
	for _, r := range existingRules {
		haveRule[r.Name] = true
	}

	for _, seed := range file.Rules {
		if haveRule[seed.Name] {
			continue
		}
		rule, err := seed.toModel()
		if err != nil {
			return fmt.Errorf("seed rule %q: %w", seed.Name, err)
		}
		if err := rules.Create(ctx, rule); err != nil {
			return fmt.Errorf("create rule %q: %w", seed.Name, err)
		}
		logger.Printf("seeds: created escalation rule %q", seed.Name)
	}
	return nil
}

func (s Configuration) toModel(actorID int) (*models.SLAConfiguration, error) {
	priority, ok := models.ParsePriority(s.Priority)
	if !ok {
		return nil, fmt.Errorf("unknown priority %q", s.Priority)
	}
	if s.FirstResponseTime <= 0 || s.ResolutionTime <= 0 {
		return nil, fmt.Errorf("response and resolution times must be positive")
	}
	cfg := &models.SLAConfiguration{
		Name:               s.Name,
		CategoryID:         s.CategoryID,
		Priority:           priority,
		FirstResponseTime:  s.FirstResponseTime,
		ResolutionTime:     s.ResolutionTime,
		BusinessHoursOnly:  s.BusinessHoursOnly,
		BusinessHoursStart: s.BusinessHoursStart,
		BusinessHoursEnd:   s.BusinessHoursEnd,
		WorkingDays:        s.WorkingDays,
		AlertPercentage:    s.AlertPercentage,
		IsActive:           true,
		CreateBy:           actorID,
		ChangeBy:           actorID,
	}
	if _, err := calendar.Compile(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s Rule) toModel() (*models.EscalationRule, error) {
	tc := models.TimeCondition(s.TimeCondition)
	if !tc.Valid() {
		return nil, fmt.Errorf("unknown time_condition %q", s.TimeCondition)
	}
	if s.TimeThreshold <= 0 {
		return nil, fmt.Errorf("time_threshold must be positive")
	}
	var priorities []models.Priority
	for _, name := range s.Priorities {
		p, ok := models.ParsePriority(name)
		if !ok {
			return nil, fmt.Errorf("unknown priority %q", name)
		}
		priorities = append(priorities, p)
	}
	return &models.EscalationRule{
		Name:          s.Name,
		Priority:      s.Priority,
		IsActive:      true,
		TimeCondition: tc,
		TimeThreshold: s.TimeThreshold,
		Conditions: models.RuleConditions{
			Status:     s.Status,
			Priority:   priorities,
			AssignedTo: s.AssignedTo,
		},
		Actions: models.RuleActions{
			AddComment:            s.AddComment,
			IncreasePriority:      s.IncreasePrio,
			SendEmailNotification: s.SendEmail,
			NotifyRecipients:      s.Recipients,
		},
		FireOnce: s.FireOnce,
	}, nil
}
