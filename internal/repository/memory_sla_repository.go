package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// MemorySLARepository is an in-memory implementation of SLAStore.
type MemorySLARepository struct {
	mu             sync.Mutex
	configs        map[int]*models.SLAConfiguration
	trackings      map[int]*models.TicketSLA // keyed by ticket ID
	pauses         []*models.SLAPauseHistory
	breaches       []*models.SLABreach
	nextConfigID   int
	nextTrackingID int
	nextPauseID    int
	nextBreachID   int
}

// NewMemorySLARepository creates a new in-memory SLA repository.
func NewMemorySLARepository() *MemorySLARepository {
	return &MemorySLARepository{
		configs:        make(map[int]*models.SLAConfiguration),
		trackings:      make(map[int]*models.TicketSLA),
		nextConfigID:   1,
		nextTrackingID: 1,
		nextPauseID:    1,
		nextBreachID:   1,
	}
}

func copyConfig(cfg *models.SLAConfiguration) *models.SLAConfiguration {
	copied := *cfg
	if cfg.CategoryID != nil {
		id := *cfg.CategoryID
		copied.CategoryID = &id
	}
	copied.WorkingDays = append([]int(nil), cfg.WorkingDays...)
	return &copied
}

func copyTracking(t *models.TicketSLA) *models.TicketSLA {
	copied := *t
	if t.FirstResponseAt != nil {
		ts := *t.FirstResponseAt
		copied.FirstResponseAt = &ts
	}
	if t.ResolvedAt != nil {
		ts := *t.ResolvedAt
		copied.ResolvedAt = &ts
	}
	if t.PausedAt != nil {
		ts := *t.PausedAt
		copied.PausedAt = &ts
	}
	return &copied
}

// FindConfiguration applies the category-specific-over-agnostic rule.
func (r *MemorySLARepository) FindConfiguration(_ context.Context, priority models.Priority, categoryID *int) (*models.SLAConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var agnostic *models.SLAConfiguration
	var exact *models.SLAConfiguration
	ids := make([]int, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		cfg := r.configs[id]
		if !cfg.IsActive || cfg.Priority != priority {
			continue
		}
		if cfg.CategoryID == nil {
			if agnostic == nil {
				agnostic = cfg
			}
			continue
		}
		if categoryID != nil && *cfg.CategoryID == *categoryID && exact == nil {
			exact = cfg
		}
	}
	if exact != nil {
		return copyConfig(exact), nil
	}
	if agnostic != nil {
		return copyConfig(agnostic), nil
	}
	return nil, ErrNotFound
}

// GetConfiguration retrieves a configuration by ID.
func (r *MemorySLARepository) GetConfiguration(_ context.Context, id int) (*models.SLAConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.configs[id]; ok {
		return copyConfig(cfg), nil
	}
	return nil, ErrNotFound
}

// ListConfigurations returns configurations sorted by name.
func (r *MemorySLARepository) ListConfigurations(_ context.Context, activeOnly bool) ([]*models.SLAConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var configs []*models.SLAConfiguration
	for _, cfg := range r.configs {
		if activeOnly && !cfg.IsActive {
			continue
		}
		configs = append(configs, copyConfig(cfg))
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// CreateConfiguration inserts a configuration.
func (r *MemorySLARepository) CreateConfiguration(_ context.Context, cfg *models.SLAConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.ID = r.nextConfigID
	r.nextConfigID++
	now := time.Now().UTC()
	cfg.CreateTime, cfg.ChangeTime = now, now
	r.configs[cfg.ID] = copyConfig(cfg)
	return nil
}

// UpdateConfiguration rewrites a configuration.
func (r *MemorySLARepository) UpdateConfiguration(_ context.Context, cfg *models.SLAConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; !ok {
		return ErrNotFound
	}
	cfg.ChangeTime = time.Now().UTC()
	r.configs[cfg.ID] = copyConfig(cfg)
	return nil
}

// DeleteConfiguration removes a configuration.
func (r *MemorySLARepository) DeleteConfiguration(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[id]; !ok {
		return ErrNotFound
	}
	delete(r.configs, id)
	return nil
}

// GetTracking retrieves a ticket's tracking record.
func (r *MemorySLARepository) GetTracking(_ context.Context, ticketID int) (*models.TicketSLA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackings[ticketID]; ok {
		return copyTracking(t), nil
	}
	return nil, ErrNotFound
}

// UpsertTracking creates the record if absent; the existing row wins.
func (r *MemorySLARepository) UpsertTracking(_ context.Context, tracking *models.TicketSLA) (*models.TicketSLA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.trackings[tracking.TicketID]; ok {
		return copyTracking(existing), nil
	}
	created := copyTracking(tracking)
	created.ID = r.nextTrackingID
	r.nextTrackingID++
	now := time.Now().UTC()
	created.CreatedAt, created.UpdatedAt = now, now
	created.FirstResponseStatus = models.MetricPending
	created.ResolutionStatus = models.MetricPending
	r.trackings[tracking.TicketID] = created
	return copyTracking(created), nil
}

// MutateTracking applies fn under the repository lock.
func (r *MemorySLARepository) MutateTracking(_ context.Context, ticketID int, fn func(*models.TicketSLA) error) (*models.TicketSLA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackings[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	working := copyTracking(t)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now().UTC()
	r.trackings[ticketID] = working
	return copyTracking(working), nil
}

// AppendPauseHistory records one completed pause interval.
func (r *MemorySLARepository) AppendPauseHistory(_ context.Context, entry *models.SLAPauseHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	copied.ID = r.nextPauseID
	r.nextPauseID++
	r.pauses = append(r.pauses, &copied)
	return nil
}

// ListPauseHistory returns pause intervals for a tracking record.
func (r *MemorySLARepository) ListPauseHistory(_ context.Context, ticketSLAID int) ([]*models.SLAPauseHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []*models.SLAPauseHistory
	for _, e := range r.pauses {
		if e.TicketSLAID == ticketSLAID {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	return entries, nil
}

// AppendBreach records a missed target.
func (r *MemorySLARepository) AppendBreach(_ context.Context, breach *models.SLABreach) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *breach
	copied.ID = r.nextBreachID
	r.nextBreachID++
	copied.CreatedAt = time.Now().UTC()
	r.breaches = append(r.breaches, &copied)
	return nil
}

// ListBreaches returns breach rows for a ticket.
func (r *MemorySLARepository) ListBreaches(_ context.Context, ticketID int) ([]*models.SLABreach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var breaches []*models.SLABreach
	for _, b := range r.breaches {
		if b.TicketID == ticketID {
			copied := *b
			breaches = append(breaches, &copied)
		}
	}
	return breaches, nil
}
