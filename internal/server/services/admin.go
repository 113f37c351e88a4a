package services

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

// recentWindow is how far back RegistrationsToday looks.
const recentWindow = 24 * time.Hour

// AdminService computes dashboard aggregates. It never writes.
type AdminService struct {
	store repomanager.Store
	log   logging.Logger
	clock Clock
}

func NewAdminService(store repomanager.Store, log logging.Logger) *AdminService {
	return &AdminService{
		store: store,
		log:   orNop(log).With("module", "admin"),
		clock: time.Now,
	}
}

// Summary counts users, events and registrations of any status, the
// registrations created during the last 24 hours, and the busiest events.
// All numbers come from one consistent view.
func (s *AdminService) Summary(ctx context.Context) (summary *models.AdminSummary, err error) {
	ctx, span := startSpan(ctx, "AdminService.Summary")
	defer func() { endSpan(span, err) }()

	since := stamp(s.clock).Add(-recentWindow)

	summary = &models.AdminSummary{}
	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		if summary.TotalUsers, err = r.Users().Count(ctx); err != nil {
			return err
		}

		events, err := r.Events().List(ctx, models.EventFilter{})
		if err != nil {
			return err
		}
		summary.TotalEvents = len(events)

		regs, err := r.Registrations().List(ctx, models.RegistrationFilter{})
		if err != nil {
			return err
		}
		summary.TotalRegistrations = len(regs)

		if summary.RegistrationsToday, err = r.Registrations().CountSince(ctx, since); err != nil {
			return err
		}

		summary.TopEvents = topEvents(events, regs, common.TopEventsLimit)
		return nil
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "admin summary", err)
	}
	return summary, nil
}

// topEvents ranks events by registration count, highest first. Events
// without registrations are left out and ties keep catalog order.
func topEvents(events []*models.Event, regs []*models.Registration, limit int) []models.EventStats {
	counts := make(map[string]int, len(events))
	for _, reg := range regs {
		counts[reg.EventID]++
	}

	stats := make([]models.EventStats, 0, len(counts))
	for _, e := range events {
		n := counts[e.ID]
		if n == 0 {
			continue
		}
		stats = append(stats, models.EventStats{
			EventID:            e.ID,
			EventName:          e.Name,
			TotalRegistrations: n,
			AvailableSpots:     e.Spots,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalRegistrations > stats[j].TotalRegistrations
	})

	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}
