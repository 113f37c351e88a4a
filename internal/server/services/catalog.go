package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

// EventInput carries every mutable field of an event as sent by an admin.
type EventInput struct {
	Name         string           `json:"name" validate:"required,max=200"`
	Image        string           `json:"image" validate:"max=1024"`
	Place        string           `json:"place" validate:"max=200"`
	Location     string           `json:"location" validate:"max=500"`
	Summary      string           `json:"summary" validate:"max=4000"`
	Agenda       []string         `json:"agenda"`
	Requirements []string         `json:"requirements"`
	Date         string           `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string           `json:"time" validate:"max=32"`
	Type         models.EventType `json:"type" validate:"required,event_type"`
	Spots        int              `json:"spots" validate:"gte=0"`
}

func (in EventInput) normalized() EventInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Type = models.EventType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	return in
}

// apply copies the input onto e. The date must already be validated.
func (in EventInput) apply(e *models.Event) error {
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return fmt.Errorf("%w: date: %v", common.ErrorValidation, err)
	}
	e.Name = in.Name
	e.Image = in.Image
	e.Place = in.Place
	e.Location = in.Location
	e.Summary = in.Summary
	e.Agenda = append([]string{}, in.Agenda...)
	e.Requirements = append([]string{}, in.Requirements...)
	e.Date = date
	e.Time = in.Time
	e.Type = in.Type
	e.Spots = in.Spots
	return nil
}

// CatalogService manages the event catalog.
type CatalogService struct {
	store     repomanager.Store
	validator *inputValidator
	log       logging.Logger
	clock     Clock
}

func NewCatalogService(store repomanager.Store, log logging.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		validator: newInputValidator(),
		log:       orNop(log).With("module", "catalog"),
		clock:     time.Now,
	}
}

// List returns the events passing filter ordered by date, time and id.
func (s *CatalogService) List(ctx context.Context, filter models.EventFilter) (list []*models.Event, err error) {
	ctx, span := startSpan(ctx, "CatalogService.List",
		attribute.String("filter.type", string(filter.Type)), attribute.Int("filter.month", filter.Month))
	defer func() { endSpan(span, err) }()

	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be onsite or online", common.ErrorValidation)
	}
	if filter.Month < 0 || filter.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", common.ErrorValidation)
	}

	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		list, err = r.Events().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "list events", err)
	}
	return list, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (event *models.Event, err error) {
	ctx, span := startSpan(ctx, "CatalogService.Get", attribute.String("event.id", id))
	defer func() { endSpan(span, err) }()

	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		event, err = r.Events().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "get event", err)
	}
	return event, nil
}

func (s *CatalogService) Create(ctx context.Context, in EventInput) (event *models.Event, err error) {
	ctx, span := startSpan(ctx, "CatalogService.Create")
	defer func() { endSpan(span, err) }()

	in = in.normalized()
	if err = s.validator.check(in); err != nil {
		return nil, err
	}

	now := stamp(s.clock)
	e := &models.Event{CreatedAt: now, UpdatedAt: now}
	if err = in.apply(e); err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		event, err = r.Events().Create(ctx, e)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "create event", err)
	}

	s.log.Info(ctx, "event created", "event_id", event.ID, "spots", event.Spots)
	return event, nil
}

// Update replaces every mutable field of the event, spots included.
//
// Spots is the remaining capacity, not the total. The value given here is an
// admin override of that counter: active registrations are kept and not
// subtracted from it, later enrollments and cancellations move it from the
// new value, and 0 closes the event to new enrollments.
func (s *CatalogService) Update(ctx context.Context, id string, in EventInput) (event *models.Event, err error) {
	ctx, span := startSpan(ctx, "CatalogService.Update", attribute.String("event.id", id))
	defer func() { endSpan(span, err) }()

	in = in.normalized()
	if err = s.validator.check(in); err != nil {
		return nil, err
	}

	e := &models.Event{ID: id, UpdatedAt: stamp(s.clock)}
	if err = in.apply(e); err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		event, err = r.Events().Update(ctx, e)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "update event", err)
	}

	s.log.Info(ctx, "event updated", "event_id", event.ID, "spots", event.Spots)
	return event, nil
}

// Delete removes the event together with its registrations.
func (s *CatalogService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "CatalogService.Delete", attribute.String("event.id", id))
	defer func() { endSpan(span, err) }()

	var deleted bool
	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		deleted, err = r.Events().Delete(ctx, id)
		return err
	})
	if err != nil {
		return hideInternal(ctx, s.log, "delete event", err)
	}
	if !deleted {
		return fmt.Errorf("event %s: %w", id, common.ErrorNotFound)
	}

	s.log.Info(ctx, "event deleted", "event_id", id)
	return nil
}

// SetImage stores the object key or URL of the event's image.
func (s *CatalogService) SetImage(ctx context.Context, id, image string) (event *models.Event, err error) {
	ctx, span := startSpan(ctx, "CatalogService.SetImage", attribute.String("event.id", id))
	defer func() { endSpan(span, err) }()

	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		current, err := r.Events().GetByID(ctx, id)
		if err != nil {
			return err
		}
		current.Image = image
		current.UpdatedAt = stamp(s.clock)
		event, err = r.Events().Update(ctx, current)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "set event image", err)
	}
	return event, nil
}
