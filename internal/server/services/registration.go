package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

// RegistrationService enrolls students in events and cancels enrollments.
// Every enroll or cancel is a single Store.Update, so the spot count and the
// registration row always change together.
type RegistrationService struct {
	store    repomanager.Store
	notifier Notifier
	log      logging.Logger
	clock    Clock
}

func NewRegistrationService(store repomanager.Store, notifier Notifier, log logging.Logger) *RegistrationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RegistrationService{
		store:    store,
		notifier: notifier,
		log:      orNop(log).With("module", "registrations"),
		clock:    time.Now,
	}
}

// Register enrolls student in the event. A cancelled enrollment of the same
// student is reused: its snapshot is refreshed while id and creation time
// stay.
func (s *RegistrationService) Register(ctx context.Context, eventID string, student models.Student) (reg *models.Registration, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.Register", attribute.String("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(student.StudentID) == "" {
		return nil, fmt.Errorf("student id is required: %w", common.ErrorValidation)
	}

	var event *models.Event
	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		ev, err := r.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}

		existing, err := r.Registrations().GetByEventAndStudent(ctx, eventID, student.StudentID)
		switch {
		case err == nil:
			if existing.Status == models.StatusRegistered {
				return fmt.Errorf("student %s already registered for event %s: %w", student.StudentID, eventID, common.ErrorConflict)
			}
		case errors.Is(err, common.ErrorNotFound):
			existing = nil
		default:
			return err
		}

		if ev.Spots <= 0 {
			return fmt.Errorf("event %s: %w", eventID, common.ErrorCapacity)
		}

		now := stamp(s.clock)
		if existing != nil {
			existing.Apply(student)
			existing.Status = models.StatusRegistered
			reg, err = r.Registrations().Update(ctx, existing)
		} else {
			fresh := &models.Registration{EventID: eventID, Status: models.StatusRegistered, CreatedAt: now}
			fresh.Apply(student)
			reg, err = r.Registrations().Create(ctx, fresh)
		}
		if err != nil {
			return err
		}

		event, err = r.Events().AdjustSpots(ctx, eventID, -1, now)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "register", err)
	}

	s.log.Info(ctx, "student registered", "event_id", eventID, "registration_id", reg.ID, "spots_left", event.Spots)
	s.publish(ctx, models.NotifyRegistered, reg, event)
	return reg, nil
}

// Cancel flips the student's enrollment to cancelled and returns the spot.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, studentID string) (reg *models.Registration, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.Cancel", attribute.String("event.id", eventID))
	defer func() { endSpan(span, err) }()

	var event *models.Event
	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Events().GetByID(ctx, eventID); err != nil {
			return err
		}

		existing, err := r.Registrations().GetByEventAndStudent(ctx, eventID, studentID)
		if err != nil {
			return err
		}
		if existing.Status == models.StatusCancelled {
			return fmt.Errorf("registration %s already cancelled: %w", existing.ID, common.ErrorConflict)
		}

		existing.Status = models.StatusCancelled
		if reg, err = r.Registrations().Update(ctx, existing); err != nil {
			return err
		}

		event, err = r.Events().AdjustSpots(ctx, eventID, 1, stamp(s.clock))
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "cancel", err)
	}

	s.log.Info(ctx, "registration cancelled", "event_id", eventID, "registration_id", reg.ID, "spots_left", event.Spots)
	s.publish(ctx, models.NotifyCancelled, reg, event)
	return reg, nil
}

// checkStudent rejects accounts that cannot hold enrollments.
func checkStudent(user *models.User) error {
	if user.Role != models.RoleUser {
		return fmt.Errorf("only student accounts can register to events: %w", common.ErrorForbidden)
	}
	if !user.HasCompleteProfile() {
		return fmt.Errorf("account profile is incomplete: %w", common.ErrorProfileIncomplete)
	}
	return nil
}

// RegisterUser enrolls the signed-in student using their profile.
func (s *RegistrationService) RegisterUser(ctx context.Context, user *models.User, eventID string) (*models.Registration, error) {
	if err := checkStudent(user); err != nil {
		return nil, err
	}
	return s.Register(ctx, eventID, user.Student())
}

// CancelForUser cancels the signed-in student's enrollment in the event.
func (s *RegistrationService) CancelForUser(ctx context.Context, user *models.User, eventID string) (*models.Registration, error) {
	if user.Role != models.RoleUser {
		return nil, fmt.Errorf("only student accounts can cancel registrations: %w", common.ErrorForbidden)
	}
	if user.StudentID == "" {
		return nil, fmt.Errorf("registration for event %s: %w", eventID, common.ErrorNotFound)
	}
	return s.Cancel(ctx, eventID, user.StudentID)
}

// ListByEvent returns every registration of the event, newest first.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string) (list []*models.Registration, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.ListByEvent", attribute.String("event.id", eventID))
	defer func() { endSpan(span, err) }()

	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Events().GetByID(ctx, eventID); err != nil {
			return err
		}
		list, err = r.Registrations().List(ctx, models.RegistrationFilter{EventID: eventID})
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "list registrations", err)
	}
	return list, nil
}

// ListForStudent returns the student's registrations of any status, newest
// first, each paired with its event.
func (s *RegistrationService) ListForStudent(ctx context.Context, studentID string) (out []models.StudentRegistration, err error) {
	ctx, span := startSpan(ctx, "RegistrationService.ListForStudent")
	defer func() { endSpan(span, err) }()

	out = []models.StudentRegistration{}
	if studentID == "" {
		return out, nil
	}

	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		regs, err := r.Registrations().List(ctx, models.RegistrationFilter{StudentID: studentID})
		if err != nil {
			return err
		}

		seen := make(map[string]*models.Event)
		for _, reg := range regs {
			ev, ok := seen[reg.EventID]
			if !ok {
				if ev, err = r.Events().GetByID(ctx, reg.EventID); err != nil {
					return err
				}
				seen[reg.EventID] = ev
			}
			out = append(out, models.StudentRegistration{Registration: *reg, Event: *ev.Clone()})
		}
		return nil
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "list student registrations", err)
	}
	return out, nil
}

// ListForUser is ListForStudent for the signed-in account.
func (s *RegistrationService) ListForUser(ctx context.Context, user *models.User) ([]models.StudentRegistration, error) {
	if user.Role != models.RoleUser {
		return nil, fmt.Errorf("only student accounts have registrations: %w", common.ErrorForbidden)
	}
	return s.ListForStudent(ctx, user.StudentID)
}

func (s *RegistrationService) publish(ctx context.Context, kind models.NotificationKind, reg *models.Registration, event *models.Event) {
	n := models.Notification{
		Kind:           kind,
		RegistrationID: reg.ID,
		EventID:        event.ID,
		EventName:      event.Name,
		StudentID:      reg.StudentID,
		FullName:       reg.FullName,
		Phone:          reg.Phone,
		SpotsLeft:      event.Spots,
		At:             event.UpdatedAt,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn(ctx, "notification not published", "kind", string(kind), "registration_id", reg.ID, "error", err)
	}
}
