// Package seed loads a bootstrap admin and demo catalog into a fresh store.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

// Options controls what gets seeded. An empty AdminUsername skips the admin.
type Options struct {
	AdminUsername string
	AdminPassword string
	DemoData      bool
}

// Result reports what Run actually created.
type Result struct {
	Admin  bool
	Users  int
	Events int
}

// Seeder creates seed data through the services so the usual validation
// and hashing apply.
type Seeder struct {
	store   repomanager.Store
	users   *services.UserService
	catalog *services.CatalogService
	log     logging.Logger
}

func New(store repomanager.Store, users *services.UserService, catalog *services.CatalogService, log logging.Logger) *Seeder {
	if log == nil {
		log = logging.Nop()
	}
	return &Seeder{store: store, users: users, catalog: catalog, log: log.With("module", "seed")}
}

// Run is idempotent: the admin and demo students are skipped when their
// usernames exist, demo events only go into an empty catalog.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	if opts.AdminUsername != "" {
		created, err := s.ensure(ctx, func() error {
			_, err := s.users.CreateAdmin(ctx, services.AdminInput{Username: opts.AdminUsername, Password: opts.AdminPassword})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		res.Admin = created
	}

	if !opts.DemoData {
		return res, nil
	}

	for _, in := range demoStudents {
		created, err := s.ensure(ctx, func() error {
			_, err := s.users.CreateStudent(ctx, in)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("seed student %s: %w", in.Username, err)
		}
		if created {
			res.Users++
		}
	}

	var events int
	err := s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		events, err = r.Events().Count(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	if events == 0 {
		for _, in := range demoEvents() {
			if _, err := s.catalog.Create(ctx, in); err != nil {
				return nil, fmt.Errorf("seed event %q: %w", in.Name, err)
			}
			res.Events++
		}
	}

	s.log.Info(ctx, "seed finished", "admin_created", res.Admin, "users", res.Users, "events", res.Events)
	return res, nil
}

// ensure runs create and treats a Conflict as "already there".
func (s *Seeder) ensure(ctx context.Context, create func() error) (bool, error) {
	err := create()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorConflict):
		s.log.Debug(ctx, "seed record exists, skipping")
		return false, nil
	default:
		return false, err
	}
}

var demoStudents = []services.StudentInput{
	{Username: "student", Password: "student123", FullName: "Demo Student", StudentID: "A0001", Email: "student@uni.mx",
		Career: "Systems Engineering", Semester: 4, Phone: "5510000001"},
	{Username: "lucia", Password: "lucia123", FullName: "Lucia Herrera", StudentID: "A0002", Email: "lucia@uni.mx",
		Career: "International Business", Semester: 6, Phone: "5510000002"},
}

func demoEvents() []services.EventInput {
	return []services.EventInput{
		{
			Name:         "Leadership and teamwork bootcamp",
			Image:        "/photos/leadership.jpg",
			Place:        "University Plaza",
			Location:     "Main campus, building A",
			Summary:      "A hands-on morning of leadership drills and team challenges.",
			Agenda:       []string{"Situational leadership games", "Team challenges", "Facilitator feedback"},
			Requirements: []string{"Valid student card", "Comfortable clothes"},
			Date:         "2026-06-05",
			Time:         "09:00-13:00",
			Type:         models.EventOnsite,
			Spots:        150,
		},
		{
			Name:         "Import and export simulation",
			Image:        "/photos/trade.jpg",
			Place:        "Online classroom",
			Location:     "Video call link sent by mail",
			Summary:      "Walk a product through negotiation, customs and delivery.",
			Agenda:       []string{"Trade strategy", "Costs and compliance", "Closing review"},
			Requirements: []string{"Stable internet connection", "Laptop or tablet"},
			Date:         "2026-06-05",
			Time:         "10:00-13:00",
			Type:         models.EventOnline,
			Spots:        300,
		},
		{
			Name:         "Live podcast studio",
			Image:        "/photos/podcast.jpg",
			Place:        "Campus radio",
			Location:     "Online stream",
			Summary:      "Plan, record and broadcast a short live show.",
			Agenda:       []string{"Format and script", "Live recording", "Diction feedback"},
			Requirements: []string{"Headset with microphone"},
			Date:         "2026-11-04",
			Time:         "16:00-19:00",
			Type:         models.EventOnline,
			Spots:        40,
		},
		{
			Name:         "App and game demo day",
			Image:        "/photos/demo-day.jpg",
			Place:        "Innovation hub",
			Location:     "Main campus, building C",
			Summary:      "Students pitch and test their apps and games with real users.",
			Agenda:       []string{"Product pitches", "User testing", "Improvement review"},
			Requirements: []string{"Working prototype", "Charged device"},
			Date:         "2026-04-22",
			Time:         "15:00-19:00",
			Type:         models.EventOnsite,
			Spots:        80,
		},
	}
}
