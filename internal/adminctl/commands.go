package adminctl

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/seed"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

func (a *App) userService(store repomanager.Store) *services.UserService {
	return services.NewUserService(store, a.config.SecretKey, a.config.AccessTokenValidityDuration, a.logger)
}

func (a *App) createAdmin(ctx context.Context, store repomanager.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: create-admin <username> [full name]", ErrUsage)
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}

	user, err := a.userService(store).CreateAdmin(ctx, services.AdminInput{
		Username: args[0],
		Password: password,
		FullName: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "admin %s created (id %s)\n", user.Username, user.ID)
	return nil
}

func (a *App) seed(ctx context.Context, store repomanager.Store, _ []string) error {
	s := seed.New(store, a.userService(store), services.NewCatalogService(store, a.logger), a.logger)
	res, err := s.Run(ctx, seed.Options{
		AdminUsername: a.config.AdminUsername,
		AdminPassword: a.config.AdminPassword,
		DemoData:      true,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "seeded: admin=%t users=%d events=%d\n", res.Admin, res.Users, res.Events)
	return nil
}

func (a *App) listUsers(ctx context.Context, store repomanager.Store, _ []string) error {
	list, err := a.userService(store).List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tSTUDENT ID\tACTIVE")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Role, u.StudentID, u.IsActive)
	}
	return tw.Flush()
}

func (a *App) setActive(ctx context.Context, store repomanager.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set-active <username> <true|false>", ErrUsage)
	}
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("%w: %q is not true or false", ErrUsage, args[1])
	}

	var user *models.User
	err = store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		user, err = r.Users().GetByUsername(ctx, args[0])
		return err
	})
	if err != nil {
		return fmt.Errorf("user %s: %w", args[0], err)
	}

	if err := a.userService(store).SetActive(ctx, user.ID, active); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user %s active=%t\n", user.Username, active)
	return nil
}

func (a *App) uploadImage(ctx context.Context, store repomanager.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: upload-image <event-id> <file>", ErrUsage)
	}
	eventID, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	images := services.NewImageService(services.NewCatalogService(store, a.logger), a.config, a.logger)
	up, err := images.PresignUpload(ctx, eventID, filepath.Base(path))
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if err := a.upload(ctx, up.URL, contentType, data); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uploaded %s to %s\n", filepath.Base(path), up.Key)
	return nil
}
