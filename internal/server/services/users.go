package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/auth"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
)

// StudentInput creates a student account directly, with a chosen username
// and password. Self-registration goes through SignupService instead.
type StudentInput struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FullName  string `json:"full_name" validate:"required,max=200"`
	StudentID string `json:"student_id" validate:"required,max=64"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Career    string `json:"career" validate:"required,max=200"`
	Semester  int    `json:"semester" validate:"gte=1,lte=12"`
	Phone     string `json:"phone" validate:"omitempty,min=8,max=20"`
}

// AdminInput describes an administrator account.
type AdminInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=200"`
}

// Session is the outcome of a successful login or signup verification.
type Session struct {
	AccessToken string
	User        *models.User
}

// UserService owns accounts and access tokens.
type UserService struct {
	store         repomanager.Store
	validator     *inputValidator
	log           logging.Logger
	clock         Clock
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewUserService(store repomanager.Store, secretKey string, tokenValidity time.Duration, log logging.Logger) *UserService {
	return &UserService{
		store:         store,
		validator:     newInputValidator(),
		log:           orNop(log).With("module", "users"),
		clock:         time.Now,
		jwtSecret:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// CreateStudent creates an active student account.
func (s *UserService) CreateStudent(ctx context.Context, in StudentInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Email = strings.TrimSpace(in.Email)
	in.Career = strings.TrimSpace(in.Career)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validator.check(in); err != nil {
		return nil, err
	}

	return s.create(ctx, &models.User{
		Username:  in.Username,
		FullName:  in.FullName,
		Email:     in.Email,
		StudentID: in.StudentID,
		Career:    in.Career,
		Semester:  in.Semester,
		Phone:     in.Phone,
		Role:      models.RoleUser,
	}, in.Password)
}

// CreateAdmin creates an active administrator without a student profile.
func (s *UserService) CreateAdmin(ctx context.Context, in AdminInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validator.check(in); err != nil {
		return nil, err
	}
	if in.FullName == "" {
		in.FullName = in.Username
	}

	return s.create(ctx, &models.User{
		Username: in.Username,
		FullName: in.FullName,
		Role:     models.RoleAdmin,
	}, in.Password)
}

// prepare hashes password into user and marks the account active and new.
func (s *UserService) prepare(ctx context.Context, user *models.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return hideInternal(ctx, s.log, "hash password", err)
	}

	now := stamp(s.clock)
	user.PasswordHash = hash
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *UserService) create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if err := s.prepare(ctx, user, password); err != nil {
		return nil, err
	}

	var created *models.User
	err := s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		created, err = r.Users().Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "create user", err)
	}

	s.log.Info(ctx, "user created", "user_id", created.ID, "role", string(created.Role))
	return created, nil
}

// Login accepts a username or a student id, both ignoring case. Unknown,
// inactive and wrong-password attempts all fail the same way.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	var user *models.User
	err := s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		user, err = lookupIdentifier(ctx, r.Users(), identifier)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, hideInternal(ctx, s.log, "login", err)
	}

	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, hideInternal(ctx, s.log, "check password", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	return s.session(ctx, user)
}

func lookupIdentifier(ctx context.Context, repo users.Repository, identifier string) (*models.User, error) {
	user, err := repo.GetByUsername(ctx, identifier)
	if err == nil || !errors.Is(err, common.ErrorNotFound) {
		return user, err
	}
	return repo.GetByStudentID(ctx, identifier)
}

func (s *UserService) session(ctx context.Context, user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, hideInternal(ctx, s.log, "generate token", err)
	}
	return &Session{AccessToken: token, User: user}, nil
}

// Authenticate resolves an access token to its active account.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	user, err := s.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown account", common.ErrorUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", common.ErrorUnauthorized)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		user, err = r.Users().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "get user", err)
	}
	return user, nil
}

// SetActive enables or disables an account. Disabled accounts cannot log in
// and their tokens stop working.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	err := s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return r.Users().SetActive(ctx, id, active, stamp(s.clock))
	})
	if err != nil {
		return hideInternal(ctx, s.log, "set user active", err)
	}

	s.log.Info(ctx, "user activation changed", "user_id", id, "active", active)
	return nil
}

// List returns every account in creation order.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	var list []*models.User
	err := s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		list, err = r.Users().List(ctx)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "list users", err)
	}
	return list, nil
}
