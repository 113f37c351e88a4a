package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

const (
	// SignupCodeTTL is how long an SMS code stays usable.
	SignupCodeTTL = 300 * time.Second
	// MaxSignupAttempts is how many wrong codes a pending signup survives.
	MaxSignupAttempts = 5
)

// SignupInput is a student's self-registration request. The account is
// created only after the SMS code sent to Phone is confirmed.
type SignupInput struct {
	FullName  string `json:"full_name" validate:"required,min=3,max=120"`
	StudentID string `json:"student_id" validate:"required,min=3,max=40"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Career    string `json:"career" validate:"required,min=3,max=120"`
	Semester  int    `json:"semester" validate:"gte=1,lte=12"`
	Phone     string `json:"phone" validate:"required,min=8,max=20"`
}

// VerifyInput confirms a pending signup.
type VerifyInput struct {
	VerificationID string `json:"verification_id" validate:"required,min=8,max=80"`
	Code           string `json:"code" validate:"required,min=4,max=8"`
}

// PendingSignup tells the client where the code went and how long it is
// valid. Code is the code itself; callers decide whether to reveal it.
type PendingSignup struct {
	VerificationID string
	ExpiresIn      time.Duration
	SMSDestination string
	Code           string
}

// SignupService runs self-registration: StartSignup parks the request and
// texts a code, VerifySMS turns a confirmed request into an account whose
// initial password is the student id.
type SignupService struct {
	store       repomanager.Store
	users       *UserService
	notifier    Notifier
	validator   *inputValidator
	log         logging.Logger
	clock       Clock
	ttl         time.Duration
	maxAttempts int
	newCode     func() (string, error)
}

func NewSignupService(store repomanager.Store, users *UserService, notifier Notifier, log logging.Logger) *SignupService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &SignupService{
		store:       store,
		users:       users,
		notifier:    notifier,
		validator:   newInputValidator(),
		log:         orNop(log).With("module", "signup"),
		clock:       time.Now,
		ttl:         SignupCodeTTL,
		maxAttempts: MaxSignupAttempts,
		newCode:     randomCode,
	}
}

// StartSignup checks that neither the email nor the student id is taken,
// stores the request with a fresh 6-digit code and sends the code by SMS.
func (s *SignupService) StartSignup(ctx context.Context, in SignupInput) (pending *PendingSignup, err error) {
	ctx, span := startSpan(ctx, "SignupService.StartSignup")
	defer func() { endSpan(span, err) }()

	in.FullName = strings.TrimSpace(in.FullName)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Email = strings.TrimSpace(in.Email)
	in.Career = strings.TrimSpace(in.Career)
	in.Phone = strings.TrimSpace(in.Phone)
	if err = s.validator.check(in); err != nil {
		return nil, err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, hideInternal(ctx, s.log, "generate sms code", err)
	}

	now := stamp(s.clock)
	var v *models.SignupVerification
	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Verifications().DeleteExpired(ctx, now); err != nil {
			return err
		}
		if err := checkIdentityFree(ctx, r, in.Email, in.StudentID); err != nil {
			return err
		}
		var err error
		v, err = r.Verifications().Create(ctx, &models.SignupVerification{
			Code:      code,
			FullName:  in.FullName,
			StudentID: in.StudentID,
			Email:     in.Email,
			Career:    in.Career,
			Semester:  in.Semester,
			Phone:     in.Phone,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "start signup", err)
	}

	s.log.Info(ctx, "signup pending", "verification_id", v.ID, "student_id", v.StudentID)
	n := models.Notification{
		Kind:           models.NotifySignupCode,
		VerificationID: v.ID,
		StudentID:      v.StudentID,
		FullName:       v.FullName,
		Phone:          v.Phone,
		Code:           v.Code,
		At:             now,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn(ctx, "verification sms not published", "verification_id", v.ID, "error", err)
	}

	return &PendingSignup{
		VerificationID: v.ID,
		ExpiresIn:      s.ttl,
		SMSDestination: maskPhone(v.Phone),
		Code:           v.Code,
	}, nil
}

// checkIdentityFree fails with Conflict when an account already uses the
// email or the student id.
func checkIdentityFree(ctx context.Context, r repomanager.Repositories, email, studentID string) error {
	if _, err := r.Users().GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("email is already registered: %w", common.ErrorConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if _, err := r.Users().GetByStudentID(ctx, studentID); err == nil {
		return fmt.Errorf("student id is already registered: %w", common.ErrorConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// VerifySMS confirms the code of a pending signup and signs the new student
// in. Expired requests and requests that used up their attempts are dropped;
// a wrong code counts as an attempt.
func (s *SignupService) VerifySMS(ctx context.Context, in VerifyInput) (sess *Session, err error) {
	ctx, span := startSpan(ctx, "SignupService.VerifySMS", attribute.String("verification.id", in.VerificationID))
	defer func() { endSpan(span, err) }()

	in.VerificationID = strings.TrimSpace(in.VerificationID)
	in.Code = strings.TrimSpace(in.Code)
	if err = s.validator.check(in); err != nil {
		return nil, err
	}

	pending, err := s.checkCode(ctx, in)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:      pending.FullName,
		Email:         pending.Email,
		StudentID:     pending.StudentID,
		Career:        pending.Career,
		Semester:      pending.Semester,
		Phone:         pending.Phone,
		PhoneVerified: true,
		Role:          models.RoleUser,
	}
	if err = s.users.prepare(ctx, user, pending.StudentID); err != nil {
		return nil, err
	}

	var (
		created *models.User
		refused error
	)
	err = s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if _, err := r.Verifications().GetByID(ctx, pending.ID); err != nil {
			return err
		}
		if _, err := r.Verifications().Delete(ctx, pending.ID); err != nil {
			return err
		}

		if err := checkIdentityFree(ctx, r, pending.Email, pending.StudentID); err != nil {
			if !errors.Is(err, common.ErrorConflict) {
				return err
			}
			refused = err
			return nil
		}

		name, err := freeUsername(ctx, r, usernameFromEmail(pending.Email))
		if err != nil {
			return err
		}
		user.Username = name
		created, err = r.Users().Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "verify signup", err)
	}
	if refused != nil {
		return nil, refused
	}

	s.log.Info(ctx, "signup verified", "user_id", created.ID, "username", created.Username)
	return s.users.session(ctx, created)
}

// checkCode settles expiry, attempts and the code itself. Its bookkeeping
// commits even when the answer is a rejection.
func (s *SignupService) checkCode(ctx context.Context, in VerifyInput) (*models.SignupVerification, error) {
	var (
		pending *models.SignupVerification
		refused error
	)
	err := s.store.Update(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		v, err := r.Verifications().GetByID(ctx, in.VerificationID)
		if err != nil {
			return err
		}

		switch {
		case v.Expired(stamp(s.clock)):
			refused = fmt.Errorf("verification code expired: %w", common.ErrorVerification)
			_, err = r.Verifications().Delete(ctx, v.ID)
		case v.Attempts >= s.maxAttempts:
			refused = fmt.Errorf("verification attempts exceeded: %w", common.ErrorVerification)
			_, err = r.Verifications().Delete(ctx, v.ID)
		case subtle.ConstantTimeCompare([]byte(v.Code), []byte(in.Code)) != 1:
			refused = fmt.Errorf("invalid verification code: %w", common.ErrorVerification)
			err = r.Verifications().SetAttempts(ctx, v.ID, v.Attempts+1)
		default:
			pending = v
		}
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "check sms code", err)
	}
	if refused != nil {
		s.log.Info(ctx, "signup code refused", "verification_id", in.VerificationID, "reason", refused.Error())
		return nil, refused
	}
	return pending, nil
}

// freeUsername returns base, or base followed by the first free number
// starting at 2.
func freeUsername(ctx context.Context, r repomanager.Repositories, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		_, err := r.Users().GetByUsername(ctx, candidate)
		if errors.Is(err, common.ErrorNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, n)
	}
}

// usernameFromEmail keeps the ASCII letters, digits, dots, dashes and
// underscores of the local part, lower-cased.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, c := range local {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return strings.ToLower(b.String())
}

// maskPhone hides every digit but the last four.
func maskPhone(phone string) string {
	var digits []byte
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
