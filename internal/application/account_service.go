package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prestigemetals/account-service/config"
	"github.com/prestigemetals/account-service/internal/domain/entity"
	domainErr "github.com/prestigemetals/account-service/internal/domain/errors"
	repo "github.com/prestigemetals/account-service/internal/domain/repository"
	"github.com/prestigemetals/account-service/pkg/helpers"
	tpl "github.com/prestigemetals/account-service/pkg/mailer/templates"
)

// Notifier delivers templated emails. Implementations must report failure
// when the message could not be dispatched; callers treat that as an
// operation failure rather than telling the user to check their inbox.
type Notifier interface {
	SendTemplatedEmail(ctx context.Context, template, subject, recipient string, data map[string]any) error
}

// Service orchestrates the account lifecycle: registration behind an OTP
// gate, activation, login, and the password change/reset flows.
type Service struct {
	Repo   repo.UserRepository
	JWT    *helpers.JWTManager
	Mail   Notifier
	Logger *logrus.Logger
	Cfg    *config.Config

	now func() time.Time
}

func NewService(r repo.UserRepository, jwt *helpers.JWTManager, mail Notifier, logger *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		Repo:   r,
		JWT:    jwt,
		Mail:   mail,
		Logger: logger,
		Cfg:    cfg,
		now:    time.Now,
	}
}

// UserView is the outward-facing shape of a User. Password hash, OTP fields
// and the reset challenge never leave the service.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toView(u *entity.User) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// TokenResult pairs a sanitized user with a freshly issued bearer token.
type TokenResult struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

// RegisterResult distinguishes a fresh registration from a safe retry while
// an OTP is still outstanding. Pending is not an error so client retries
// cannot create a duplicate record.
type RegisterResult struct {
	Pending bool
}

func (s *Service) issueToken(u *entity.User) (*TokenResult, error) {
	token, _, err := s.JWT.Generate(u.ID, u.Name, u.Email)
	if err != nil {
		return nil, err
	}
	return &TokenResult{User: toView(u), Token: token}, nil
}

// Register creates an inactive user with a pending OTP challenge and emails
// the code. An existing active user is a conflict; an existing inactive user
// with a live OTP yields a pending result; a stale inactive record is
// deleted and replaced. The activation email is queued before the row is
// created so a dispatch failure never leaves an unreachable pending record.
func (s *Service) Register(ctx context.Context, name, email, password string) (*RegisterResult, error) {
	existing, err := s.Repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsActive {
			return nil, domainErr.ErrEmailTaken
		}
		if helpers.OTPWindowOpen(existing.OTPExpiry, s.now()) {
			return &RegisterResult{Pending: true}, nil
		}
		// Stale unconfirmed registration; remove it and start over.
		if err := s.Repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, domainErr.ErrUserNotFound) {
			return nil, err
		}
	case errors.Is(err, domainErr.ErrUserNotFound):
		// fresh registration
	default:
		return nil, err
	}

	otp, err := helpers.GenOTPCode()
	if err != nil {
		return nil, err
	}
	expiry := s.now().Add(s.Cfg.OTPTTL)

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}

	data := tpl.NewActivationData(s.Cfg, name, email, otp, tpl.WithExpiresAt(expiry))
	if err := s.Mail.SendTemplatedEmail(ctx, tpl.Activation, s.Cfg.CompanyName+" - Activate Account", email, data); err != nil {
		helpers.LogError(s.Logger, "activation email dispatch failed", err, logrus.Fields{"email": email})
		return nil, err
	}

	u := &entity.User{
		Email:     email,
		Name:      name,
		Password:  hash,
		OTP:       otp,
		OTPExpiry: expiry,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return &RegisterResult{}, nil
}

// VerifyOTP activates the account when the pending code matches inside its
// expiry window, and returns the identity with a fresh token. Expiry is
// checked before equality so an expired-but-matching code reports expiry.
func (s *Service) VerifyOTP(ctx context.Context, email string, otp int) (*TokenResult, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.IsActive {
		return nil, domainErr.ErrAlreadyVerified
	}
	if !helpers.OTPWindowOpen(u.OTPExpiry, s.now()) {
		return nil, domainErr.ErrOTPExpired
	}
	if u.OTP != otp {
		return nil, domainErr.ErrOTPMismatch
	}

	u, err = s.Repo.Activate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return s.issueToken(u)
}

// ResendOTP regenerates the challenge on an inactive account. The rotation
// is one conditional update so concurrent resends cannot leave two codes
// outstanding; the freshest write wins.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	otp, err := helpers.GenOTPCode()
	if err != nil {
		return err
	}
	expiry := s.now().Add(s.Cfg.OTPTTL)

	u, err := s.Repo.RotateOTP(ctx, email, otp, expiry)
	if err != nil {
		return err
	}

	data := tpl.NewActivationData(s.Cfg, u.Name, email, otp, tpl.WithExpiresAt(expiry))
	if err := s.Mail.SendTemplatedEmail(ctx, tpl.Activation, s.Cfg.CompanyName+" - Verify OTP", email, data); err != nil {
		helpers.LogError(s.Logger, "otp email dispatch failed", err, logrus.Fields{"email": email})
		return err
	}
	return nil
}

// Login verifies credentials on an active account and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErr.ErrUserNotFound) {
			return nil, domainErr.ErrUnknownEmail
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domainErr.ErrInactiveAccount
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, domainErr.ErrPasswordMismatch
	}
	return s.issueToken(u)
}

// UpdatePassword changes the password of an authenticated user after
// re-verifying the old one. No token is reissued.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErr.ErrUserNotFound) {
			return domainErr.ErrUnauthorized
		}
		return err
	}
	if !helpers.CompareHashAndPassword(u.Password, oldPassword) {
		return domainErr.ErrOldPasswordMismatch
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, u.ID, hash)
}

// ForgotPassword issues a single-use reset code and emails a link carrying
// the user id and the code. A new call supersedes any outstanding code.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.Repo.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, domainErr.ErrUserNotFound) {
			return domainErr.ErrInvalidEmail
		}
		return err
	}

	code := uuid.NewString()
	u, err := s.Repo.IssueResetCode(ctx, email, code)
	if err != nil {
		return err
	}

	data := tpl.NewResetPasswordData(s.Cfg, u.Name, email, u.ID, code)
	if err := s.Mail.SendTemplatedEmail(ctx, tpl.ResetPassword, s.Cfg.CompanyName+" - Reset Password", email, data); err != nil {
		helpers.LogError(s.Logger, "reset email dispatch failed", err, logrus.Fields{"email": email})
		return err
	}
	return nil
}

// SetPassword consumes an outstanding reset code. The id/code pair must
// match (a miss hides which was wrong) and the reset gate must be open;
// consumption is one conditional update, so the same code can never
// succeed twice even under concurrent calls.
func (s *Service) SetPassword(ctx context.Context, id, code, password string) (*TokenResult, error) {
	u, err := s.Repo.FindByIDAndResetCode(ctx, id, code)
	if err != nil {
		return nil, err
	}
	if !u.ResetAllowed {
		return nil, domainErr.ErrResetNotAllowed
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err = s.Repo.ConsumeResetCode(ctx, id, code, hash)
	if err != nil {
		// Lost the race against another consumer of the same code.
		if errors.Is(err, domainErr.ErrUserNotFound) {
			return nil, domainErr.ErrResetNotAllowed
		}
		return nil, err
	}
	return s.issueToken(u)
}
