package repository

import (
	"context"
	"time"

	"github.com/prestigemetals/account-service/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
//
// The Rotate/Activate/Issue/Consume methods are conditional updates: match
// and mutation happen in a single statement so concurrent requests for the
// same account cannot interleave a read with a stale write. They return
// errors.ErrUserNotFound when no row matches the criteria.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindByIDAndResetCode matches both id and the outstanding reset code;
	// a miss does not reveal which of the two was wrong.
	FindByIDAndResetCode(ctx context.Context, id, code string) (*entity.User, error)
	Delete(ctx context.Context, id string) error

	// RotateOTP replaces the OTP challenge on an inactive user.
	RotateOTP(ctx context.Context, email string, otp int, expiry time.Time) (*entity.User, error)
	// Activate flips the user to active and clears the OTP window.
	Activate(ctx context.Context, id string) (*entity.User, error)
	// IssueResetCode stores a new reset code and opens the reset gate;
	// last-issued-wins over any prior outstanding code.
	IssueResetCode(ctx context.Context, email, code string) (*entity.User, error)
	// ConsumeResetCode sets the new password hash and closes the reset gate,
	// matching {id, code, reset_allowed}. At most one call per code succeeds.
	ConsumeResetCode(ctx context.Context, id, code, passwordHash string) (*entity.User, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
