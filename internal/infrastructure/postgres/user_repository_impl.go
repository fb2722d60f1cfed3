package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prestigemetals/account-service/internal/domain/entity"
	domainErr "github.com/prestigemetals/account-service/internal/domain/errors"
	"github.com/prestigemetals/account-service/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, otp, otp_expiry, forgot_password_code, reset_allowed, is_active, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.OTP, &u.OTPExpiry,
		&u.ForgotPasswordCode, &u.ResetAllowed, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErr.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, otp, otp_expiry)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.OTP, u.OTPExpiry)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		// Unique index on email is the backstop for the existence-check race
		// in Register; surface it as the duplicate-identity error.
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domainErr.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
}

func (r *UserRepository) FindByIDAndResetCode(ctx context.Context, id, code string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND forgot_password_code = $2 AND forgot_password_code <> ''
	`, id, code))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domainErr.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RotateOTP(ctx context.Context, email string, otp int, expiry time.Time) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET otp = $1, otp_expiry = $2, updated_at = now()
		WHERE email = $3 AND is_active = false
		RETURNING `+userColumns+`
	`, otp, expiry, email))
}

func (r *UserRepository) Activate(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET is_active = true, otp = 0, otp_expiry = to_timestamp(0), updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id))
}

func (r *UserRepository) IssueResetCode(ctx context.Context, email, code string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET forgot_password_code = $1, reset_allowed = true, updated_at = now()
		WHERE email = $2
		RETURNING `+userColumns+`
	`, code, email))
}

func (r *UserRepository) ConsumeResetCode(ctx context.Context, id, code, passwordHash string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $1, reset_allowed = false, updated_at = now()
		WHERE id = $2 AND forgot_password_code = $3 AND reset_allowed = true
		RETURNING `+userColumns+`
	`, passwordHash, id, code))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domainErr.ErrUserNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
