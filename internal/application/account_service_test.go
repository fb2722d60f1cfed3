package application

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestigemetals/account-service/config"
	"github.com/prestigemetals/account-service/internal/domain/entity"
	domainErr "github.com/prestigemetals/account-service/internal/domain/errors"
	"github.com/prestigemetals/account-service/pkg/helpers"
)

// fakeRepo is an in-memory UserRepository mirroring the conditional-update
// semantics of the Postgres implementation.
type fakeRepo struct {
	users map[string]*entity.User // keyed by id

	createErr error
	deleted   []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*entity.User)}
}

func (f *fakeRepo) byEmail(email string) *entity.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeRepo) Create(_ context.Context, u *entity.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byEmail(u.Email) != nil {
		return domainErr.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domainErr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	u := f.byEmail(email)
	if u == nil {
		return nil, domainErr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) FindByIDAndResetCode(_ context.Context, id, code string) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok || code == "" || u.ForgotPasswordCode != code {
		return nil, domainErr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return domainErr.ErrUserNotFound
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) RotateOTP(_ context.Context, email string, otp int, expiry time.Time) (*entity.User, error) {
	u := f.byEmail(email)
	if u == nil || u.IsActive {
		return nil, domainErr.ErrUserNotFound
	}
	u.OTP = otp
	u.OTPExpiry = expiry
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) Activate(_ context.Context, id string) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok || u.IsActive {
		return nil, domainErr.ErrUserNotFound
	}
	u.IsActive = true
	u.OTP = 0
	u.OTPExpiry = time.Time{}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) IssueResetCode(_ context.Context, email, code string) (*entity.User, error) {
	u := f.byEmail(email)
	if u == nil {
		return nil, domainErr.ErrUserNotFound
	}
	u.ForgotPasswordCode = code
	u.ResetAllowed = true
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) ConsumeResetCode(_ context.Context, id, code, passwordHash string) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok || u.ForgotPasswordCode != code || !u.ResetAllowed {
		return nil, domainErr.ErrUserNotFound
	}
	u.Password = passwordHash
	u.ForgotPasswordCode = ""
	u.ResetAllowed = false
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return domainErr.ErrUserNotFound
	}
	u.Password = passwordHash
	return nil
}

type sentEmail struct {
	Template  string
	Subject   string
	Recipient string
	Data      map[string]any
}

type fakeNotifier struct {
	sent []sentEmail
	err  error
}

func (f *fakeNotifier) SendTemplatedEmail(_ context.Context, template, subject, recipient string, data map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{Template: template, Subject: subject, Recipient: recipient, Data: data})
	return nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeNotifier) {
	t.Helper()
	repo := newFakeRepo()
	mail := &fakeNotifier{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		OTPTTL:      10 * time.Minute,
		CompanyName: "Prestige Metals",
		FrontendURL: "https://app.example.com",
	}
	svc := NewService(repo, helpers.NewJWTManager("test-secret", time.Hour), mail, logger, cfg)
	svc.now = func() time.Time { return testNow }
	return svc, repo, mail
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := helpers.HashPassword(plain)
	require.NoError(t, err)
	return h
}

func seedUser(t *testing.T, repo *fakeRepo, u entity.User) *entity.User {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &u))
	return repo.users[u.ID]
}

func TestRegisterFresh(t *testing.T) {
	svc, repo, mail := newTestService(t)

	res, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, res.Pending)

	u := repo.byEmail("alice@example.com")
	require.NotNil(t, u)
	assert.False(t, u.IsActive)
	assert.GreaterOrEqual(t, u.OTP, 100000)
	assert.LessOrEqual(t, u.OTP, 999999)
	assert.Equal(t, testNow.Add(10*time.Minute), u.OTPExpiry)
	assert.True(t, helpers.CompareHashAndPassword(u.Password, "password1"))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "activation", mail.sent[0].Template)
	assert.Equal(t, "Prestige Metals - Activate Account", mail.sent[0].Subject)
	assert.Equal(t, "alice@example.com", mail.sent[0].Recipient)
}

func TestRegisterActiveEmailTaken(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", Name: "Alice", IsActive: true})

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password1")
	assert.ErrorIs(t, err, domainErr.ErrEmailTaken)
	assert.Empty(t, mail.sent)
}

func TestRegisterPendingWhileOTPLive(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		OTP: 123456, OTPExpiry: testNow.Add(5 * time.Minute),
	})

	res, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Empty(t, mail.sent, "no new email while a challenge is outstanding")
	assert.Equal(t, 123456, repo.users["u1"].OTP, "existing challenge untouched")
}

func TestRegisterReplacesStaleRecord(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		OTP: 123456, OTPExpiry: testNow.Add(-time.Minute),
	})

	res, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.Contains(t, repo.deleted, "u1")

	u := repo.byEmail("alice@example.com")
	require.NotNil(t, u)
	assert.NotEqual(t, "u1", u.ID)
	assert.Len(t, mail.sent, 1)
}

func TestRegisterNotifierFailure(t *testing.T) {
	svc, repo, mail := newTestService(t)
	mail.err = errors.New("broker down")

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "password1")
	require.Error(t, err)
	assert.Nil(t, repo.byEmail("alice@example.com"), "no record created when the email cannot be queued")
}

func TestResendOTPNotifierFailure(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", Name: "Alice"})
	mail.err = errors.New("broker down")

	err := svc.ResendOTP(context.Background(), "alice@example.com")
	require.Error(t, err)
}

func TestForgotPasswordNotifierFailure(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", Name: "Alice", IsActive: true})
	mail.err = errors.New("broker down")

	err := svc.ForgotPassword(context.Background(), "alice@example.com")
	require.Error(t, err)
}

func TestVerifyOTP(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		OTP: 123456, OTPExpiry: testNow.Add(5 * time.Minute),
	})

	res, err := svc.VerifyOTP(context.Background(), "alice@example.com", 123456)
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
	assert.NotEmpty(t, res.Token)

	claims, err := svc.JWT.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	u := repo.users["u1"]
	assert.True(t, u.IsActive)
	assert.Zero(t, u.OTP, "challenge cleared on activation")
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyOTP(context.Background(), "ghost@example.com", 123456)
	assert.ErrorIs(t, err, domainErr.ErrUserNotFound)
}

func TestVerifyOTPAlreadyVerified(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", IsActive: true})

	_, err := svc.VerifyOTP(context.Background(), "alice@example.com", 123456)
	assert.ErrorIs(t, err, domainErr.ErrAlreadyVerified)
}

func TestVerifyOTPExpiredBeatsMismatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		OTP: 123456, OTPExpiry: testNow.Add(-time.Minute),
	})

	// A matching but expired code reports expiry, not mismatch.
	_, err := svc.VerifyOTP(context.Background(), "alice@example.com", 123456)
	assert.ErrorIs(t, err, domainErr.ErrOTPExpired)
}

func TestVerifyOTPMismatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		OTP: 123456, OTPExpiry: testNow.Add(5 * time.Minute),
	})

	_, err := svc.VerifyOTP(context.Background(), "alice@example.com", 654321)
	assert.ErrorIs(t, err, domainErr.ErrOTPMismatch)

	assert.False(t, repo.users["u1"].IsActive)
}

func TestResendOTP(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		OTP: 123456, OTPExpiry: testNow.Add(-time.Minute),
	})

	require.NoError(t, svc.ResendOTP(context.Background(), "alice@example.com"))

	u := repo.users["u1"]
	assert.Equal(t, testNow.Add(10*time.Minute), u.OTPExpiry)
	assert.GreaterOrEqual(t, u.OTP, 100000)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "activation", mail.sent[0].Template)
	assert.Equal(t, "Prestige Metals - Verify OTP", mail.sent[0].Subject)
}

func TestResendOTPActiveAccount(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", IsActive: true})

	err := svc.ResendOTP(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, domainErr.ErrUserNotFound)
	assert.Empty(t, mail.sent)
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice",
		Password: mustHash(t, "password1"), IsActive: true,
	})

	res, err := svc.Login(context.Background(), "alice@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "Alice", res.User.Name)
	assert.NotEmpty(t, res.Token)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "ghost@example.com", "password1")
	assert.ErrorIs(t, err, domainErr.ErrUnknownEmail)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		Password: mustHash(t, "password1"),
	})

	_, err := svc.Login(context.Background(), "alice@example.com", "password1")
	assert.ErrorIs(t, err, domainErr.ErrInactiveAccount)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		Password: mustHash(t, "password1"), IsActive: true,
	})

	_, err := svc.Login(context.Background(), "alice@example.com", "wrongpass")
	assert.ErrorIs(t, err, domainErr.ErrPasswordMismatch)
}

func TestUpdatePassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		Password: mustHash(t, "oldpassword"), IsActive: true,
	})

	require.NoError(t, svc.UpdatePassword(context.Background(), "u1", "oldpassword", "newpassword"))
	assert.True(t, helpers.CompareHashAndPassword(repo.users["u1"].Password, "newpassword"))
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.UpdatePassword(context.Background(), "ghost", "oldpassword", "newpassword")
	assert.ErrorIs(t, err, domainErr.ErrUnauthorized)
}

func TestUpdatePasswordWrongOld(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com",
		Password: mustHash(t, "oldpassword"), IsActive: true,
	})

	err := svc.UpdatePassword(context.Background(), "u1", "wrongold", "newpassword")
	assert.ErrorIs(t, err, domainErr.ErrOldPasswordMismatch)
	assert.True(t, helpers.CompareHashAndPassword(repo.users["u1"].Password, "oldpassword"))
}

func TestForgotPassword(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{ID: "u1", Email: "alice@example.com", Name: "Alice", IsActive: true})

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))

	u := repo.users["u1"]
	assert.NotEmpty(t, u.ForgotPasswordCode)
	assert.True(t, u.ResetAllowed)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "reset_password", mail.sent[0].Template)
	assert.Equal(t, "Prestige Metals - Reset Password", mail.sent[0].Subject)
	resetURL, _ := mail.sent[0].Data["ResetURL"].(string)
	assert.Contains(t, resetURL, "u1")
	assert.Contains(t, resetURL, u.ForgotPasswordCode)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, mail := newTestService(t)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domainErr.ErrInvalidEmail)
	assert.Empty(t, mail.sent)
}

func TestForgotPasswordSupersedesPriorCode(t *testing.T) {
	svc, repo, mail := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", IsActive: true,
		ForgotPasswordCode: "old-code", ResetAllowed: true,
	})

	require.NoError(t, svc.ForgotPassword(context.Background(), "alice@example.com"))
	assert.NotEqual(t, "old-code", repo.users["u1"].ForgotPasswordCode)
	assert.Len(t, mail.sent, 1)
}

func TestSetPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", Name: "Alice", IsActive: true,
		ForgotPasswordCode: "code-abc", ResetAllowed: true,
	})

	res, err := svc.SetPassword(context.Background(), "u1", "code-abc", "newpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	u := repo.users["u1"]
	assert.True(t, helpers.CompareHashAndPassword(u.Password, "newpassword"))
	assert.Empty(t, u.ForgotPasswordCode)
	assert.False(t, u.ResetAllowed)
}

func TestSetPasswordSingleUse(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", IsActive: true,
		ForgotPasswordCode: "code-abc", ResetAllowed: true,
	})

	_, err := svc.SetPassword(context.Background(), "u1", "code-abc", "newpassword")
	require.NoError(t, err)

	_, err = svc.SetPassword(context.Background(), "u1", "code-abc", "anotherpass")
	assert.ErrorIs(t, err, domainErr.ErrUserNotFound, "consumed code no longer matches")
}

func TestSetPasswordWrongCode(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", IsActive: true,
		ForgotPasswordCode: "code-abc", ResetAllowed: true,
	})

	_, err := svc.SetPassword(context.Background(), "u1", "wrong-code", "newpassword")
	assert.ErrorIs(t, err, domainErr.ErrUserNotFound)
}

func TestSetPasswordGateClosed(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, entity.User{
		ID: "u1", Email: "alice@example.com", IsActive: true,
		ForgotPasswordCode: "code-abc", ResetAllowed: false,
	})

	_, err := svc.SetPassword(context.Background(), "u1", "code-abc", "newpassword")
	assert.ErrorIs(t, err, domainErr.ErrResetNotAllowed)
}
