package templates

import (
	"strconv"
	"time"

	"github.com/prestigemetals/account-service/config"
)

// Option pattern
type Option func(*EmailData)

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }
func WithUserID(id string) Option    { return func(d *EmailData) { d.UserID = id } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		d.ExpiresAtText = t.UTC().Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills the common fields from config, then applies Options.
func NewBaseEmailData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		CompanyName: cfg.CompanyName,
		LogoURL:     cfg.LogoURL,
		SupportURL:  cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewActivationData builds the payload for the activation/resend OTP email.
func NewActivationData(cfg *config.Config, name, email string, otp int, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, name, email, opts...)
	d.Code = strconv.Itoa(otp)
	return ToMap(d)
}

// NewResetPasswordData builds the payload for the reset-password email; the
// reset link carries the user id and the single-use code.
func NewResetPasswordData(cfg *config.Config, name, email, userID, code string, opts ...Option) map[string]any {
	opts = append([]Option{
		WithUserID(userID),
		WithResetURL(cfg.FrontendURL + "/setPassword?id=" + userID + "&code=" + code),
	}, opts...)
	d := NewBaseEmailData(cfg, name, email, opts...)
	d.Code = code
	return ToMap(d)
}
