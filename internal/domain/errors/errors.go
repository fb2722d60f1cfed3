package errors

import "errors"

// Sentinel errors for the account lifecycle.
// The transport layer maps these to HTTP status codes; anything not listed
// here is treated as internal and never shown to the caller verbatim.

var (
	// Registration / identity
	ErrEmailTaken   = errors.New("email already exists, please use the login option to continue")
	ErrUserNotFound = errors.New("user data not found")

	// OTP challenge
	ErrAlreadyVerified = errors.New("account is already verified")
	ErrOTPExpired      = errors.New("otp expired")
	ErrOTPMismatch     = errors.New("otp doesn't match")

	// Login. ErrUnknownEmail deliberately classifies as a 400 rather than a
	// 404, matching the public API this service replaces.
	ErrUnknownEmail     = errors.New("user not exists for this email")
	ErrInactiveAccount  = errors.New("user is not active")
	ErrPasswordMismatch = errors.New("password not matched")

	// Password change / reset
	ErrUnauthorized        = errors.New("unauthorized access")
	ErrOldPasswordMismatch = errors.New("old password not matched")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrResetNotAllowed     = errors.New("password cannot be reset")
)
