package helpers

import (
	"crypto/rand"
	"math/big"
	"time"
)

// OTP helpers

const (
	otpMin = 100000
	otpMax = 999999
)

// GenOTPCode generates a secure random 6-digit OTP code in [100000, 999999].
func GenOTPCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return 0, err
	}
	return otpMin + int(n.Int64()), nil
}

// OTPWindowOpen reports whether an OTP challenge is still valid at now.
// The zero/epoch expiry used for "no challenge outstanding" is always closed.
// Callers check the window before comparing codes so an expired-but-matching
// code is reported as expired, not mismatched.
func OTPWindowOpen(expiry, now time.Time) bool {
	return !expiry.IsZero() && now.Before(expiry)
}
