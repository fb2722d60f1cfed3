package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds a bcrypt hash; plaintext never reaches the store.
//
// OTP/OTPExpiry and ForgotPasswordCode/ResetAllowed are two independent
// challenge windows: the first gates activation, the second gates SetPassword.
// Zero values (0, epoch, "") mean no challenge is outstanding.
type User struct {
	ID                 string
	Email              string
	Password           string
	Name               string
	OTP                int
	OTPExpiry          time.Time
	ForgotPasswordCode string
	ResetAllowed       bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
