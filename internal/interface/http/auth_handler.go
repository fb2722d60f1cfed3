package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prestigemetals/account-service/internal/application"
	domainErr "github.com/prestigemetals/account-service/internal/domain/errors"
	"github.com/prestigemetals/account-service/pkg/response"
	"github.com/prestigemetals/account-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type verifyOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   int    `json:"otp" binding:"required"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

type setPasswordRequest struct {
	ID       string `json:"id" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Password string `json:"password" binding:"required,pwd"`
}

// statusFor maps lifecycle errors to HTTP status codes. Login's unknown
// email is a 400 while VerifyOTP's is a 404; the asymmetry is part of the
// public API and kept on purpose.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErr.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, domainErr.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErr.ErrUnauthorized),
		errors.Is(err, domainErr.ErrInactiveAccount),
		errors.Is(err, domainErr.ErrOldPasswordMismatch),
		errors.Is(err, domainErr.ErrResetNotAllowed):
		return http.StatusUnauthorized
	case errors.Is(err, domainErr.ErrAlreadyVerified),
		errors.Is(err, domainErr.ErrOTPExpired),
		errors.Is(err, domainErr.ErrOTPMismatch),
		errors.Is(err, domainErr.ErrUnknownEmail),
		errors.Is(err, domainErr.ErrPasswordMismatch),
		errors.Is(err, domainErr.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the envelope for an operation error. Internal causes are
// logged and replaced with a generic message.
func (h *AuthHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.FullPath()).Error("operation failed")
		response.Error[any](c, status, "internal server error", nil)
		return
	}
	response.Error[any](c, status, err.Error(), nil)
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.Pending {
		response.Success[any](c, http.StatusOK, nil, "please check your email for the OTP or try again after it expires")
		return
	}
	response.Success[any](c, http.StatusCreated, nil, "please check your email for the OTP")
}

// Signin POST /api/auth/signin
func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "login successful")
}

// VerifyOtp POST /api/auth/verifyOtp
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var req verifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "otp verification successful")
}

// ResendOtp POST /api/auth/resendOtp
func (h *AuthHandler) ResendOtp(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusCreated, nil, "otp sent successfully")
}

// UpdatePassword POST /api/auth/updatePassword (auth required)
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	uid := c.GetString("userID")
	if uid == "" {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.UpdatePassword(c.Request.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password updated successfully")
}

// ForgotPassword POST /api/auth/forgotPassword
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "email sent successfully")
}

// SetPassword POST /api/auth/setPassword
func (h *AuthHandler) SetPassword(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.SetPassword(c.Request.Context(), req.ID, req.Code, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "password set successfully")
}
