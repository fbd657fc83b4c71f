package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/LastCoderBoy/finice-auth/internal/dto"
	"github.com/LastCoderBoy/finice-auth/internal/service"
	"github.com/LastCoderBoy/finice-auth/pkg/response"
)

// EmailHandler handles single-use email-token HTTP requests
type EmailHandler struct {
	authService service.AuthService
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(authService service.AuthService) *EmailHandler {
	return &EmailHandler{authService: authService}
}

// VerifyEmail redeems a verification token from the emailed link
// GET /api/v1/auth/verify-email?token=...
func (h *EmailHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "Token is required")
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), token); err != nil {
		h.writeTokenError(c, err)
		return
	}

	response.OK(c, "Email verified successfully", nil)
}

// ResendVerification issues a fresh verification token, invalidating
// any earlier one
// POST /api/v1/auth/resend-verification
func (h *EmailHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ResendVerification(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrResourceNotFound):
			response.NotFound(c, "No account found for this email")
		case errors.Is(err, service.ErrValidation):
			response.BadRequest(c, "Email address is already verified")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, "Verification email sent", nil)
}

// ForgotPassword starts the reset flow. The response never reveals
// whether the address exists.
// POST /api/v1/auth/forgot-password
func (h *EmailHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword redeems a reset token and sets a new password
// POST /api/v1/auth/reset-password
func (h *EmailHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := req.Validate(); !valid {
		response.BadRequest(c, msg)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		h.writeTokenError(c, err)
		return
	}

	response.OK(c, "Password has been reset", nil)
}

func (h *EmailHandler) writeTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrResourceNotFound):
		response.NotFound(c, "Token not found")
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		response.BadRequest(c, "Token has already been used")
	case errors.Is(err, service.ErrTokenExpired):
		response.Unauthorized(c, "Token has expired")
	default:
		response.InternalError(c)
	}
}
