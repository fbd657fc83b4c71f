package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LastCoderBoy/finice-auth/internal/dto"
	"github.com/LastCoderBoy/finice-auth/internal/middleware"
	"github.com/LastCoderBoy/finice-auth/internal/service"
	"github.com/LastCoderBoy/finice-auth/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
	cookies     *cookieManager
}

// NewAuthHandler creates a new AuthHandler. The refresh TTL drives the
// cookie Max-Age; secureCookies should be true outside development.
func NewAuthHandler(authService service.AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     newCookieManager(refreshTTL, secureCookies),
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidateEmail(); !valid {
		response.BadRequest(c, msg)
		return
	}
	if valid, msg := req.ValidatePassword(); !valid {
		response.BadRequest(c, msg)
		return
	}

	result, refresh, err := h.authService.Register(c.Request.Context(), &req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		if errors.Is(err, service.ErrDuplicateResource) {
			response.Conflict(c, "Username or email is already in use")
			return
		}
		if errors.Is(err, service.ErrValidation) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	h.cookies.set(c, refresh.Token)
	response.OK(c, "Registration successful", result)
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, refresh, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials):
			// wrapped failures carry lockout warning language worth surfacing
			msg := "Invalid username or password"
			if s := err.Error(); s != service.ErrBadCredentials.Error() {
				msg = s
			}
			response.BadRequest(c, msg)
		case errors.Is(err, service.ErrAccountLocked):
			response.Forbidden(c, "Account is locked. Try again later")
		case errors.Is(err, service.ErrAccountNotVerified):
			response.Forbidden(c, "Email address has not been verified")
		default:
			response.InternalError(c)
		}
		return
	}

	h.cookies.set(c, refresh.Token)
	response.OK(c, "Login successful", result)
}

// Refresh rotates the refresh-token cookie and mints a new access token
// POST /api/v1/auth/refresh-token
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(RefreshCookieName)

	result, rotated, err := h.authService.Refresh(c.Request.Context(), refreshToken, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			response.Unauthorized(c, "Refresh token has expired")
		case errors.Is(err, service.ErrTokenRevoked):
			response.Unauthorized(c, "Refresh token has been revoked")
		case errors.Is(err, service.ErrResourceNotFound):
			response.Unauthorized(c, "Invalid refresh token")
		case errors.Is(err, service.ErrAccountLocked):
			response.Forbidden(c, "Account is locked")
		default:
			response.InternalError(c)
		}
		return
	}

	h.cookies.set(c, rotated.Token)
	response.OK(c, "Token refreshed", result)
}

// Logout revokes the presented credentials. The cookie is always
// cleared, even when revocation fails server-side.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(RefreshCookieName)
	accessToken := bearerToken(c)

	h.authService.Logout(c.Request.Context(), refreshToken, accessToken)

	h.cookies.clear(c)
	response.OK(c, "Logged out", nil)
}

// Profile returns the authenticated user's profile
// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	result, err := h.authService.GetProfile(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrResourceNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, "Profile retrieved", result)
}

// Update applies a partial profile update
// PATCH /api/v1/auth/update
func (h *AuthHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := req.Validate(); !valid {
		response.BadRequest(c, msg)
		return
	}

	result, err := h.authService.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateResource):
			response.Conflict(c, "Username is already in use")
		case errors.Is(err, service.ErrResourceNotFound):
			response.NotFound(c, "User not found")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, "Profile updated", result)
}

// ChangePassword replaces the password and forces re-login everywhere
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if valid, msg := req.Validate(); !valid {
		response.BadRequest(c, msg)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials):
			response.BadRequest(c, "Current password is incorrect")
		case errors.Is(err, service.ErrValidation):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrResourceNotFound):
			response.NotFound(c, "User not found")
		default:
			response.InternalError(c)
		}
		return
	}

	// all refresh tokens are gone; the cookie must go too
	h.cookies.clear(c)
	response.OK(c, "Password changed successfully", nil)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if strings.HasPrefix(header, bearerPrefix) {
		return header[len(bearerPrefix):]
	}
	return ""
}
