package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LastCoderBoy/finice-auth/internal/domain"
	"github.com/LastCoderBoy/finice-auth/internal/dto"
	"github.com/LastCoderBoy/finice-auth/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthService implements service.AuthService for middleware tests;
// only VerifyAccess is exercised
type stubAuthService struct {
	verifyFn func(ctx context.Context, accessToken string) (*domain.Claims, error)
}

func (s *stubAuthService) Register(ctx context.Context, req *dto.RegisterRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Login(ctx context.Context, req *dto.LoginRequest, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*dto.AuthResponse, *domain.RefreshToken, error) {
	return nil, nil, nil
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken, accessToken string) {}

func (s *stubAuthService) VerifyAccess(ctx context.Context, accessToken string) (*domain.Claims, error) {
	return s.verifyFn(ctx, accessToken)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	return nil
}

func (s *stubAuthService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	return nil, nil
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	return nil, nil
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, tokenValue string) error { return nil }

func (s *stubAuthService) ResendVerification(ctx context.Context, email string) error { return nil }

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error { return nil }

func (s *stubAuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	return nil
}

func newAuthRouter(verifyFn func(ctx context.Context, accessToken string) (*domain.Claims, error)) *gin.Engine {
	r := gin.New()
	r.Use(RequireAuth(&stubAuthService{verifyFn: verifyFn}))
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	return r
}

func TestRequireAuth_ValidToken(t *testing.T) {
	r := newAuthRouter(func(ctx context.Context, accessToken string) (*domain.Claims, error) {
		if accessToken != "good-token" {
			t.Errorf("accessToken = %s, want good-token", accessToken)
		}
		return &domain.Claims{UserID: "u-1", Username: "alice", Roles: []string{"USER"}}, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "u-1" {
		t.Errorf("user id = %s, want u-1", w.Body.String())
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r := newAuthRouter(func(ctx context.Context, accessToken string) (*domain.Claims, error) {
		t.Error("VerifyAccess should not be called without a header")
		return nil, nil
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	for _, header := range []string{"good-token", "Basic abc", "Bearer "} {
		r := newAuthRouter(func(ctx context.Context, accessToken string) (*domain.Claims, error) {
			t.Errorf("VerifyAccess should not be called for header %q", header)
			return nil, nil
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestRequireAuth_RejectedToken(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"expired", service.ErrTokenExpired},
		{"revoked", service.ErrTokenRevoked},
		{"invalid", service.ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(func(ctx context.Context, accessToken string) (*domain.Claims, error) {
				return nil, tc.err
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer bad-token")
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestRequireAuth_SetsIdentity(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(&stubAuthService{verifyFn: func(ctx context.Context, accessToken string) (*domain.Claims, error) {
		return &domain.Claims{UserID: "u-1", Username: "alice", Email: "alice@x.com", Roles: []string{"USER", "ADMIN"}}, nil
	}}))
	r.GET("/protected", func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			t.Fatal("identity missing from context")
		}
		if identity.Username() != "alice" || len(identity.Roles()) != 2 {
			t.Errorf("unexpected identity: %s %v", identity.Username(), identity.Roles())
		}
		if CurrentAccessToken(c) != "tok" {
			t.Errorf("access token = %s, want tok", CurrentAccessToken(c))
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
