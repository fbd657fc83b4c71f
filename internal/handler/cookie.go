package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RefreshCookieName is the cookie carrying the opaque refresh token.
// The token travels only here, never in a JSON body.
const RefreshCookieName = "refreshToken"

// cookieManager writes and clears the refresh-token cookie
type cookieManager struct {
	ttl    time.Duration
	secure bool
}

func newCookieManager(ttl time.Duration, secure bool) *cookieManager {
	return &cookieManager{ttl: ttl, secure: secure}
}

func (m *cookieManager) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
}

func (m *cookieManager) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, "/", "", m.secure, true)
}
