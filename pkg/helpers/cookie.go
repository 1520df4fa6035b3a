package helpers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName mirrors the bearer token for browser clients.
const SessionCookieName = "session_token"

// StateCookieName holds the OAuth state between login and callback.
const StateCookieName = "oauth_state"

// StateTTL bounds how long a login attempt may take at the provider.
const StateTTL = 10 * time.Minute

type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

func (m *Manager) SetSession(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Secure, true)
}

func (m *Manager) SetState(c *gin.Context, state string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookieName, state, int(StateTTL.Seconds()), "/", m.Domain, m.Secure, true)
}

// CheckState reports whether got matches the state cookie of this browser.
func (m *Manager) CheckState(c *gin.Context, got string) bool {
	want, err := c.Cookie(StateCookieName)
	if err != nil || want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func (m *Manager) ClearState(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookieName, "", -1, "/", m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
