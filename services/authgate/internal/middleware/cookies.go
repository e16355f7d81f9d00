// services/authgate/internal/middleware/cookies.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookie    = "access_token"
	RefreshCookie   = "refresh_token"
	NewAccessHeader = "X-New-Access-Token"
)

// CookieConfig — атрибуты cookies с токенами.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	Path     string
}

// ParseSameSite разбирает lax | strict | none; пустая строка → lax.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown samesite mode %q", s)
	}
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	sameSite := c.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
}

// SetTokens выставляет пару cookies с max-age, равным TTL токенов.
func (c CookieConfig) SetTokens(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, c.cookie(AccessCookie, access, int(accessTTL.Seconds())))
	http.SetCookie(w, c.cookie(RefreshCookie, refresh, int(refreshTTL.Seconds())))
}

// ClearTokens истекает обе cookies.
func (c CookieConfig) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
