package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
)

// SessionContextKey is where the router's session middleware stores the *auth.Session.
const SessionContextKey = "session"

// SessionCookie configures the cookie carrying the session token for the HTML pages.
type SessionCookie struct {
	Name   string
	Secure bool
}

// CurrentSession returns the request's session, or an anonymous one.
func CurrentSession(c echo.Context) *auth.Session {
	if sess, ok := c.Get(SessionContextKey).(*auth.Session); ok && sess != nil {
		return sess
	}
	return &auth.Session{}
}

func (sc SessionCookie) set(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sc.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sc SessionCookie) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sc.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
