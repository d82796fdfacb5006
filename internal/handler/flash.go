package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/view"
)

const (
	flashCookieName = "flash"
	flashPendingKey = "flash.pending"

	flashSuccess = "success"
	flashDanger  = "danger"
	flashWarning = "warning"
)

// addFlash queues a message for the next rendered page, surviving one redirect.
func addFlash(c echo.Context, category, message string) {
	pending, _ := c.Get(flashPendingKey).([]view.Flash)
	pending = append(pending, view.Flash{Category: category, Message: message})
	c.Set(flashPendingKey, pending)

	payload, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlashes returns the messages carried in from the previous request plus
// any queued during this one, and expires the cookie.
func takeFlashes(c echo.Context) []view.Flash {
	var flashes []view.Flash
	cookie, err := c.Cookie(flashCookieName)
	if err == nil && cookie.Value != "" {
		if payload, err := base64.RawURLEncoding.DecodeString(cookie.Value); err == nil {
			_ = json.Unmarshal(payload, &flashes)
		}
	}
	pending, _ := c.Get(flashPendingKey).([]view.Flash)
	flashes = append(flashes, pending...)

	if len(flashes) > 0 || err == nil {
		c.Set(flashPendingKey, nil)
		c.SetCookie(&http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})
	}
	return flashes
}
