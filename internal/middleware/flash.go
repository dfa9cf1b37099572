package middleware

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie is the cookie carrying notices across a redirect.
const FlashCookie = "flash"

// Flash categories.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

const (
	flashesLocal = "flashes"
	pendingLocal = "pendingFlashes"
)

// ExpireCookie deletes the root-path cookie name in the browser. The
// deletion must carry the same path the cookie was set with, otherwise it
// only applies below the current request path.
func ExpireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   c.Protocol() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Flash is a one-shot notice shown on the next rendered view.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Flashes loads notices left by the previous response into locals.
func Flashes() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Cookies(FlashCookie); raw != "" {
			var loaded []Flash
			if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
				_ = json.Unmarshal(data, &loaded)
			}
			c.Locals(flashesLocal, loaded)
			// Consumed by this request unless a handler queues new notices.
			ExpireCookie(c, FlashCookie)
		}
		return c.Next()
	}
}

// AddFlash queues a notice. It is delivered with the current view if one is
// rendered, otherwise on the next request (typically after a redirect).
func AddFlash(c *fiber.Ctx, category, message string) {
	pending, _ := c.Locals(pendingLocal).([]Flash)
	pending = append(pending, Flash{Category: category, Message: message})
	c.Locals(pendingLocal, pending)

	data, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ConsumeFlashes returns every notice for the current view and makes sure
// none of them is shown again.
func ConsumeFlashes(c *fiber.Ctx) []Flash {
	loaded, _ := c.Locals(flashesLocal).([]Flash)
	pending, _ := c.Locals(pendingLocal).([]Flash)

	out := make([]Flash, 0, len(loaded)+len(pending))
	out = append(out, loaded...)
	out = append(out, pending...)

	c.Locals(flashesLocal, nil)
	c.Locals(pendingLocal, nil)
	if len(pending) > 0 {
		ExpireCookie(c, FlashCookie)
	}
	return out
}
