package router

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func HttpRealIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		xForwardedFor := c.Get(http.CanonicalHeaderKey("X-Forwarded-For"))
		if xForwardedFor != "" {
			parts := strings.Split(xForwardedFor, ",")
			if len(parts) > 0 {
				c.Locals("remote_ip", strings.TrimSpace(parts[0]))
			}
		} else {
			xRealIP := c.Get(http.CanonicalHeaderKey("X-Real-IP"))
			if xRealIP != "" {
				c.Locals("remote_ip", strings.TrimSpace(xRealIP))
			}
		}
		return c.Next()
	}
}

// HttpRequestID keeps an incoming X-Request-ID or assigns a new one
func HttpRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Locals("request_id", rid)
		c.Set(fiber.HeaderXRequestID, rid)
		return c.Next()
	}
}

// ClientIP prefers the address resolved by HttpRealIP
func ClientIP(c *fiber.Ctx) string {
	if ip, ok := c.Locals("remote_ip").(string); ok && ip != "" {
		return ip
	}
	return c.IP()
}
