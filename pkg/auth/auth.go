package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
)

// AdminSecretKey for admin API endpoints (/admin/*)
var AdminSecretKey string

func init() {
	AdminSecretKey = env.GetEnvStringOrDefault("ADMIN_SECRET_KEY", "")
}

// AdminEnabled reports whether admin routes should be mounted at all
func AdminEnabled() bool {
	return len(AdminSecretKey) > 0
}

// AdminAuth validates the X-Admin-Secret header for admin endpoints
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseCode(c, http.StatusUnauthorized, "Missing X-Admin-Secret header")
		}

		if AdminSecretKey == "" {
			return router.ResponseCode(c, http.StatusInternalServerError, "Admin secret key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) != 1 {
			return router.ResponseCode(c, http.StatusUnauthorized, "Invalid admin secret")
		}

		return c.Next()
	}
}
