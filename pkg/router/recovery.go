package router

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
)

// RecoveryMiddleware converts panics into a 500 {code} response.
// It must be registered before application routes.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Print(c).WithField("request_id", c.Locals("request_id")).Error(fmt.Sprintf("panic recovered: %v", rec))
				err = c.Status(http.StatusInternalServerError).JSON(CodeBody{Code: http.StatusText(http.StatusInternalServerError)})
			}
		}()
		return c.Next()
	}
}
