package index

import (
	"github.com/gofiber/fiber/v2"

	typSession "github.com/gdbrns/go-whatsapp-session-generator/internal/types"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
)

// Index
// @Summary     Show The Status of The Server
// @Description Get The Server Status
// @Tags        Root
// @Produce     json
// @Success     200
// @Router      / [get]
func Index(status func() typSession.ResponseIndex) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return router.ResponseSuccessWithData(c, "Go WhatsApp Session Generator is running", status())
	}
}
