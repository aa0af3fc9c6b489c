package qr

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
)

type Linker interface {
	QR(ctx context.Context) linker.Result
}

// QR
// @Summary     Generate a QR login code
// @Description Starts a QR login and returns the first QR code as a PNG data URL. Credentials are sent to the account once it is scanned.
// @Tags        Session
// @Produce     json
// @Success     200 {object} linker.QRResponse
// @Failure     408 {object} router.CodeBody
// @Failure     429 {object} router.CodeBody
// @Failure     500 {object} router.CodeBody
// @Failure     503 {object} router.CodeBody
// @Router      /qr [get]
func QR(l Linker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		res := l.QR(ctx)
		return router.ResponseJSON(c, res.Status, res.Body)
	}
}
