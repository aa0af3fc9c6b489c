package pair

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	typSession "github.com/gdbrns/go-whatsapp-session-generator/internal/types"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/validation"
)

type Linker interface {
	Pair(ctx context.Context, phone string) linker.Result
}

// Pair
// @Summary     Generate a pairing code
// @Description Starts a pairing-code login for the number and returns the code to type on the phone. Credentials are sent to the account once pairing completes.
// @Tags        Session
// @Produce     json
// @Param       number query string true "Full international number, digits only"
// @Success     200 {object} router.CodeBody
// @Failure     400 {object} router.CodeBody
// @Failure     408 {object} router.CodeBody
// @Failure     409 {object} router.CodeBody
// @Failure     429 {object} router.CodeBody
// @Failure     503 {object} router.CodeBody
// @Router      /pair [get]
func Pair(l Linker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqPair typSession.RequestPair
		if err := c.QueryParser(&reqPair); err != nil {
			return router.ResponseCode(c, http.StatusBadRequest, linker.MsgInvalidNumber)
		}

		phone, err := validation.NormalizePhone(reqPair.Number)
		if err != nil {
			if !errors.Is(err, validation.ErrPhoneEmpty) {
				log.Print(c).WithError(err).Debug("Rejected phone number " + log.MaskPhone(validation.DigitsOnly(reqPair.Number)))
			}
			return router.ResponseCode(c, http.StatusBadRequest, linker.MsgInvalidNumber)
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		res := l.Pair(ctx, phone)
		return router.ResponseJSON(c, res.Status, res.Body)
	}
}
