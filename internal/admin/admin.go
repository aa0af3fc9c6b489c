package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

type ResponseRefresh struct {
	pkgWhatsApp.VersionStatus
	Version   string `json:"version"`
	Refreshed bool   `json:"refreshed"`
}

type ResponseSweep struct {
	Removed int `json:"removed"`
}

// GetWhatsAppWebVersion
// @Summary     Get WhatsApp Web Version
// @Description Show the WhatsApp Web version new connections announce (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Success     200 {object} router.Response
// @Failure     401 {object} router.CodeBody
// @Router      /admin/whatsapp/version [get]
func GetWhatsAppWebVersion(versions *pkgWhatsApp.VersionRefresher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := versions.Status()
		return router.ResponseSuccessWithData(c, "WhatsApp Web version", ResponseRefresh{
			VersionStatus: status,
			Version:       status.CurrentVersion.String(),
		})
	}
}

// RefreshWhatsAppWebVersion
// @Summary     Refresh WhatsApp Web Version
// @Description Fetch the latest WhatsApp Web version for new connections (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Param       force query bool false "Ignore the minimum refresh interval"
// @Success     200 {object} router.Response
// @Failure     401 {object} router.CodeBody
// @Failure     502 {object} router.CodeBody
// @Router      /admin/whatsapp/version/refresh [post]
func RefreshWhatsAppWebVersion(versions *pkgWhatsApp.VersionRefresher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		force, _ := strconv.ParseBool(c.Query("force"))

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		status, refreshed, err := versions.Refresh(ctx, force)
		if err != nil {
			return router.ResponseCode(c, http.StatusBadGateway, "WhatsApp Web version refresh failed: "+err.Error())
		}
		return router.ResponseSuccessWithData(c, "WhatsApp Web version refresh completed", ResponseRefresh{
			VersionStatus: status,
			Version:       status.CurrentVersion.String(),
			Refreshed:     refreshed,
		})
	}
}

// SweepSessions
// @Summary     Sweep Session Directories
// @Description Remove abandoned session directories now instead of waiting for the cron (Admin only)
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret header string true "Admin secret key"
// @Success     200 {object} router.Response
// @Failure     401 {object} router.CodeBody
// @Router      /admin/sessions/sweep [post]
func SweepSessions(sweep func() int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return router.ResponseSuccessWithData(c, "Session sweep completed", ResponseSweep{Removed: sweep()})
	}
}
