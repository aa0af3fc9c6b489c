package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/auth"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"

	ctlAdmin "github.com/gdbrns/go-whatsapp-session-generator/internal/admin"
	ctlIndex "github.com/gdbrns/go-whatsapp-session-generator/internal/index"
	ctlPair "github.com/gdbrns/go-whatsapp-session-generator/internal/pair"
	ctlQR "github.com/gdbrns/go-whatsapp-session-generator/internal/qr"
	typSession "github.com/gdbrns/go-whatsapp-session-generator/internal/types"
	"github.com/gdbrns/go-whatsapp-session-generator/internal/webhook"
)

// Linker is what the HTTP layer needs from the linking service
type Linker interface {
	ctlPair.Linker
	ctlQR.Linker
	SessionSweeper
	Active() int
}

type Services struct {
	Linker   Linker
	Webhooks *webhook.Engine
	Versions *pkgWhatsApp.VersionRefresher
}

func (s Services) status(withWebhooks bool) typSession.ResponseIndex {
	res := typSession.ResponseIndex{ActiveAttempts: s.Linker.Active()}
	if s.Versions != nil {
		st := s.Versions.Status()
		res.WAVersion = st.CurrentVersion.String()
		if st.LastRefreshed != nil {
			res.LastRefreshed = st.LastRefreshed.UTC().Format(time.RFC3339)
		}
	}
	if withWebhooks && s.Webhooks != nil && s.Webhooks.Enabled() {
		stats := s.Webhooks.Stats()
		res.Webhooks = &stats
	}
	return res
}

func Routes(app *fiber.App, svc Services) {
	// Configure OpenAPI / Swagger
	specURL := router.BaseURL + "/docs/swagger.json"
	swaggerHandler := swagger.New(swagger.Config{
		URL: specURL,
	})

	// Route for Index
	// ---------------------------------------------
	index := ctlIndex.Index(func() typSession.ResponseIndex { return svc.status(false) })
	if router.BaseURL == "" {
		app.Get("/", index)
	} else {
		app.Get(router.BaseURL, index)
		app.Get(router.BaseURL+"/", index)
	}

	// Route for OpenAPI / Swagger
	// ---------------------------------------------
	docsCache := router.HttpCacheStatic(router.CacheTTLSeconds)
	app.Get(router.BaseURL+"/docs/swagger.json", docsCache, func(c *fiber.Ctx) error {
		return c.SendFile("docs/swagger.json")
	})
	app.Get(router.BaseURL+"/docs/*", docsCache, swaggerHandler)

	// Route for Session Linking
	// ---------------------------------------------
	limiter := router.HttpRateLimit(router.RateLimitPerMinute, router.RateLimitBurst, linker.MsgTooManyRequests)
	app.Get(router.BaseURL+"/pair", limiter, ctlPair.Pair(svc.Linker))
	app.Get(router.BaseURL+"/qr", limiter, ctlQR.QR(svc.Linker))

	// Route for Admin, mounted only when ADMIN_SECRET_KEY is set
	// ---------------------------------------------
	if auth.AdminEnabled() {
		adminMiddleware := auth.AdminAuth()
		app.Get(router.BaseURL+"/admin/stats", adminMiddleware, ctlIndex.Index(func() typSession.ResponseIndex { return svc.status(true) }))
		app.Post(router.BaseURL+"/admin/sessions/sweep", adminMiddleware, ctlAdmin.SweepSessions(func() int {
			return SweepSessions(svc.Linker, sessionMaxAge(), time.Now())
		}))
		if svc.Versions != nil {
			app.Get(router.BaseURL+"/admin/whatsapp/version", adminMiddleware, ctlAdmin.GetWhatsAppWebVersion(svc.Versions))
			app.Post(router.BaseURL+"/admin/whatsapp/version/refresh", adminMiddleware, ctlAdmin.RefreshWhatsAppWebVersion(svc.Versions))
		}
	}
}
