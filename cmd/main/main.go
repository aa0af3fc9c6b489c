package main

// @title Go WhatsApp Session Generator
// @version 1.0.0
// @description Generates WhatsApp Web session credentials through a pairing code or a QR code and delivers them to the linked account's own chat

// @contact.name gdbrns
// @contact.url https://github.com/gdbrns/go-whatsapp-session-generator

// @license.name MIT
// @license.url https://github.com/gdbrns/go-whatsapp-session-generator/blob/main/LICENSE

// @host localhost:7001
// @BasePath /

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/ledger"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"

	"github.com/gdbrns/go-whatsapp-session-generator/internal"
	"github.com/gdbrns/go-whatsapp-session-generator/internal/webhook"
)

type Server struct {
	Address string
	Port    string
}

func main() {
	var err error

	log.SetLevel(env.GetEnvStringOrDefault("LOG_LEVEL", "info"))

	// Root context for every linking attempt, cancelled on shutdown
	ctxRoot, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Attempt Ledger
	ctxLedger, cancelLedger := context.WithTimeout(ctxRoot, 15*time.Second)
	store, err := ledger.Open(ctxLedger)
	cancelLedger()
	if err != nil {
		log.Print(nil).WithError(err).Warn("Attempt ledger unavailable, continuing without it")
		store = ledger.Nop{}
	}

	// Initialize Webhook Delivery
	webhooks := webhook.NewEngine(webhook.LoadConfig())

	// Initialize Linker
	versions := pkgWhatsApp.NewVersionRefresher()
	opts := linker.LoadOptions()
	internal.Startup(ctxRoot, &opts, versions)
	lnk := linker.New(ctxRoot, pkgWhatsApp.NewConnector(), opts, webhooks, store)

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler:   router.HttpErrorHandler,
		BodyLimit:      router.BodyLimitBytes(),
		ReadBufferSize: 8192,
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
		Next: func(c *fiber.Ctx) bool {
			return strings.Contains(c.Path(), "docs")
		},
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app, internal.Services{
		Linker:   lnk,
		Webhooks: webhooks,
		Versions: versions,
	})

	// Running Routines Tasks
	internal.Routines(c, lnk, versions)

	// Get Server Configuration with defaults
	var serverConfig Server

	// SERVER_ADDRESS: default "0.0.0.0" (all interfaces)
	serverConfig.Address = env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")

	// SERVER_PORT: default "7001"
	serverConfig.Port = env.GetEnvStringOrDefault("SERVER_PORT", "7001")

	// Start Server
	go func() {
		if err := app.Listen(serverConfig.Address + ":" + serverConfig.Port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Abort running attempts so waiting requests get their answer
	cancelRoot()

	// Try To Shutdown Server
	err = app.ShutdownWithContext(ctxShutdown)
	if err != nil {
		log.Print(nil).Error(err.Error())
	}

	// Attempts remove their directories before returning
	lnk.Wait()

	// Try To Shutdown Webhooks, Ledger and Cron
	webhooks.Shutdown(ctxShutdown)
	if err = store.Close(); err != nil {
		log.Print(nil).WithError(err).Warn("Failed to close attempt ledger")
	}
	<-c.Stop().Done()
}
