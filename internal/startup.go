package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/session"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

// Startup prepares the session roots and relay assets before any attempt runs.
// Directories left by a previous process cannot belong to a live attempt and
// are removed regardless of age.
func Startup(ctx context.Context, opts *linker.Options, versions *pkgWhatsApp.VersionRefresher) {
	log.Print(nil).Info("Running Startup Tasks")

	for _, root := range []string{opts.PairRoot, opts.QRRoot} {
		if err := session.EnsureRoot(root); err != nil {
			log.Print(nil).WithError(err).Fatal("Failed to prepare session root")
		}
		removed, err := session.Sweep(root, 0, time.Now(), nil)
		if err != nil {
			log.Print(nil).WithError(err).WithField("root", root).Warn("Startup sweep incomplete")
		}
		if removed > 0 {
			log.Print(nil).WithField("root", root).WithField("removed", removed).Info("Removed leftover session directories")
		}
	}

	if versions != nil && env.GetEnvBoolOrDefault("WHATSAPP_REFRESH_WAVERSION_ON_STARTUP", true) {
		refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		status, _, err := versions.Refresh(refreshCtx, true)
		cancel()
		if err != nil {
			log.Print(nil).WithField("version", status.CurrentVersion.String()).Warn("WA Web version refresh failed, using built-in version: " + err.Error())
		} else {
			log.Print(nil).WithField("version", status.CurrentVersion.String()).Info("WA Web version refreshed")
		}
	}

	if len(opts.Relay.PreviewThumbnail) == 0 && opts.Relay.PreviewThumbnailURL != "" {
		thumbCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		thumb, err := pkgWhatsApp.FetchThumbnail(thumbCtx, &http.Client{Timeout: 15 * time.Second}, opts.Relay.PreviewThumbnailURL)
		cancel()
		if err != nil {
			log.Print(nil).WithError(err).Warn("Link preview thumbnail unavailable, description is sent without it")
			return
		}
		opts.Relay.PreviewThumbnail = thumb
		log.Print(nil).WithField("bytes", len(thumb)).Info("Link preview thumbnail loaded")
	}
}
