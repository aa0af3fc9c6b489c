package internal

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	pkgWhatsApp "github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

// SessionSweeper clears abandoned session directories
type SessionSweeper interface {
	Sweep(maxAge time.Duration, now time.Time) (int, error)
}

func Routines(cron *cron.Cron, l SessionSweeper, versions *pkgWhatsApp.VersionRefresher) {
	log.Print(nil).Info("Running Routine Tasks")

	if env.GetEnvBoolOrDefault("SESSION_SWEEP_CRON_ENABLED", true) {
		spec := env.GetEnvStringOrDefault("SESSION_SWEEP_CRON_SPEC", "0 */5 * * * *")
		maxAge := sessionMaxAge()
		_, err := cron.AddFunc(spec, func() {
			SweepSessions(l, maxAge, time.Now())
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add session sweep cron job")
		} else {
			log.Print(nil).WithField("spec", spec).WithField("max_age", maxAge.String()).Info("Session sweep cron enabled")
		}
	}

	if versions != nil && env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false) {
		// robfig/cron with seconds field (6 parts). Default: daily at 03:00:00.
		spec := env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "0 0 3 * * *")
		force := env.GetEnvBoolOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_FORCE", false)
		_, err := cron.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			status, refreshed, err := versions.Refresh(ctx, force)
			versionStr := status.CurrentVersion.String()
			if err != nil {
				log.Print(nil).WithField("version", versionStr).WithField("force", force).Error("WA Web version refresh failed: " + err.Error())
				return
			}
			log.Print(nil).WithField("version", versionStr).WithField("refreshed", refreshed).WithField("force", force).Info("WA Web version refresh completed")
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", spec).WithField("force", force).Info("WA Web version refresh cron enabled")
		}
	}

	cron.Start()
}

// SweepSessions removes abandoned session directories older than maxAge.
// Directories owned by a running attempt are skipped.
func SweepSessions(l SessionSweeper, maxAge time.Duration, now time.Time) int {
	total, err := l.Sweep(maxAge, now)
	if err != nil {
		log.Print(nil).WithError(err).Warn("Session sweep incomplete")
	}
	if total > 0 {
		log.Print(nil).WithField("removed", total).Info("Swept abandoned session directories")
	}
	return total
}

func sessionMaxAge() time.Duration {
	return env.GetEnvDurationOrDefault("SESSION_MAX_AGE", 10*time.Minute)
}
