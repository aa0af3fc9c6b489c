package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
)

var ErrWAVersionOutdated = errors.New("whatsapp client version is outdated")

type VersionStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  *time.Time               `json:"last_refreshed,omitempty"`
	LastError      string                   `json:"last_error,omitempty"`
}

// VersionFetcher returns the latest WhatsApp Web version
type VersionFetcher func(ctx context.Context, httpClient *http.Client) (*store.WAVersionContainer, error)

// VersionRefresher applies the latest WhatsApp Web version to new connections.
// Concurrent refreshes share one upstream request.
type VersionRefresher struct {
	MinInterval time.Duration
	Fetch       VersionFetcher
	HTTPClient  *http.Client

	group singleflight.Group

	mu          sync.RWMutex
	lastRefresh *time.Time
	lastError   string
}

func NewVersionRefresher() *VersionRefresher {
	return &VersionRefresher{
		MinInterval: env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", 10*time.Minute),
		Fetch:       whatsmeow.GetLatestVersion,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *VersionRefresher) Status() VersionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	if r.lastRefresh != nil {
		t := *r.lastRefresh
		last = &t
	}
	return VersionStatus{
		CurrentVersion: store.GetWAVersion(),
		LastRefreshed:  last,
		LastError:      r.lastError,
	}
}

func (r *VersionRefresher) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.lastRefresh = &now
	r.lastError = ""
	if err != nil {
		r.lastError = err.Error()
	}
}

// Refresh fetches and applies the latest version. Unless force is set, calls
// within MinInterval of the previous attempt are skipped and report false.
func (r *VersionRefresher) Refresh(ctx context.Context, force bool) (VersionStatus, bool, error) {
	if !force && r.MinInterval > 0 {
		r.mu.RLock()
		last := r.lastRefresh
		r.mu.RUnlock()
		if last != nil && time.Since(*last) < r.MinInterval {
			return r.Status(), false, nil
		}
	}

	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		latest, err := r.Fetch(ctx, r.HTTPClient)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err != nil {
			r.record(err)
			return nil, err
		}

		store.SetWAVersion(*latest)
		r.record(nil)
		return nil, nil
	})
	return r.Status(), true, err
}
