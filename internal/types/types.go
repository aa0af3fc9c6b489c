package types

import "github.com/gdbrns/go-whatsapp-session-generator/internal/webhook"

type RequestPair struct {
	Number string `query:"number"`
}

type ResponseIndex struct {
	ActiveAttempts int            `json:"active_attempts"`
	WAVersion      string         `json:"wa_version"`
	LastRefreshed  string         `json:"wa_version_refreshed_at,omitempty"`
	Webhooks       *webhook.Stats `json:"webhooks,omitempty"`
}
