package webhook

import (
	"time"
)

type EventType string

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryDropped DeliveryStatus = "dropped"
)

// Target is one receiver of lifecycle notifications
type Target struct {
	URL    string
	Secret string
	// Events limits what is sent to this target, empty means everything
	Events []EventType
}

type WebhookEvent struct {
	EventType EventType              `json:"event_type"`
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Stats counts delivery results since the engine started
type Stats struct {
	Targets   int   `json:"targets"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}
