package linker

import "time"

const (
	EventCodeIssued = "session.code_issued"
	EventQRIssued   = "session.qr_issued"
	EventLinked     = "session.linked"
	EventRelayed    = "session.relayed"
	EventLoggedOut  = "session.logged_out"
	EventFailed     = "session.failed"
	EventTimeout    = "session.timeout"
)

// Event describes a lifecycle step of one linking attempt. It never carries
// credentials and the phone number is masked.
type Event struct {
	Type      string    `json:"event"`
	AttemptID string    `json:"attempt_id"`
	SessionID string    `json:"session_id"`
	Method    Method    `json:"method"`
	Phone     string    `json:"phone,omitempty"`
	Status    int       `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(evt Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
