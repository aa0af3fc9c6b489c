package whatsapp

import (
	"context"
	"errors"

	"go.mau.fi/whatsmeow"
)

var transientErrors = []error{
	whatsmeow.ErrIQTimedOut,
	whatsmeow.ErrIQDisconnected,
	whatsmeow.ErrNotConnected,
	whatsmeow.ErrMessageTimedOut,
	whatsmeow.ErrIQRateOverLimit,
	whatsmeow.ErrIQServiceUnavailable,
	context.DeadlineExceeded,
}

// IsTransient reports whether err is a connectivity or timeout failure that
// is expected while a socket churns and should not be logged as an error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range transientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
