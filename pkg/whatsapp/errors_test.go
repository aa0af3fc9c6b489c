package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mau.fi/whatsmeow"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"iq timeout", whatsmeow.ErrIQTimedOut, true},
		{"wrapped not connected", fmt.Errorf("pair: %w", whatsmeow.ErrNotConnected), true},
		{"message timeout", whatsmeow.ErrMessageTimedOut, true},
		{"deadline", fmt.Errorf("relay: %w", context.DeadlineExceeded), true},
		{"rate limited", whatsmeow.ErrIQRateOverLimit, true},
		{"not logged in", whatsmeow.ErrNotLoggedIn, false},
		{"plain", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
