package linker

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

type closeAction int

const (
	// closeWait leaves the attempt idle until one of its timers fires
	closeWait closeAction = iota
	closeRetry
	closeGiveUp
)

// strategy is what differs between pairing-code and QR attempts
type strategy interface {
	method() Method
	logLevel() string
	// hardTimeout answers 408 when nothing was committed in time, zero disables it
	hardTimeout() time.Duration
	timeoutMessage() string
	cleanupDelay() time.Duration
	onQR(ctx context.Context, a *attempt, token string) (outcome, bool)
	onClose(code int) (closeAction, time.Duration)
	onOpen()
}

type pairStrategy struct {
	opts      Options
	requested bool
	backoff   backoff.BackOff
}

func newPairStrategy(opts Options) *pairStrategy {
	return &pairStrategy{opts: opts, backoff: newPairBackoff(opts)}
}

func newPairBackoff(opts Options) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = opts.PairBackoffBase
	exp.MaxInterval = opts.PairBackoffMax
	exp.MaxElapsedTime = 0
	exp.Reset()

	attempts := opts.PairReconnectAttempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithMaxRetries(exp, uint64(attempts))
}

func (s *pairStrategy) method() Method              { return MethodPairing }
func (s *pairStrategy) logLevel() string            { return s.opts.PairLogLevel }
func (s *pairStrategy) hardTimeout() time.Duration  { return 0 }
func (s *pairStrategy) timeoutMessage() string      { return MsgPairingTimeout }
func (s *pairStrategy) cleanupDelay() time.Duration { return s.opts.PairCleanupDelay }

func (s *pairStrategy) onOpen() {
	s.backoff.Reset()
}

// onQR treats the first QR token as the sign that the socket is ready to
// request a pairing code.
func (s *pairStrategy) onQR(ctx context.Context, a *attempt, _ string) (outcome, bool) {
	if s.requested || a.conn.Registered() || a.resp.Committed() {
		return "", false
	}
	s.requested = true

	code, err := a.conn.RequestPairingCode(ctx, a.phone)
	if err != nil {
		a.logError(err, "Failed to request pairing code")
		a.resp.Commit(http.StatusServiceUnavailable, router.CodeBody{Code: MsgPairingFailed})
		return outcomeFailed, true
	}

	code = FormatPairingCode(code)
	if a.resp.Commit(http.StatusOK, router.CodeBody{Code: code}) {
		a.log.Info("Pairing code issued")
		a.notify(EventCodeIssued, http.StatusOK, "")
	}
	return "", false
}

func (s *pairStrategy) onClose(int) (closeAction, time.Duration) {
	next := s.backoff.NextBackOff()
	if next == backoff.Stop {
		return closeGiveUp, 0
	}
	return closeRetry, next
}

type qrStrategy struct {
	opts     Options
	handled  bool
	attempts int
}

func newQRStrategy(opts Options) *qrStrategy {
	return &qrStrategy{opts: opts}
}

func (s *qrStrategy) method() Method              { return MethodQR }
func (s *qrStrategy) logLevel() string            { return s.opts.QRLogLevel }
func (s *qrStrategy) hardTimeout() time.Duration  { return s.opts.QRTimeout }
func (s *qrStrategy) timeoutMessage() string      { return MsgQRTimeout }
func (s *qrStrategy) cleanupDelay() time.Duration { return s.opts.QRCleanupDelay }

func (s *qrStrategy) onOpen() {
	s.attempts = 0
}

func (s *qrStrategy) onQR(_ context.Context, a *attempt, token string) (outcome, bool) {
	if s.handled || a.resp.Committed() {
		return "", false
	}
	s.handled = true

	dataURL, err := whatsapp.RenderQRDataURL(token)
	if err != nil {
		a.log.WithError(err).Error("Failed to render QR code")
		a.resp.Commit(http.StatusInternalServerError, router.CodeBody{Code: MsgQRFailed})
		return outcomeFailed, true
	}
	if s.opts.QRPrintTerminal {
		whatsapp.PrintQR(token, os.Stdout)
	}

	if a.resp.Commit(http.StatusOK, newQRResponse(dataURL)) {
		a.log.Info("QR code issued")
		a.notify(EventQRIssued, http.StatusOK, "")
	}
	return "", false
}

// onClose reconnects only after a restart request or a service outage,
// other reasons are left to the hard timeout.
func (s *qrStrategy) onClose(code int) (closeAction, time.Duration) {
	if code != whatsapp.StatusRestartRequired && code != whatsapp.StatusUnavailable {
		return closeWait, 0
	}
	s.attempts++
	if s.attempts > s.opts.QRReconnectAttempts {
		return closeGiveUp, 0
	}
	return closeRetry, s.opts.QRReconnectDelay
}
