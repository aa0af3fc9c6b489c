package linker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/ledger"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/session"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

type outcome string

const (
	outcomeRelayed     outcome = "relayed"
	outcomeRelayFailed outcome = "relay_failed"
	outcomeLoggedOut   outcome = "logged_out"
	outcomeFailed      outcome = "failed"
	outcomeTimeout     outcome = "timeout"
	outcomeCancelled   outcome = "cancelled"
)

const ledgerWriteTimeout = 5 * time.Second

type attempt struct {
	linker   *Linker
	id       string
	dir      string
	phone    string
	strategy strategy
	resp     *Responder
	release  func()
	started  time.Time
	log      *logrus.Entry

	conn    whatsapp.Conn
	updates <-chan whatsapp.ConnectionUpdate
	relayed bool
}

func (a *attempt) run(ctx context.Context) {
	defer a.linker.wg.Done()
	defer a.release()

	a.record(func(ctx context.Context, store ledger.Store) error {
		return store.Begin(ctx, ledger.Attempt{
			ID:        a.id,
			Method:    string(a.strategy.method()),
			SessionID: filepath.Base(a.dir),
			Phone:     a.maskedPhone(),
			StartedAt: a.started,
		})
	})

	result := outcomeFailed
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("Linking attempt panicked")
			result = outcomeFailed
		}
		a.finish(result)
	}()
	result = a.loop(ctx)
}

func (a *attempt) loop(parent context.Context) outcome {
	ctx, cancel := context.WithTimeout(parent, a.linker.opts.LinkTimeout)
	defer cancel()
	defer a.dropConn()

	var hardTimeout <-chan time.Time
	if d := a.strategy.hardTimeout(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		hardTimeout = timer.C
	}

	var redial, cleanup <-chan time.Time
	if o, done := a.connect(ctx, &redial); done {
		return o
	}

	for {
		select {
		case <-ctx.Done():
			if cleanup != nil {
				return a.relayOutcome()
			}
			return a.expired(parent)

		case <-hardTimeout:
			hardTimeout = nil
			if a.resp.Commit(http.StatusRequestTimeout, router.CodeBody{Code: a.strategy.timeoutMessage()}) {
				a.log.Warn("No login token received before timeout")
				return outcomeTimeout
			}

		case <-redial:
			redial = nil
			if o, done := a.connect(ctx, &redial); done {
				return o
			}

		case <-cleanup:
			return a.relayOutcome()

		case u := <-a.updates:
			switch {
			case len(u.QR) > 0:
				if o, done := a.strategy.onQR(ctx, a, u.QR); done {
					return o
				}

			case u.Connection == whatsapp.StateOpen:
				a.log.Info("Connection open, relaying credentials")
				a.strategy.onOpen()
				a.notify(EventLinked, 0, "")
				a.relay(ctx)
				// Later updates from this connection are irrelevant
				a.updates = nil
				cleanup = time.After(a.strategy.cleanupDelay())

			case u.Connection == whatsapp.StateClose:
				a.dropConn()
				if o, done := a.closed(u, &redial); done {
					return o
				}
			}
		}
	}
}

// connect dials a new connection; dial failures count as a 503 close
func (a *attempt) connect(ctx context.Context, redial *<-chan time.Time) (outcome, bool) {
	conn, err := a.linker.dialer.Dial(ctx, a.dir, whatsapp.DialOptions{LogLevel: a.strategy.logLevel()})
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		a.logError(err, "Failed to connect")
		return a.closed(whatsapp.ConnectionUpdate{
			Connection: whatsapp.StateClose,
			StatusCode: whatsapp.StatusUnavailable,
			Err:        err,
		}, redial)
	}
	a.conn = conn
	a.updates = conn.Updates()
	return "", false
}

func (a *attempt) closed(u whatsapp.ConnectionUpdate, redial *<-chan time.Time) (outcome, bool) {
	entry := a.log.WithField("status", u.StatusCode)
	if u.Err != nil {
		entry = entry.WithError(u.Err)
	}

	if u.StatusCode == whatsapp.StatusLoggedOut {
		entry.Warn("Connection closed: logged out")
		a.notify(EventLoggedOut, u.StatusCode, errString(u.Err))
		return outcomeLoggedOut, true
	}

	action, delay := a.strategy.onClose(u.StatusCode)
	switch action {
	case closeRetry:
		entry.Info(fmt.Sprintf("Connection closed, reconnecting in %s", delay))
		*redial = time.After(delay)
	case closeGiveUp:
		entry.Warn("Connection closed, no reconnect attempts left")
		a.resp.Commit(http.StatusServiceUnavailable, router.CodeBody{Code: MsgReconnectExhausted})
		return outcomeFailed, true
	default:
		entry.Info("Connection closed")
	}
	return "", false
}

func (a *attempt) expired(parent context.Context) outcome {
	if parent.Err() != nil {
		a.resp.Commit(http.StatusServiceUnavailable, router.CodeBody{Code: MsgUnavailable})
		a.log.Info("Linking attempt cancelled")
		return outcomeCancelled
	}
	if a.resp.Commit(http.StatusRequestTimeout, router.CodeBody{Code: a.strategy.timeoutMessage()}) {
		a.log.Warn("Linking attempt timed out before a response was sent")
	} else {
		a.log.Warn("Linking attempt timed out")
	}
	return outcomeTimeout
}

func (a *attempt) relay(ctx context.Context) {
	blob, err := session.ReadCreds(a.dir)
	if err != nil {
		a.log.WithError(err).Error("Failed to read session credentials")
		return
	}

	cfg := a.linker.opts.Relay
	id, quoted, err := whatsapp.SendCredentials(ctx, a.conn, cfg, blob)
	if err != nil {
		a.logError(err, "Failed to relay session credentials")
		return
	}
	a.relayed = true

	if err = whatsapp.SendDescription(ctx, a.conn, cfg, id, quoted); err != nil {
		a.logError(err, "Failed to send session description")
	}
	a.log.Info("Session credentials relayed")
	a.notify(EventRelayed, 0, "")
}

func (a *attempt) relayOutcome() outcome {
	if a.relayed {
		return outcomeRelayed
	}
	return outcomeRelayFailed
}

func (a *attempt) dropConn() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.updates = nil
}

// finish runs once per attempt, whatever ended it
func (a *attempt) finish(result outcome) {
	a.dropConn()
	a.resp.Commit(http.StatusServiceUnavailable, router.CodeBody{Code: MsgUnavailable})

	if removed, err := session.Remove(a.dir); err != nil {
		a.log.WithError(err).Error("Failed to remove session directory")
	} else if removed {
		a.log.Debug("Session directory removed")
	}

	switch result {
	case outcomeFailed, outcomeRelayFailed, outcomeCancelled:
		a.notify(EventFailed, 0, string(result))
	case outcomeTimeout:
		a.notify(EventTimeout, http.StatusRequestTimeout, "")
	}

	a.record(func(ctx context.Context, store ledger.Store) error {
		return store.Finish(ctx, a.id, string(result), a.resp.Status(), a.linker.now())
	})
	a.log.WithField("outcome", result).Info("Linking attempt finished")
}

func (a *attempt) record(fn func(ctx context.Context, store ledger.Store) error) {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()
	if err := fn(ctx, a.linker.ledger); err != nil {
		a.log.WithError(err).Warn("Failed to write attempt ledger")
	}
}

func (a *attempt) notify(eventType string, status int, reason string) {
	a.linker.notifier.Notify(Event{
		Type:      eventType,
		AttemptID: a.id,
		SessionID: filepath.Base(a.dir),
		Method:    a.strategy.method(),
		Phone:     a.maskedPhone(),
		Status:    status,
		Reason:    reason,
		Timestamp: a.linker.now(),
	})
}

func (a *attempt) maskedPhone() string {
	if len(a.phone) == 0 {
		return ""
	}
	return log.MaskPhone(a.phone)
}

// logError keeps transient connectivity failures out of the error log
func (a *attempt) logError(err error, msg string) {
	if whatsapp.IsTransient(err) || errors.Is(err, context.Canceled) {
		a.log.WithError(err).Warn(msg)
		return
	}
	a.log.WithError(err).Error(msg)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
