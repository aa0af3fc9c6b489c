package linker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/ledger"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/session"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

type Method string

const (
	MethodPairing Method = "pairing"
	MethodQR      Method = "qr"
)

type Options struct {
	PairRoot string
	QRRoot   string

	// LinkTimeout bounds the whole life of an attempt, relay included
	LinkTimeout time.Duration

	PairCleanupDelay      time.Duration
	PairReconnectAttempts int
	PairBackoffBase       time.Duration
	PairBackoffMax        time.Duration
	PairLogLevel          string

	QRTimeout           time.Duration
	QRCleanupDelay      time.Duration
	QRReconnectAttempts int
	QRReconnectDelay    time.Duration
	QRPrintTerminal     bool
	QRLogLevel          string

	Relay whatsapp.RelayConfig
}

func LoadOptions() Options {
	return Options{
		PairRoot:    env.GetEnvStringOrDefault("SESSION_PAIR_ROOT", "pair_sessions"),
		QRRoot:      env.GetEnvStringOrDefault("SESSION_QR_ROOT", "qr_sessions"),
		LinkTimeout: env.GetEnvDurationOrDefault("WHATSAPP_LINK_TIMEOUT", 3*time.Minute),

		PairCleanupDelay:      env.GetEnvDurationOrDefault("WHATSAPP_PAIR_CLEANUP_DELAY", time.Second),
		PairReconnectAttempts: env.GetEnvIntOrDefault("WHATSAPP_PAIR_RECONNECT_ATTEMPTS", 5),
		PairBackoffBase:       env.GetEnvDurationOrDefault("WHATSAPP_PAIR_RECONNECT_BACKOFF_BASE", 2*time.Second),
		PairBackoffMax:        env.GetEnvDurationOrDefault("WHATSAPP_PAIR_RECONNECT_BACKOFF_MAX", 30*time.Second),
		PairLogLevel:          env.GetEnvStringOrDefault("WHATSAPP_PAIR_LOG_LEVEL", "fatal"),

		QRTimeout:           env.GetEnvDurationOrDefault("WHATSAPP_QR_TIMEOUT", 30*time.Second),
		QRCleanupDelay:      env.GetEnvDurationOrDefault("WHATSAPP_QR_CLEANUP_DELAY", 15*time.Second),
		QRReconnectAttempts: env.GetEnvIntOrDefault("WHATSAPP_QR_RECONNECT_ATTEMPTS", 3),
		QRReconnectDelay:    env.GetEnvDurationOrDefault("WHATSAPP_QR_RECONNECT_DELAY", 2*time.Second),
		QRPrintTerminal:     env.GetEnvBoolOrDefault("WHATSAPP_QR_PRINT_TERMINAL", false),
		QRLogLevel:          env.GetEnvStringOrDefault("WHATSAPP_QR_LOG_LEVEL", "silent"),

		Relay: whatsapp.LoadRelayConfig(),
	}
}

// Linker runs linking attempts. Every attempt lives in its own goroutine
// bound to the Linker's context, so cancelling that context stops them all.
type Linker struct {
	ctx      context.Context
	dialer   whatsapp.Dialer
	opts     Options
	registry *session.Registry
	notifier Notifier
	ledger   ledger.Store

	wg  sync.WaitGroup
	now func() time.Time
}

func New(ctx context.Context, dialer whatsapp.Dialer, opts Options, notifier Notifier, store ledger.Store) *Linker {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if store == nil {
		store = ledger.Nop{}
	}
	return &Linker{
		ctx:      ctx,
		dialer:   dialer,
		opts:     opts,
		registry: session.NewRegistry(),
		notifier: notifier,
		ledger:   store,
		now:      time.Now,
	}
}

func (l *Linker) Options() Options {
	return l.opts
}

// Sweep removes session directories older than maxAge from both roots,
// skipping those owned by a running attempt. New attempts cannot claim a
// directory until the sweep is done.
func (l *Linker) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	total := 0
	var errs []error
	l.registry.Exclusive(func(held func(string) bool) {
		for _, root := range []string{l.opts.PairRoot, l.opts.QRRoot} {
			removed, err := session.Sweep(root, maxAge, now, held)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", root, err))
			}
			total += removed
		}
	})
	return total, errors.Join(errs...)
}

// Active is the number of attempts still running
func (l *Linker) Active() int {
	return l.registry.Len()
}

// Wait blocks until every attempt has finished its cleanup
func (l *Linker) Wait() {
	l.wg.Wait()
}

// Pair starts a pairing-code attempt for an already normalized number and
// waits for its first committed result.
func (l *Linker) Pair(ctx context.Context, phone string) Result {
	dir := filepath.Join(l.opts.PairRoot, phone)
	resp, err := l.start(dir, phone, newPairStrategy(l.opts))
	if err != nil {
		return l.startFailure(err, phone)
	}
	return l.await(ctx, resp)
}

// QR starts a QR attempt in a freshly named directory and waits for its
// first committed result.
func (l *Linker) QR(ctx context.Context) Result {
	dir := filepath.Join(l.opts.QRRoot, session.NewQRName(l.now()))
	resp, err := l.start(dir, "", newQRStrategy(l.opts))
	if err != nil {
		return l.startFailure(err, "")
	}
	return l.await(ctx, resp)
}

func (l *Linker) startFailure(err error, phone string) Result {
	if errors.Is(err, session.ErrClaimed) {
		log.Print(nil).Warn("Pairing already in progress for " + log.MaskPhone(phone))
		return Result{Status: http.StatusConflict, Body: router.CodeBody{Code: MsgPairingInProgress}}
	}
	log.Print(nil).WithError(err).Error("Failed to start linking attempt")
	return Result{Status: http.StatusServiceUnavailable, Body: router.CodeBody{Code: MsgUnavailable}}
}

func (l *Linker) await(ctx context.Context, resp *Responder) Result {
	res, err := resp.Wait(ctx)
	if err != nil {
		return Result{Status: http.StatusServiceUnavailable, Body: router.CodeBody{Code: MsgUnavailable}}
	}
	return res
}

func (l *Linker) start(dir string, phone string, strat strategy) (*Responder, error) {
	release, err := l.registry.Claim(dir)
	if err != nil {
		return nil, err
	}
	if err = session.EnsureRoot(filepath.Dir(dir)); err != nil {
		release()
		return nil, err
	}
	if err = session.Prepare(dir); err != nil {
		release()
		return nil, err
	}

	a := &attempt{
		linker:   l,
		id:       uuid.NewString(),
		dir:      dir,
		phone:    phone,
		strategy: strat,
		resp:     NewResponder(),
		release:  release,
		started:  l.now(),
	}
	a.log = log.Session(filepath.Base(dir), string(strat.method()))
	if len(phone) > 0 {
		a.log = a.log.WithField("phone", log.MaskPhone(phone))
	}

	l.wg.Add(1)
	go a.run(l.ctx)
	return a.resp, nil
}
