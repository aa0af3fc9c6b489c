package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/session"
)

type ConnectionState string

const (
	StateOpen  ConnectionState = "open"
	StateClose ConnectionState = "close"
)

// Disconnect status codes reported on close updates
const (
	StatusLoggedOut          = 401
	StatusTempBanned         = 402
	StatusClientOutdated     = 405
	StatusConnectionReplaced = 440
	StatusBadSession         = 500
	StatusUnavailable        = 503
	StatusRestartRequired    = 515
)

// ConnectionUpdate is one step of the connection lifecycle. QR updates carry
// only QR; open and close updates carry Connection (and StatusCode on close).
type ConnectionUpdate struct {
	Connection ConnectionState
	QR         string
	StatusCode int
	Err        error
}

// Conn is one live connection bound to one session directory
type Conn interface {
	Updates() <-chan ConnectionUpdate
	Registered() bool
	Self() string
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	SendToSelf(ctx context.Context, msg *waE2E.Message) (string, error)
	Close()
}

// Dialer opens connections backed by a session directory
type Dialer interface {
	Dial(ctx context.Context, dir string, opts DialOptions) (Conn, error)
}

type DialOptions struct {
	// LogLevel for the protocol library: debug, info, warn, error, fatal or silent
	LogLevel string
}

// Connector dials whatsmeow clients with a per-directory SQLite store
type Connector struct {
	ProxyURL     string
	DisplayName  string
	QueryTimeout time.Duration
}

var devicePropsOnce sync.Once

func NewConnector() *Connector {
	return &Connector{
		ProxyURL:     env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),
		DisplayName:  "Chrome (" + runtime.GOOS + ")",
		QueryTimeout: env.GetEnvDurationOrDefault("WHATSAPP_PAIR_CODE_TIMEOUT", 60*time.Second),
	}
}

func applyDeviceProps() {
	devicePropsOnce.Do(func() {
		store.DeviceProps.Os = proto.String(runtime.GOOS)
		store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
		store.DeviceProps.RequireFullSync = proto.Bool(false)
	})
}

func storeDSN(dir string) string {
	return "file:" + filepath.Join(dir, session.StoreFile) + "?_foreign_keys=on"
}

func (c *Connector) Dial(ctx context.Context, dir string, opts DialOptions) (Conn, error) {
	applyDeviceProps()

	db, err := sql.Open("sqlite3", storeDSN(dir))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", log.WhatsApp("Database", opts.LogLevel))
	if err = container.Upgrade(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrade session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load session device: %w", err)
	}

	client := whatsmeow.NewClient(device, log.WhatsApp("Client", opts.LogLevel))
	if len(c.ProxyURL) > 0 {
		client.SetProxyAddress(c.ProxyURL)
	}
	// Reconnect policy belongs to the caller
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true

	conn := &waConn{
		client:       client,
		db:           db,
		dir:          dir,
		displayName:  c.DisplayName,
		queryTimeout: c.QueryTimeout,
		updates:      make(chan ConnectionUpdate, 64),
		done:         make(chan struct{}),
	}
	conn.setSelf(device.ID)
	client.AddEventHandler(conn.handleEvent)

	if err = client.Connect(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	return conn, nil
}

type waConn struct {
	client       *whatsmeow.Client
	db           *sql.DB
	dir          string
	displayName  string
	queryTimeout time.Duration

	// self is copied out of the device store on the event goroutine,
	// whatsmeow writes Store.ID without a lock during pairing
	selfMu sync.RWMutex
	self   *types.JID

	updates   chan ConnectionUpdate
	done      chan struct{}
	closeOnce sync.Once
}

func (c *waConn) setSelf(id *types.JID) {
	c.selfMu.Lock()
	defer c.selfMu.Unlock()
	if id == nil {
		c.self = nil
		return
	}
	jid := id.ToNonAD()
	c.self = &jid
}

func (c *waConn) selfJID() (types.JID, bool) {
	c.selfMu.RLock()
	defer c.selfMu.RUnlock()
	if c.self == nil {
		return types.EmptyJID, false
	}
	return *c.self, true
}

func (c *waConn) Updates() <-chan ConnectionUpdate {
	return c.updates
}

func (c *waConn) Registered() bool {
	_, ok := c.selfJID()
	return ok
}

func (c *waConn) Self() string {
	jid, ok := c.selfJID()
	if !ok {
		return ""
	}
	return jid.String()
}

func (c *waConn) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}
	return c.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, c.displayName)
}

func (c *waConn) SendToSelf(ctx context.Context, msg *waE2E.Message) (string, error) {
	jid, ok := c.selfJID()
	if !ok {
		return "", whatsmeow.ErrNotLoggedIn
	}
	resp, err := c.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *waConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.client.Disconnect()
		_ = c.db.Close()
	})
}

func (c *waConn) emit(update ConnectionUpdate) {
	select {
	case c.updates <- update:
	case <-c.done:
	}
}

func (c *waConn) closed(code int, err error) {
	c.emit(ConnectionUpdate{Connection: StateClose, StatusCode: code, Err: err})
}

func (c *waConn) saveCreds() {
	blob, err := MarshalCreds(c.client.Store)
	if err != nil {
		log.Print(nil).WithError(err).Error("Failed to serialize session credentials")
		return
	}
	if err = session.WriteCreds(c.dir, blob); err != nil {
		log.Print(nil).WithError(err).Error("Failed to save session credentials")
	}
}

func (c *waConn) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.QR:
		if len(e.Codes) > 0 {
			c.emit(ConnectionUpdate{QR: e.Codes[0]})
		}
	case *events.PairSuccess:
		log.Print(nil).WithField("platform", e.Platform).Info("New login via pairing: " + log.MaskPhone(e.ID.User))
		c.setSelf(&e.ID)
		c.saveCreds()
	case *events.Connected:
		c.setSelf(c.client.Store.ID)
		c.saveCreds()
		c.emit(ConnectionUpdate{Connection: StateOpen})
	case *events.LoggedOut:
		c.closed(StatusLoggedOut, fmt.Errorf("logged out: %s", e.Reason.String()))
	case *events.ConnectFailure:
		code := int(e.Reason)
		if e.Reason.IsLoggedOut() {
			code = StatusLoggedOut
		}
		c.closed(code, fmt.Errorf("connect failure %d: %s", int(e.Reason), e.Message))
	case *events.StreamError:
		code, err := strconv.Atoi(strings.TrimSpace(e.Code))
		if err != nil {
			code = StatusBadSession
		}
		c.closed(code, fmt.Errorf("stream errored (%s)", e.Code))
	case *events.StreamReplaced:
		c.closed(StatusConnectionReplaced, errors.New("stream replaced by another connection"))
	case *events.PairError:
		c.closed(StatusBadSession, e.Error)
	case *events.TemporaryBan:
		c.closed(StatusTempBanned, errors.New(e.String()))
	case *events.ClientOutdated:
		c.closed(StatusClientOutdated, ErrWAVersionOutdated)
	case *events.Disconnected:
		// whatsmeow reports a 503 stream error only through this event
		c.closed(StatusUnavailable, errors.New("connection closed by server"))
	case *events.KeepAliveTimeout:
		log.Print(nil).Warn(fmt.Sprintf("Keepalive timeout, errors=%d, lastSuccess=%s", e.ErrorCount, e.LastSuccess.Format(time.RFC3339)))
	}
}
