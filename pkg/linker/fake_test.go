package linker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/whatsapp"
)

type fakeConn struct {
	dir        string
	updates    chan whatsapp.ConnectionUpdate
	registered bool
	code       string
	codeErr    error
	sendErr    error
	panicky    bool

	mu         sync.Mutex
	sent       []*waE2E.Message
	pairPhones []string
	closed     bool
}

func (c *fakeConn) Updates() <-chan whatsapp.ConnectionUpdate { return c.updates }
func (c *fakeConn) Self() string                              { return "6281234567890@s.whatsapp.net" }

func (c *fakeConn) Registered() bool {
	if c.panicky {
		panic("store exploded")
	}
	return c.registered
}

func (c *fakeConn) RequestPairingCode(_ context.Context, phone string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairPhones = append(c.pairPhones, phone)
	return c.code, c.codeErr
}

func (c *fakeConn) SendToSelf(_ context.Context, msg *waE2E.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.sent = append(c.sent, msg)
	return fmt.Sprintf("MSG%d", len(c.sent)), nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) push(u whatsapp.ConnectionUpdate) {
	c.updates <- u
}

func (c *fakeConn) qr(token string) {
	c.push(whatsapp.ConnectionUpdate{QR: token})
}

func (c *fakeConn) open() {
	c.push(whatsapp.ConnectionUpdate{Connection: whatsapp.StateOpen})
}

func (c *fakeConn) close(code int) {
	c.push(whatsapp.ConnectionUpdate{Connection: whatsapp.StateClose, StatusCode: code})
}

func (c *fakeConn) sentMessages() []*waE2E.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*waE2E.Message(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	configure func(c *fakeConn)
	err       error
	dialed    chan *fakeConn

	mu    sync.Mutex
	dials int
	opts  []whatsapp.DialOptions
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dialed: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, dir string, opts whatsapp.DialOptions) (whatsapp.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.opts = append(d.opts, opts)
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{dir: dir, updates: make(chan whatsapp.ConnectionUpdate, 8), code: "abcd1234"}
	if d.configure != nil {
		d.configure(c)
	}
	d.dialed <- c
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(evt Event) {
	n.mu.Lock()
	n.events = append(n.events, evt)
	n.mu.Unlock()
}

func (n *recordingNotifier) has(eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, evt := range n.events {
		if evt.Type == eventType {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) all() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

func testOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	return Options{
		PairRoot:              filepath.Join(root, "pair_sessions"),
		QRRoot:                filepath.Join(root, "qr_sessions"),
		LinkTimeout:           5 * time.Second,
		PairCleanupDelay:      10 * time.Millisecond,
		PairReconnectAttempts: 2,
		PairBackoffBase:       5 * time.Millisecond,
		PairBackoffMax:        20 * time.Millisecond,
		PairLogLevel:          "fatal",
		QRTimeout:             2 * time.Second,
		QRCleanupDelay:        50 * time.Millisecond,
		QRReconnectAttempts:   3,
		QRReconnectDelay:      5 * time.Millisecond,
		QRLogLevel:            "silent",
		Relay: whatsapp.RelayConfig{
			Prefix:       "meta@=",
			Description:  "*Session generated!*",
			PreviewTitle: "Metaload",
		},
	}
}

func nextConn(t *testing.T, d *fakeDialer) *fakeConn {
	t.Helper()
	select {
	case c := <-d.dialed:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection was dialed")
		return nil
	}
}

func startPair(l *Linker, phone string) <-chan Result {
	ch := make(chan Result, 1)
	go func() { ch <- l.Pair(context.Background(), phone) }()
	return ch
}

func startQR(l *Linker) <-chan Result {
	ch := make(chan Result, 1)
	go func() { ch <- l.QR(context.Background()) }()
	return ch
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("no result committed")
		return Result{}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitAll(t *testing.T, l *Linker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("attempts did not finish")
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func codeOf(t *testing.T, res Result) string {
	t.Helper()
	body, ok := res.Body.(router.CodeBody)
	if !ok {
		t.Fatalf("body is %T, want router.CodeBody", res.Body)
	}
	return body.Code
}
