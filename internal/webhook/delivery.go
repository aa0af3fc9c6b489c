package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
)

type Config struct {
	Enabled    bool
	Targets    []Target
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
	Timeout    time.Duration
	// AllowInsecure accepts plain HTTP and private hosts, for receivers on
	// the same network as the generator
	AllowInsecure bool
}

func LoadConfig() Config {
	secret := env.GetEnvStringOrDefault("WEBHOOK_SECRET", "")
	var events []EventType
	for _, evt := range env.GetEnvListOrDefault("WEBHOOK_EVENTS", nil) {
		events = append(events, EventType(evt))
	}

	var targets []Target
	for _, u := range env.GetEnvListOrDefault("WEBHOOK_URLS", nil) {
		targets = append(targets, Target{URL: u, Secret: secret, Events: events})
	}

	return Config{
		Enabled:    env.GetEnvBoolOrDefault("WEBHOOKS_ENABLED", true),
		Targets:    targets,
		Workers:    env.GetEnvIntOrDefault("WEBHOOK_WORKERS", 2),
		RetryLimit: env.GetEnvIntOrDefault("WEBHOOK_RETRY_LIMIT", 3),
		RetryDelay: env.GetEnvDurationOrDefault("WEBHOOK_RETRY_DELAY", 2*time.Second),
		Timeout:    env.GetEnvDurationOrDefault("WEBHOOK_TIMEOUT", 10*time.Second),

		AllowInsecure: env.GetEnvBoolOrDefault("WEBHOOK_ALLOW_INSECURE", false),
	}
}

type Engine struct {
	targets       []Target
	httpClient    *http.Client
	queue         chan *deliveryTask
	workers       int
	retryLimit    int
	retryDelay    time.Duration
	allowInsecure bool
	enabled       bool

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

type deliveryTask struct {
	target Target
	event  WebhookEvent
}

func NewEngine(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := &Engine{
		targets:       cfg.Targets,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		queue:         make(chan *deliveryTask, 1000),
		workers:       cfg.Workers,
		retryLimit:    cfg.RetryLimit,
		retryDelay:    cfg.RetryDelay,
		allowInsecure: cfg.AllowInsecure,
		enabled:       cfg.Enabled && len(cfg.Targets) > 0,
		ctx:           ctx,
		cancel:        cancel,
	}

	if engine.enabled {
		for i := 0; i < engine.workers; i++ {
			engine.wg.Add(1)
			go engine.worker()
		}
	}

	return engine
}

func (e *Engine) Enabled() bool {
	return e.enabled
}

func (e *Engine) Stats() Stats {
	return Stats{
		Targets:   len(e.targets),
		Delivered: e.delivered.Load(),
		Failed:    e.failed.Load(),
		Dropped:   e.dropped.Load(),
	}
}

// Shutdown stops accepting events and drains the queue. Deliveries still
// running when ctx ends are aborted.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.cancel()
		<-done
	}
	e.cancel()
}

// Notify implements linker.Notifier
func (e *Engine) Notify(evt linker.Event) {
	data := map[string]interface{}{
		"attempt_id": evt.AttemptID,
		"method":     string(evt.Method),
	}
	if len(evt.Phone) > 0 {
		data["phone"] = evt.Phone
	}
	if evt.Status != 0 {
		data["status"] = evt.Status
	}
	if len(evt.Reason) > 0 {
		data["reason"] = evt.Reason
	}

	e.Dispatch(WebhookEvent{
		EventType: EventType(evt.Type),
		SessionID: evt.SessionID,
		Timestamp: evt.Timestamp,
		Data:      data,
	})
}

func (e *Engine) Dispatch(event WebhookEvent) {
	if !e.enabled {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	dispatched := 0
	for _, target := range e.targets {
		if !e.shouldDispatch(target, event.EventType) {
			continue
		}
		select {
		case e.queue <- &deliveryTask{target: target, event: event}:
			dispatched++
		default:
			e.count(DeliveryDropped)
			log.Print(nil).WithField("event", event.EventType).WithField("delivery", DeliveryDropped).Warn("Webhook queue full, event dropped")
		}
	}

	if dispatched > 0 {
		log.Print(nil).WithField("event", event.EventType).Debug(fmt.Sprintf("Webhook event queued for %d target(s)", dispatched))
	}
}

func (e *Engine) shouldDispatch(target Target, eventType EventType) bool {
	if len(target.Events) == 0 {
		return true
	}
	for _, evt := range target.Events {
		if evt == eventType {
			return true
		}
	}
	return false
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for task := range e.queue {
		e.count(e.deliver(task))
	}
}

func (e *Engine) count(status DeliveryStatus) {
	switch status {
	case DeliverySuccess:
		e.delivered.Add(1)
	case DeliveryFailed:
		e.failed.Add(1)
	case DeliveryDropped:
		e.dropped.Add(1)
	}
}

func (e *Engine) deliver(task *deliveryTask) DeliveryStatus {
	entry := log.Print(nil).WithField("event", task.event.EventType).WithField("target", task.target.URL)

	if err := e.validateURL(task.target.URL); err != nil {
		entry.WithError(err).WithField("delivery", DeliveryFailed).Warn("Webhook target rejected")
		return DeliveryFailed
	}

	payload, err := json.Marshal(task.event)
	if err != nil {
		entry.WithError(err).WithField("delivery", DeliveryFailed).Error("Failed to encode webhook event")
		return DeliveryFailed
	}

	signature := generateSignature(payload, task.target.Secret)

	var lastErr error
	for attempt := 1; attempt <= e.retryLimit; attempt++ {
		req, err := http.NewRequestWithContext(e.ctx, http.MethodPost, task.target.URL, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", signature)
		req.Header.Set("X-Hub-Signature-256", signature)
		req.Header.Set("X-Webhook-Event", string(task.event.EventType))
		req.Header.Set("User-Agent", "WhatsApp-Session-Generator/1.0")

		resp, err := e.httpClient.Do(req)
		if err == nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				entry.WithField("attempt", attempt).WithField("delivery", DeliverySuccess).Debug("Webhook delivered")
				return DeliverySuccess
			}
			err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
		lastErr = err

		if attempt < e.retryLimit && !e.sleep(time.Duration(attempt)*e.retryDelay) {
			break
		}
	}

	entry.WithError(lastErr).WithField("delivery", DeliveryFailed).Warn(fmt.Sprintf("Webhook delivery failed after %d attempt(s)", e.retryLimit))
	return DeliveryFailed
}

func (e *Engine) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func generateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (e *Engine) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if e.allowInsecure {
		return nil
	}

	if u.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs are allowed")
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || strings.HasPrefix(host, "192.168.") || strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "172.") {
		return fmt.Errorf("private/local network URLs are not allowed")
	}

	return nil
}
