package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: HttpErrorHandler})
}

func decodeCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var body CodeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body %s is not a code body: %v", raw, err)
	}
	return body.Code
}

func TestResponseCode(t *testing.T) {
	app := newTestApp()
	app.Get("/bad", func(c *fiber.Ctx) error {
		return ResponseCode(c, http.StatusBadRequest, "Invalid phone number.")
	})
	app.Get("/empty", func(c *fiber.Ctx) error {
		return ResponseCode(c, http.StatusServiceUnavailable, "")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/bad", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest || decodeCode(t, resp) != "Invalid phone number." {
		t.Errorf("unexpected /bad response %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/empty", nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeCode(t, resp); got != "Service Unavailable" {
		t.Errorf("empty message = %q", got)
	}
}

func TestHttpErrorHandlerUsesFiberStatus(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if decodeCode(t, resp) == "" {
		t.Error("empty error message")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	app := newTestApp()
	app.Use(RecoveryMiddleware())
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := decodeCode(t, resp); got != "Internal Server Error" {
		t.Errorf("code = %q", got)
	}
}

func TestHttpRealIPAndRequestID(t *testing.T) {
	app := newTestApp()
	app.Use(HttpRealIP(), HttpRequestID())
	app.Get("/ip", func(c *fiber.Ctx) error {
		return c.SendString(ClientIP(c) + "|" + c.Locals("request_id").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "203.0.113.7|req-1" {
		t.Errorf("body = %q", body)
	}
	if resp.Header.Get("X-Request-ID") != "req-1" {
		t.Error("request id not echoed")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ip", nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Header.Get("X-Request-ID")) != 36 {
		t.Errorf("generated request id = %q", resp.Header.Get("X-Request-ID"))
	}
}

func TestHttpRateLimit(t *testing.T) {
	app := newTestApp()
	app.Use(HttpRealIP())
	app.Get("/qr", HttpRateLimit(1, 2, "slow down"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	call := func(ip string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/qr", nil)
		req.Header.Set("X-Real-IP", ip)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	for i := 0; i < 2; i++ {
		if resp := call("198.51.100.1"); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d within burst got %d", i, resp.StatusCode)
		}
	}
	resp := call("198.51.100.1")
	if resp.StatusCode != http.StatusTooManyRequests || decodeCode(t, resp) != "slow down" {
		t.Errorf("over limit status = %d", resp.StatusCode)
	}
	if resp := call("198.51.100.2"); resp.StatusCode != http.StatusOK {
		t.Errorf("other client limited: %d", resp.StatusCode)
	}
}

func TestHttpRateLimitDisabled(t *testing.T) {
	app := newTestApp()
	app.Get("/", HttpRateLimit(0, 0, ""), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil || resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: %v %v", i, resp, err)
		}
	}
}

func TestParseBodyLimit(t *testing.T) {
	tests := map[string]int{
		"":     8 * 1024 * 1024,
		"512K": 512 * 1024,
		"2m":   2 * 1024 * 1024,
		"1G":   1024 * 1024 * 1024,
		"100":  100,
		"-1M":  8 * 1024 * 1024,
		"lots": 8 * 1024 * 1024,
	}
	for in, want := range tests {
		if got := parseBodyLimit(in); got != want {
			t.Errorf("parseBodyLimit(%q) = %d, want %d", in, got, want)
		}
	}
}
