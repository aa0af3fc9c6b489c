package pair

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/linker"
	"github.com/gdbrns/go-whatsapp-session-generator/pkg/router"
)

type stubLinker struct {
	calls  []string
	result linker.Result
}

func (s *stubLinker) Pair(_ context.Context, phone string) linker.Result {
	s.calls = append(s.calls, phone)
	return s.result
}

func newApp(l Linker) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: router.HttpErrorHandler})
	app.Get("/pair", Pair(l))
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestPairRejectsInvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing", "/pair"},
		{"empty", "/pair?number="},
		{"letters only", "/pair?number=abc"},
		{"too short", "/pair?number=123"},
		{"unknown country", "/pair?number=9991234567"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubLinker{}
			resp, err := newApp(stub).Test(httptest.NewRequest(http.MethodGet, tc.query, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if got := decode(t, resp)["code"]; got != linker.MsgInvalidNumber {
				t.Errorf("code = %v, want %q", got, linker.MsgInvalidNumber)
			}
			if len(stub.calls) != 0 {
				t.Errorf("linker called for invalid number: %v", stub.calls)
			}
		})
	}
}

func TestPairNormalizesAndRelaysResult(t *testing.T) {
	stub := &stubLinker{result: linker.Result{Status: http.StatusOK, Body: router.CodeBody{Code: "ABCD-1234"}}}
	resp, err := newApp(stub).Test(httptest.NewRequest(http.MethodGet, "/pair?number=%2B1%20(201)%20555-0123", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := decode(t, resp)["code"]; got != "ABCD-1234" {
		t.Errorf("code = %v", got)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "12015550123" {
		t.Errorf("linker calls = %v, want [12015550123]", stub.calls)
	}
}

func TestPairPassesThroughFailureStatus(t *testing.T) {
	stub := &stubLinker{result: linker.Result{Status: http.StatusConflict, Body: router.CodeBody{Code: linker.MsgPairingInProgress}}}
	resp, err := newApp(stub).Test(httptest.NewRequest(http.MethodGet, "/pair?number=12015550123", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if got := decode(t, resp)["code"]; got != linker.MsgPairingInProgress {
		t.Errorf("code = %v", got)
	}
}
