package qr

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
	calls  int
	result linker.Result
}

func (s *stubLinker) QR(context.Context) linker.Result {
	s.calls++
	return s.result
}

func TestQR(t *testing.T) {
	tests := []struct {
		name   string
		result linker.Result
		field  string
		want   string
	}{
		{
			name:   "issued",
			result: linker.Result{Status: http.StatusOK, Body: linker.QRResponse{QR: "data:image/png;base64,AAAA", Message: linker.MsgQRGenerated}},
			field:  "qr",
			want:   "data:image/png;base64,AAAA",
		},
		{
			name:   "timeout",
			result: linker.Result{Status: http.StatusRequestTimeout, Body: router.CodeBody{Code: linker.MsgQRTimeout}},
			field:  "code",
			want:   linker.MsgQRTimeout,
		},
		{
			name:   "unavailable",
			result: linker.Result{Status: http.StatusServiceUnavailable, Body: router.CodeBody{Code: linker.MsgUnavailable}},
			field:  "code",
			want:   linker.MsgUnavailable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubLinker{result: tc.result}
			app := fiber.New()
			app.Get("/qr", QR(stub))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/qr", nil))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.result.Status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.result.Status)
			}
			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body[tc.field] != tc.want {
				t.Errorf("%s = %v, want %q", tc.field, body[tc.field], tc.want)
			}
			if stub.calls != 1 {
				t.Errorf("linker called %d times", stub.calls)
			}
		})
	}
}
