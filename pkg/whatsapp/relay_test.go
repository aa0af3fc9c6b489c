package whatsapp

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
)

type recordingConn struct {
	sent    []*waE2E.Message
	failAt  int
	sendErr error
}

func (c *recordingConn) Updates() <-chan ConnectionUpdate { return nil }
func (c *recordingConn) Registered() bool                 { return true }
func (c *recordingConn) Self() string                     { return "6281234567890@s.whatsapp.net" }
func (c *recordingConn) Close()                           {}

func (c *recordingConn) RequestPairingCode(context.Context, string) (string, error) {
	return "", errors.New("not supported")
}

func (c *recordingConn) SendToSelf(_ context.Context, msg *waE2E.Message) (string, error) {
	c.sent = append(c.sent, msg)
	if c.failAt == len(c.sent) {
		return "", c.sendErr
	}
	return "MSG" + string(rune('0'+len(c.sent))), nil
}

func testRelayConfig() RelayConfig {
	return RelayConfig{
		Prefix:              "meta@=",
		Description:         "*Session generated!*",
		PreviewTitle:        "Metaload",
		PreviewThumbnailURL: "https://example.com/logo.png",
		PreviewSourceURL:    "https://example.com",
		PreviewThumbnail:    []byte{0xff, 0xd8},
	}
}

func TestCredentialMessage(t *testing.T) {
	msg := CredentialMessage("meta@=", []byte(`{"registered":true}`))
	text := msg.GetConversation()
	if !strings.HasPrefix(text, "meta@=") {
		t.Fatalf("credential text = %q", text)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(text, "meta@="))
	if err != nil || string(raw) != `{"registered":true}` {
		t.Errorf("payload = %q, %v", raw, err)
	}
}

func TestSendCredentialsThenDescription(t *testing.T) {
	conn := &recordingConn{}
	cfg := testRelayConfig()

	id, quoted, err := SendCredentials(context.Background(), conn, cfg, []byte("{}"))
	if err != nil {
		t.Fatalf("SendCredentials: %v", err)
	}
	if err := SendDescription(context.Background(), conn, cfg, id, quoted); err != nil {
		t.Fatalf("SendDescription: %v", err)
	}
	if len(conn.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(conn.sent))
	}

	ext := conn.sent[1].GetExtendedTextMessage()
	if ext.GetText() != cfg.Description {
		t.Errorf("description text = %q", ext.GetText())
	}
	ctxInfo := ext.GetContextInfo()
	if ctxInfo.GetStanzaID() != id {
		t.Errorf("quoted stanza = %q, want %q", ctxInfo.GetStanzaID(), id)
	}
	if ctxInfo.GetParticipant() != conn.Self() {
		t.Errorf("participant = %q", ctxInfo.GetParticipant())
	}
	if ctxInfo.GetQuotedMessage().GetConversation() != conn.sent[0].GetConversation() {
		t.Error("description does not quote the credential message")
	}
	ad := ctxInfo.GetExternalAdReply()
	if ad.GetTitle() != "Metaload" || ad.GetSourceURL() != "https://example.com" || !ad.GetRenderLargerThumbnail() {
		t.Errorf("link preview = %+v", ad)
	}
	if len(ad.GetThumbnail()) != 2 {
		t.Error("thumbnail bytes missing from preview")
	}
}

func TestSendCredentialsFailure(t *testing.T) {
	boom := errors.New("boom")
	conn := &recordingConn{failAt: 1, sendErr: boom}
	if _, _, err := SendCredentials(context.Background(), conn, testRelayConfig(), []byte("{}")); !errors.Is(err, boom) {
		t.Errorf("SendCredentials error = %v, want wrapped boom", err)
	}
}

func TestLoadRelayConfigDefaults(t *testing.T) {
	t.Setenv("RELAY_PREFIX", "")
	t.Setenv("RELAY_DESCRIPTION", `line one\nline two`)
	cfg := LoadRelayConfig()
	if cfg.Prefix != "meta@=" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.Description != "line one\nline two" {
		t.Errorf("Description = %q", cfg.Description)
	}
}
