package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/env"
)

const defaultRelayDescription = "*Session generated!*\n" +
	"- Keep your code safe.\n" +
	"- Repo: https://github.com/MetaLoad1/META-AI\n\n" +
	"*© METALOAD*"

// RelayConfig controls the two messages sent to the freshly linked account
type RelayConfig struct {
	Prefix              string
	Description         string
	PreviewTitle        string
	PreviewThumbnailURL string
	PreviewSourceURL    string
	PreviewThumbnail    []byte
}

func LoadRelayConfig() RelayConfig {
	return RelayConfig{
		Prefix:              env.GetEnvStringOrDefault("RELAY_PREFIX", "meta@="),
		Description:         strings.ReplaceAll(env.GetEnvStringOrDefault("RELAY_DESCRIPTION", defaultRelayDescription), `\n`, "\n"),
		PreviewTitle:        env.GetEnvStringOrDefault("RELAY_PREVIEW_TITLE", "Metaload"),
		PreviewThumbnailURL: env.GetEnvStringOrDefault("RELAY_PREVIEW_THUMBNAIL_URL", "https://github.com/Metaload1.png"),
		PreviewSourceURL:    env.GetEnvStringOrDefault("RELAY_PREVIEW_SOURCE_URL", "https://www.instagram.com/metaload1"),
	}
}

// EncodeSessionID turns a credential blob into the text users paste into bots
func EncodeSessionID(prefix string, blob []byte) string {
	return prefix + base64.StdEncoding.EncodeToString(blob)
}

func CredentialMessage(prefix string, blob []byte) *waE2E.Message {
	return &waE2E.Message{
		Conversation: proto.String(EncodeSessionID(prefix, blob)),
	}
}

// DescriptionMessage quotes the credential message and carries a link preview
func DescriptionMessage(cfg RelayConfig, quotedID string, participant string, quoted *waE2E.Message) *waE2E.Message {
	adReply := &waE2E.ContextInfo_ExternalAdReplyInfo{
		Title:                 proto.String(cfg.PreviewTitle),
		MediaType:             waE2E.ContextInfo_ExternalAdReplyInfo_IMAGE.Enum(),
		RenderLargerThumbnail: proto.Bool(true),
	}
	if len(cfg.PreviewThumbnailURL) > 0 {
		adReply.ThumbnailURL = proto.String(cfg.PreviewThumbnailURL)
	}
	if len(cfg.PreviewSourceURL) > 0 {
		adReply.SourceURL = proto.String(cfg.PreviewSourceURL)
	}
	if len(cfg.PreviewThumbnail) > 0 {
		adReply.Thumbnail = cfg.PreviewThumbnail
	}

	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(cfg.Description),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:        proto.String(quotedID),
				Participant:     proto.String(participant),
				QuotedMessage:   quoted,
				ExternalAdReply: adReply,
			},
		},
	}
}

// SendCredentials sends the encoded credential blob to the linked account
// and returns the sent message so it can be quoted.
func SendCredentials(ctx context.Context, conn Conn, cfg RelayConfig, blob []byte) (string, *waE2E.Message, error) {
	msg := CredentialMessage(cfg.Prefix, blob)
	id, err := conn.SendToSelf(ctx, msg)
	if err != nil {
		return "", nil, fmt.Errorf("send credentials: %w", err)
	}
	return id, msg, nil
}

func SendDescription(ctx context.Context, conn Conn, cfg RelayConfig, quotedID string, quoted *waE2E.Message) error {
	if _, err := conn.SendToSelf(ctx, DescriptionMessage(cfg, quotedID, conn.Self(), quoted)); err != nil {
		return fmt.Errorf("send description: %w", err)
	}
	return nil
}
