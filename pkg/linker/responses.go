package linker

import (
	"strings"
	"unicode"
)

const (
	MsgInvalidNumber      = "Invalid phone number. Please enter your full international number without + or spaces."
	MsgPairingFailed      = "Failed to get pairing code. Please check your phone number and try again."
	MsgPairingInProgress  = "A pairing request for this number is already in progress."
	MsgPairingTimeout     = "Pairing timeout"
	MsgUnavailable        = "Service Unavailable"
	MsgQRTimeout          = "QR generation timeout"
	MsgQRFailed           = "Failed to generate QR code"
	MsgReconnectExhausted = "Connection failed after multiple attempts"
	MsgQRGenerated        = "QR Code Generated! Scan it with your WhatsApp app."
	MsgTooManyRequests    = "Too many requests. Please wait a moment and try again."
)

var qrInstructions = []string{
	"1. Open WhatsApp on your phone",
	"2. Go to Settings > Linked Devices",
	"3. Tap \"Link a Device\"",
	"4. Scan the QR code above",
}

type QRResponse struct {
	QR           string   `json:"qr"`
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
}

func newQRResponse(dataURL string) QRResponse {
	instructions := make([]string, len(qrInstructions))
	copy(instructions, qrInstructions)
	return QRResponse{QR: dataURL, Message: MsgQRGenerated, Instructions: instructions}
}

// FormatPairingCode regroups a pairing code into dash separated blocks of four
func FormatPairingCode(code string) string {
	var clean []rune
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			clean = append(clean, unicode.ToUpper(r))
		}
	}

	groups := make([]string, 0, len(clean)/4+1)
	for i := 0; i < len(clean); i += 4 {
		end := i + 4
		if end > len(clean) {
			end = len(clean)
		}
		groups = append(groups, string(clean[i:end]))
	}
	return strings.Join(groups, "-")
}
