package whatsapp

import (
	"image/color"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
)

const qrImageSize = 256

// RenderQRDataURL encodes a pairing token as a PNG data URL
func RenderQRDataURL(token string) (string, error) {
	code, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return "", err
	}
	code.ForegroundColor = color.Black
	code.BackgroundColor = color.White

	png, err := code.PNG(qrImageSize)
	if err != nil {
		return "", err
	}
	return dataurl.New(png, "image/png").String(), nil
}

// PrintQR draws the pairing token on a terminal
func PrintQR(token string, w io.Writer) {
	qrterminal.GenerateHalfBlock(token, qrterminal.L, w)
}
