package server

import (
	qr "github.com/skip2/go-qrcode"
)

// qrPNG renders a URL as a QR code image.
func qrPNG(url string) ([]byte, error) {
	return qr.Encode(url, qr.Medium, 256)
}
