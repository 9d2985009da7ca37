// Package qr renders the QR badge students present to the room scanners.
package qr

import qrcode "github.com/skip2/go-qrcode"

// BadgePNG encodes a username into the PNG badge the scanners read.
func BadgePNG(username string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(username, qrcode.Medium, size)
}
