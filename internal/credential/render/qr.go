// Package render turns credential tokens into scannable images.
package render

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// QR renders tokens as PNG QR codes with high error correction so badges
// survive being printed or photographed.
type QR struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQR() *QR {
	return &QR{size: defaultSize, level: qrcode.High}
}

// Render returns a PNG of the token.
func (q *QR) Render(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("render qr: empty token")
	}
	png, err := qrcode.Encode(token, q.level, q.size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
