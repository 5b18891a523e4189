package qr

import (
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// QRGenerator renders pass numbers as QR codes for printing on passes. The gate scanner
// reads the number back and posts it to the judge endpoint.
type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size, level: qrcode.Medium}
}

// GeneratePassQR returns a PNG encoding passNumber.
func (q *QRGenerator) GeneratePassQR(passNumber string) ([]byte, error) {
	passNumber = strings.TrimSpace(passNumber)
	if passNumber == "" {
		return nil, errors.New("pass number is empty")
	}
	return qrcode.Encode(passNumber, q.level, q.size)
}
