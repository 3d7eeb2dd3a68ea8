package qrcode

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// UPIURI builds a upi://pay intent. amount is in paise.
func UPIURI(payee, payeeName string, amount int64, note string) string {
	q := url.Values{}
	q.Set("pa", payee)
	if payeeName != "" {
		q.Set("pn", payeeName)
	}
	q.Set("am", fmt.Sprintf("%d.%02d", amount/100, amount%100))
	q.Set("cu", "INR")
	if note != "" {
		q.Set("tn", note)
	}
	return "upi://pay?" + q.Encode()
}

// PNG edge bounds in pixels. The encoder allocates size*size pixels.
const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// GenerateUPIQRCode returns a PNG of the UPI intent. A size of 0 means
// DefaultSize; other sizes are clamped to [MinSize, MaxSize].
func GenerateUPIQRCode(payee, payeeName string, amount int64, note string, size int) ([]byte, error) {
	switch {
	case size == 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}
	return qrcode.Encode(UPIURI(payee, payeeName, amount, note), qrcode.Medium, size)
}
