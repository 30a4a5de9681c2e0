package notify

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// QRRenderer encodes voucher tokens as PNG QR codes.
type QRRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRRenderer() *QRRenderer {
	return &QRRenderer{size: defaultQRSize, level: qrcode.Medium}
}

func (r *QRRenderer) Render(token string) ([]byte, error) {
	png, err := qrcode.Encode(token, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// DataURL embeds a rendered PNG so it can travel inside a JSON message.
func DataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
