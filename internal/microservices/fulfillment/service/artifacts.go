package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// ArtifactGenerator produces the customer-facing identifiers of an order.
type ArtifactGenerator interface {
	OrderNumber(now time.Time) (string, error)
	OTP() (string, error)
	QRCode(p QRPayload) (string, error)
}

// QRPayload is encoded into the QR image. It is a convenience for scanning
// at the counter; the OTP itself is what gets verified.
type QRPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	OTP     string    `json:"otp"`
	UserID  uuid.UUID `json:"userId"`
}

type artifacts struct {
	qrSize int
}

func NewArtifactGenerator() ArtifactGenerator { return artifacts{qrSize: 256} }

// OrderNumber is ORD_YYYYMMDD_ plus six random hex digits. Collisions are
// caught by the unique index and retried by the caller.
func (artifacts) OrderNumber(now time.Time) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("order number entropy: %w", err)
	}
	return fmt.Sprintf("ORD_%s_%s", now.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

func (artifacts) OTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("otp entropy: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (a artifacts) QRCode(p QRPayload) (string, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(string(content), qrcode.Medium, a.qrSize)
	if err != nil {
		return "", fmt.Errorf("render qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
