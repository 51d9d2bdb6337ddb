package payments

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"parkly/internal/shared/config"
)

// ErrSignatureMismatch means the callback was not produced by the gateway
var ErrSignatureMismatch = errors.New("payment signature mismatch")

// OrderRequest opens a payment order for an amount in major currency units
type OrderRequest struct {
	Amount         float64
	Currency       string
	Receipt        string
	IdempotencyKey string
	Notes          map[string]string
}

type Order struct {
	ID           string
	Amount       float64
	Currency     string
	ClientSecret string
}

// Gateway is the external payment provider
type Gateway interface {
	Name() string
	// PublicKey is handed to the client checkout widget
	PublicKey() string
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// VerifyPayment returns ErrSignatureMismatch when the callback is not authentic
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error
}

// NewGateway builds the gateway selected by PAYMENT_PROVIDER
func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "", "sandbox":
		return NewSandboxGateway(cfg.KeyID, cfg.KeySecret), nil
	case "razorpay":
		return NewRazorpayGateway(cfg), nil
	case "stripe":
		return NewStripeGateway(cfg)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// Signature is the hex HMAC-SHA256 of "orderID|paymentID" under secret
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(secret, orderID, paymentID, signature string) error {
	expected := Signature(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// minorUnits converts 110.50 to 11050
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// SandboxGateway opens orders locally and verifies with the shared secret.
// It stands in for Razorpay in development and tests.
type SandboxGateway struct {
	keyID  string
	secret string
}

func NewSandboxGateway(keyID, secret string) *SandboxGateway {
	return &SandboxGateway{keyID: keyID, secret: secret}
}

func (g *SandboxGateway) Name() string      { return "sandbox" }
func (g *SandboxGateway) PublicKey() string { return g.keyID }

func (g *SandboxGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := make([]byte, 7)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &Order{ID: "order_" + hex.EncodeToString(b), Amount: req.Amount, Currency: req.Currency}, nil
}

func (g *SandboxGateway) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	return verifySignature(g.secret, orderID, paymentID, signature)
}
