package tickets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parkly/internal/shared/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	errTokenMalformed = errors.New("malformed ticket token")
	errTokenExpired   = errors.New("ticket token expired")
)

type tokenClaims struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	jwt.RegisteredClaims
}

// Signer mints and verifies ticket tokens
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewSigner(cfg config.TicketConfig) *Signer {
	return &Signer{
		secret:   []byte(cfg.SigningSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
	}
}

// Sign returns an HS256 token bound to the reservation and its owner
func (s *Signer) Sign(reservationID, userID uuid.UUID, now time.Time) (string, error) {
	nonce, err := randomHex(8)
	if err != nil {
		return "", err
	}
	claims := tokenClaims{
		BookingID: reservationID.String(),
		UserID:    userID.String(),
		Timestamp: now.UnixMilli(),
		Nonce:     nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, issuer, audience and expiry against now.
// It returns errTokenExpired or errTokenMalformed.
func (s *Signer) Verify(token string, now time.Time) (*tokenClaims, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	claims := &tokenClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, errTokenMalformed
	}
	if !claims.VerifyIssuer(s.issuer, true) || !claims.VerifyAudience(s.audience, true) {
		return nil, errTokenMalformed
	}
	if !claims.VerifyExpiresAt(now, true) {
		return nil, errTokenExpired
	}
	return claims, nil
}

// NewTicketNumber formats PKG-<base36 unix ms>-<8 hex>
func NewTicketNumber(now time.Time) (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return fmt.Sprintf("PKG-%s-%s", strings.ToUpper(stamp), strings.ToUpper(suffix)), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
