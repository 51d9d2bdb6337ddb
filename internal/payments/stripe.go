package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parkly/internal/shared/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway maps orders onto PaymentIntents. The callback's payment id is the
// intent's latest charge; there is no client-side signature to check.
type StripeGateway struct {
	api       *client.API
	publicKey string
}

func NewStripeGateway(cfg config.PaymentConfig) (*StripeGateway, error) {
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required for the stripe provider")
	}
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)
	return &StripeGateway{api: api, publicKey: cfg.KeyID}, nil
}

func (g *StripeGateway) Name() string      { return "stripe" }
func (g *StripeGateway) PublicKey() string { return g.publicKey }

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(req.Receipt),
	}
	params.Context = ctx
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent failed: %w", err)
	}
	return &Order{
		ID:           intent.ID,
		Amount:       float64(intent.Amount) / 100,
		Currency:     strings.ToUpper(string(intent.Currency)),
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, _ string) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := g.api.PaymentIntents.Get(orderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return ErrSignatureMismatch
		}
		return fmt.Errorf("stripe lookup failed: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return ErrSignatureMismatch
	}
	if intent.LatestCharge == nil || intent.LatestCharge.ID != paymentID {
		return ErrSignatureMismatch
	}
	return nil
}
