package payments

import (
	"context"
	"fmt"

	"parkly/internal/shared/config"

	razorpay "github.com/razorpay/razorpay-go"
)

// orderCreator is the slice of the Razorpay SDK the gateway calls
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway opens orders through the Razorpay Orders API
type RazorpayGateway struct {
	keyID  string
	secret string
	orders orderCreator
}

func NewRazorpayGateway(cfg config.PaymentConfig) *RazorpayGateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &RazorpayGateway{
		keyID:  cfg.KeyID,
		secret: cfg.KeySecret,
		orders: client.Order,
	}
}

func (g *RazorpayGateway) Name() string      { return "razorpay" }
func (g *RazorpayGateway) PublicKey() string { return g.keyID }

type orderResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder returns when the SDK call finishes or ctx is done, whichever is first.
// The SDK call itself carries no context.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	data := map[string]interface{}{
		"amount":   minorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}

	done := make(chan orderResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- orderResult{body: body, err: err}
	}()

	var res orderResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("razorpay order: %w", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("razorpay order: %w", res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order: response has no id")
	}
	currency, _ := res.body["currency"].(string)
	amount, _ := res.body["amount"].(float64)
	return &Order{ID: id, Amount: amount / 100, Currency: currency}, nil
}

func (g *RazorpayGateway) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	return verifySignature(g.secret, orderID, paymentID, signature)
}
