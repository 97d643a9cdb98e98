package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IntentRequest describes a card payment to initiate. The metadata travels to
// the gateway and comes back on the webhook, which is how the credit finds
// its wallet.
type IntentRequest struct {
	UserID   int64
	Amount   decimal.Decimal
	Currency string
}

// Intent is the gateway's handle for a pending card payment. ClientSecret
// goes to the mobile app to finish the card flow.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentCreator starts a card payment with the external gateway.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

const stripeAPIBase = "https://api.stripe.com/v1"

// StripeClient creates payment intents over Stripe's form-encoded API.
type StripeClient struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey: secretKey,
		baseURL:   stripeAPIBase,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent posts a payment intent. Stripe wants the amount in minor units
// of the currency; all supported currencies here use two decimals.
func (s *StripeClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	minor := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("metadata[user_id]", strconv.FormatInt(req.UserID, 10))
	form.Set("metadata[amount]", req.Amount.StringFixed(2))
	form.Set("metadata[currency]", req.Currency)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var se stripeError
		_ = json.NewDecoder(resp.Body).Decode(&se)
		return nil, fmt.Errorf("create intent: %s (http %d)", se.Error.Message, resp.StatusCode)
	}

	var si stripeIntent
	if err := json.NewDecoder(resp.Body).Decode(&si); err != nil {
		return nil, fmt.Errorf("create intent: decode response: %w", err)
	}
	return &Intent{ID: si.ID, ClientSecret: si.ClientSecret}, nil
}
