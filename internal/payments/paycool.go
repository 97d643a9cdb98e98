package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrChargeDeclined means the operator refused or never confirmed the charge.
// The caller must not credit anything.
var ErrChargeDeclined = errors.New("payments: charge declined")

// ChargeRequest asks the mobile-money aggregator to pull funds from a
// subscriber's operator account.
type ChargeRequest struct {
	Phone    string
	Operator string
	Amount   decimal.Decimal
	Currency string
}

// Charger confirms an external mobile-money charge before any wallet credit.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) error
}

// PaycoolConfig holds the aggregator endpoint and the merchant account email
// charges are settled against.
type PaycoolConfig struct {
	Endpoint string
	Email    string
}

// PaycoolClient calls the Paycool aggregator. The charge call blocks until
// the subscriber confirms on their handset or the aggregator times out, so
// the HTTP timeout is generous.
type PaycoolClient struct {
	cfg    PaycoolConfig
	client *http.Client
}

func NewPaycoolClient(cfg PaycoolConfig) *PaycoolClient {
	return &PaycoolClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type paycoolRequest struct {
	Type        string `json:"type"`
	Email       string `json:"email"`
	TxnType     string `json:"txn_type"`
	Phone       string `json:"phone"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
}

type paycoolResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Charge submits the charge and waits for the aggregator's verdict. Anything
// other than an explicit "success" status, including a timeout, is a decline.
func (p *PaycoolClient) Charge(ctx context.Context, req ChargeRequest) error {
	body := paycoolRequest{
		Type:        req.Operator,
		Email:       p.cfg.Email,
		TxnType:     "deposit",
		Phone:       req.Phone,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Reference:   uuid.NewString(),
		Description: "wallet recharge",
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChargeDeclined, err)
	}
	defer resp.Body.Close()

	var pr paycoolResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrChargeDeclined, err)
	}
	if pr.Status != "success" {
		return fmt.Errorf("%w: %s", ErrChargeDeclined, pr.Message)
	}
	return nil
}
