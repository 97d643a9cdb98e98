package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProvider pulls live rates from an external exchange-rate API that
// answers GET <endpoint>?from=USD&to=XAF with {"rate": "..."}.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type rateResponse struct {
	Rate string `json:"rate"`
}

func (p *HTTPProvider) FetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("rate provider: status=%d body=%s", resp.StatusCode, string(body))
	}

	var rr rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return decimal.Zero, fmt.Errorf("rate provider: decode: %w", err)
	}
	rate, err := decimal.NewFromString(rr.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate provider: bad rate %q: %w", rr.Rate, err)
	}
	return rate, nil
}
