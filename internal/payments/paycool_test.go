package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPaycoolChargeSuccess(t *testing.T) {
	var got paycoolRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer srv.Close()

	c := NewPaycoolClient(PaycoolConfig{Endpoint: srv.URL, Email: "ops@perfectpay.test"})
	err := c.Charge(context.Background(), ChargeRequest{
		Phone:    "+237650000001",
		Operator: "ORANGE",
		Amount:   decimal.RequireFromString("500"),
		Currency: "XAF",
	})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if got.Type != "ORANGE" || got.Amount != "500.00" || got.Currency != "XAF" {
		t.Errorf("request = %+v", got)
	}
	if got.Reference == "" {
		t.Error("missing transaction reference")
	}
}

func TestPaycoolChargeDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "failed", "message": "insufficient airtime"})
	}))
	defer srv.Close()

	c := NewPaycoolClient(PaycoolConfig{Endpoint: srv.URL})
	err := c.Charge(context.Background(), ChargeRequest{
		Phone: "+237650000001", Operator: "MTN",
		Amount: decimal.NewFromInt(500), Currency: "XAF",
	})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("err = %v, want ErrChargeDeclined", err)
	}
}

func TestPaycoolChargeUnreachable(t *testing.T) {
	c := NewPaycoolClient(PaycoolConfig{Endpoint: "http://127.0.0.1:1"})
	err := c.Charge(context.Background(), ChargeRequest{
		Phone: "+237650000001", Operator: "MTN",
		Amount: decimal.NewFromInt(500), Currency: "XAF",
	})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("err = %v, want ErrChargeDeclined on transport failure", err)
	}
}

func TestStripeCreateIntent(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment_intents" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		json.NewEncoder(w).Encode(map[string]string{
			"id": "pi_123", "client_secret": "pi_123_secret",
		})
	}))
	defer srv.Close()

	c := NewStripeClient("sk_test")
	c.baseURL = srv.URL

	intent, err := c.CreateIntent(context.Background(), IntentRequest{
		UserID:   7,
		Amount:   decimal.RequireFromString("20.50"),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ClientSecret != "pi_123_secret" {
		t.Errorf("client secret = %q", intent.ClientSecret)
	}
	if got := form["amount"]; len(got) != 1 || got[0] != "2050" {
		t.Errorf("amount = %v, want minor units 2050", got)
	}
	if got := form["metadata[user_id]"]; len(got) != 1 || got[0] != "7" {
		t.Errorf("metadata[user_id] = %v", got)
	}
	if got := form["currency"]; len(got) != 1 || got[0] != "usd" {
		t.Errorf("currency = %v, want lowercase usd", got)
	}
}
