package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"perfectpay-backend/internal/ledger"
)

// fakeBooks credits each event id at most once, the way the payment_events
// table constraint does.
type fakeBooks struct {
	seen    map[string]bool
	credits []ledger.CreditEntry
	balance decimal.Decimal
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{seen: map[string]bool{}}
}

func (f *fakeBooks) CreditFromEvent(_ context.Context, eventID, _ string, cr ledger.CreditEntry) (*ledger.CreditResult, error) {
	if f.seen[eventID] {
		return nil, ledger.ErrEventProcessed
	}
	f.seen[eventID] = true
	f.credits = append(f.credits, cr)
	f.balance = f.balance.Add(cr.Amount)
	return &ledger.CreditResult{Balance: f.balance}, nil
}

type fakeWallets struct{}

func (fakeWallets) ByUserID(_ context.Context, userID int64) (*ledger.Wallet, error) {
	if userID != 7 {
		return nil, ledger.ErrWalletNotFound
	}
	return &ledger.Wallet{ID: 70, UserID: 7, Currency: "USD"}, nil
}

type fakeUsers struct{}

func (fakeUsers) PhoneByID(context.Context, int64) (string, error) {
	return "+10000000007", nil
}

type fakeNotifier struct{ sent int }

func (f *fakeNotifier) SendSMS(string, string) error {
	f.sent++
	return nil
}

func succeededEvent(id string, minor int64) event {
	var ev event
	ev.ID = id
	ev.Type = "payment_intent.succeeded"
	ev.Data.Object.AmountReceived = minor
	ev.Data.Object.Currency = "usd"
	ev.Data.Object.Metadata = map[string]string{
		"user_id": "7", "amount": "20.00", "currency": "USD",
	}
	return ev
}

func newHandler() (*Handler, *fakeBooks, *fakeNotifier) {
	books := newFakeBooks()
	notify := &fakeNotifier{}
	return NewHandler(books, fakeWallets{}, fakeUsers{}, notify, zap.NewNop()), books, notify
}

func TestHandleEventCreditsOnce(t *testing.T) {
	h, books, notify := newHandler()

	ev := succeededEvent("evt_1", 2000)
	if err := h.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := h.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("replay must be acked, got %v", err)
	}

	if len(books.credits) != 1 {
		t.Fatalf("credited %d times, want 1", len(books.credits))
	}
	cr := books.credits[0]
	if !cr.Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("credited %s, want 20 (minor units / 100)", cr.Amount)
	}
	if cr.Currency != "USD" || cr.WalletID != 70 || cr.UserID != 7 {
		t.Errorf("credit entry = %+v", cr)
	}
	if notify.sent != 1 {
		t.Errorf("sent %d sms, want 1", notify.sent)
	}
}

func TestHandleEventIgnoresUnknownType(t *testing.T) {
	h, books, _ := newHandler()

	ev := succeededEvent("evt_2", 2000)
	ev.Type = "payment_intent.payment_failed"
	if err := h.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown type must be acked, got %v", err)
	}
	if len(books.credits) != 0 {
		t.Errorf("credited %d times for ignored type", len(books.credits))
	}
}

func TestReceiveStatusCodes(t *testing.T) {
	h, _, _ := newHandler()
	e := echo.New()

	body, _ := json.Marshal(succeededEvent("evt_3", 500))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	if err := h.Receive(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("valid event status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	if err := h.Receive(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad payload status = %d, want 400", rec.Code)
	}
}
