package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"perfectpay-backend/internal/ledger"
)

// Ledger applies a gateway event exactly once.
type Ledger interface {
	CreditFromEvent(ctx context.Context, eventID, eventType string, cr ledger.CreditEntry) (*ledger.CreditResult, error)
}

// Wallets resolves the wallet a credit lands in.
type Wallets interface {
	ByUserID(ctx context.Context, userID int64) (*ledger.Wallet, error)
}

// Notifier queues the confirmation text.
type Notifier interface {
	SendSMS(phone, message string) error
}

// Users resolves a phone number for the confirmation text.
type Users interface {
	PhoneByID(ctx context.Context, userID int64) (string, error)
}

// Handler processes payment-gateway callbacks. Card payments confirmed by the
// gateway are credited here, never synchronously at intent creation.
type Handler struct {
	books   Ledger
	wallets Wallets
	users   Users
	notify  Notifier
	log     *zap.Logger
}

func NewHandler(books Ledger, wallets Wallets, users Users, notify Notifier, log *zap.Logger) *Handler {
	return &Handler{books: books, wallets: wallets, users: users, notify: notify, log: log}
}

// event mirrors the gateway's envelope. Amounts inside the object are in
// minor units of the currency.
type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			AmountReceived int64             `json:"amount_received"`
			Currency       string            `json:"currency"`
			Metadata       map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandleEvent applies one gateway event. Duplicate deliveries and unknown
// event types return nil so the gateway stops retrying.
func (h *Handler) HandleEvent(ctx context.Context, ev event) error {
	if ev.Type != "payment_intent.succeeded" {
		h.log.Info("ignoring event", zap.String("id", ev.ID), zap.String("type", ev.Type))
		return nil
	}

	userID, err := strconv.ParseInt(ev.Data.Object.Metadata["user_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("event %s: bad user_id metadata: %w", ev.ID, err)
	}
	amount := decimal.NewFromInt(ev.Data.Object.AmountReceived).Div(decimal.NewFromInt(100))
	currency := strings.ToUpper(ev.Data.Object.Currency)

	wallet, err := h.wallets.ByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}

	result, err := h.books.CreditFromEvent(ctx, ev.ID, ev.Type, ledger.CreditEntry{
		WalletID: wallet.ID,
		UserID:   userID,
		Amount:   amount,
		Currency: currency,
	})
	if errors.Is(err, ledger.ErrEventProcessed) {
		h.log.Info("duplicate event", zap.String("id", ev.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}

	h.log.Info("card recharge credited",
		zap.String("event", ev.ID),
		zap.Int64("user_id", userID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("currency", currency))

	if phone, err := h.users.PhoneByID(ctx, userID); err == nil {
		msg := fmt.Sprintf("Your wallet was recharged with %s %s. New balance: %s %s.",
			amount.StringFixed(2), currency, result.Balance.StringFixed(2), currency)
		if err := h.notify.SendSMS(phone, msg); err != nil {
			h.log.Warn("sms enqueue failed", zap.String("phone", phone), zap.Error(err))
		}
	}
	return nil
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/webhooks/payments", h.Receive)
}

// Receive decodes the callback. Processing failures still return 200 once the
// payload decodes, so the gateway does not hammer a broken event forever; the
// failure is logged for follow-up.
func (h *Handler) Receive(c echo.Context) error {
	var ev event
	if err := json.NewDecoder(c.Request().Body).Decode(&ev); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if ev.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing event id"})
	}

	if err := h.HandleEvent(c.Request().Context(), ev); err != nil {
		h.log.Error("webhook event failed", zap.String("id", ev.ID), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
