package transfer

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"perfectpay-backend/internal/currency"
	"perfectpay-backend/internal/ledger"
	"perfectpay-backend/internal/middleware"
	"perfectpay-backend/internal/payments"
	"perfectpay-backend/internal/user"
)

// Handler exposes the money-movement endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/transactions/transfer", h.Transfer)
	g.POST("/transactions/withdraw", h.Withdraw)
	g.POST("/recharges/mobile-money", h.RechargeMobileMoney)
	g.POST("/recharges/card", h.RechargeCard)
}

type transferRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Amount         string `json:"amount"`
	PIN            string `json:"pin"`
}

func (h *Handler) Transfer(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	txn, err := h.svc.Transfer(c.Request().Context(), userID, req.RecipientPhone, amount, req.PIN)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "transfer completed",
		"transaction": txn,
	})
}

type withdrawRequest struct {
	MerchantPhone string `json:"merchant_phone"`
	MerchantCode  string `json:"merchant_code"`
	Amount        string `json:"amount"`
	PIN           string `json:"pin"`
}

func (h *Handler) Withdraw(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req withdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	txn, err := h.svc.Withdraw(c.Request().Context(), userID, req.MerchantPhone, req.MerchantCode, amount, req.PIN)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "withdrawal completed",
		"transaction": txn,
	})
}

type mobileMoneyRequest struct {
	Amount   string `json:"amount"`
	Operator string `json:"operator"`
	PIN      string `json:"pin"`
}

func (h *Handler) RechargeMobileMoney(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req mobileMoneyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	txn, err := h.svc.RechargeMobileMoney(c.Request().Context(), userID, amount, req.Operator, req.PIN)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "recharge completed",
		"transaction": txn,
	})
}

type cardRequest struct {
	Amount string `json:"amount"`
	PIN    string `json:"pin"`
}

func (h *Handler) RechargeCard(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req cardRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
	}

	intent, err := h.svc.RechargeCard(c.Request().Context(), userID, amount, req.PIN)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "payment initiated",
		"client_secret": intent.ClientSecret,
	})
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be positive")
	}
	return d, nil
}

// writeError maps service errors to HTTP responses.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	case errors.Is(err, ErrSelfTransfer):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot transfer to your own account"})
	case errors.Is(err, ErrBelowMinimum):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount below minimum"})
	case errors.Is(err, ErrUnsupportedOperator):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported operator"})
	case errors.Is(err, ErrRecipientNotFound), errors.Is(err, user.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "recipient not found"})
	case errors.Is(err, user.ErrMerchantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	case errors.Is(err, ledger.ErrWalletNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient funds"})
	case errors.Is(err, currency.ErrRateNotFound):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "exchange rate unavailable"})
	case errors.Is(err, payments.ErrChargeDeclined):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "mobile money charge failed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
