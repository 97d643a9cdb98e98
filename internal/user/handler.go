package user

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"perfectpay-backend/internal/auth"
	"perfectpay-backend/internal/ledger"
	"perfectpay-backend/internal/middleware"
)

// Notifier queues a text message.
type Notifier interface {
	SendSMS(phone, message string) error
}

// Handler serves the account endpoints: balance, profile, credentials.
type Handler struct {
	users   *Repo
	wallets *ledger.Store
	notify  Notifier
	log     *zap.Logger
}

func NewHandler(users *Repo, wallets *ledger.Store, notify Notifier, log *zap.Logger) *Handler {
	return &Handler{users: users, wallets: wallets, notify: notify, log: log}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/accounts/balance", h.Balance)
	g.GET("/accounts/profile", h.Profile)
	g.PATCH("/accounts/profile", h.UpdateProfile)
	g.POST("/accounts/change-pin", h.ChangePIN)
	g.POST("/accounts/change-password", h.ChangePassword)
}

func (h *Handler) Balance(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	wallet, err := h.wallets.ByUserID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wallet not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"balance":  wallet.Balance,
		"currency": wallet.Currency,
	})
}

func (h *Handler) Profile(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	u, err := h.users.ByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var up ProfileUpdate
	if err := c.Bind(&up); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	u, err := h.users.UpdateProfile(c.Request().Context(), userID, up)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, u)
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin"`
}

// ChangePIN rotates the PIN. A fresh PIN is generated server-side and sent to
// the account's phone, never returned in the response.
func (h *Handler) ChangePIN(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req changePINRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	u, err := h.users.ByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if !auth.VerifySecret(req.CurrentPIN, u.PIN) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	}

	pin := auth.GeneratePIN()
	pinHash, err := auth.HashSecret(pin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if err := h.users.UpdatePIN(c.Request().Context(), userID, pinHash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	if err := h.notify.SendSMS(u.PhoneNumber, fmt.Sprintf("Your new PerfectPay PIN is %s. Do not share it.", pin)); err != nil {
		h.log.Warn("sms enqueue failed", zap.String("phone", u.PhoneNumber), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pin updated, check your messages"})
}

type changePasswordRequest struct {
	CurrentPIN  string `json:"current_pin"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	u, err := h.users.ByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if !auth.VerifySecret(req.CurrentPIN, u.PIN) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	}

	hash, err := auth.HashSecret(req.NewPassword)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if err := h.users.UpdatePassword(c.Request().Context(), userID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
