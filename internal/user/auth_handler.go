package user

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"perfectpay-backend/internal/auth"
)

const tokenTTL = 24 * time.Hour

// AuthHandler exposes login and registration. Clients and merchants are
// onboarded by a partner or admin; partners register themselves.
type AuthHandler struct {
	users  *Repo
	tokens *auth.Tokens
	notify Notifier
	log    *zap.Logger
}

func NewAuthHandler(users *Repo, tokens *auth.Tokens, notify Notifier, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, notify: notify, log: log}
}

type loginRequest struct {
	Identifier string `json:"identifier"` // phone number or email
	PIN        string `json:"pin"`
	Password   string `json:"password"`
}

// Login authenticates with PIN or password and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Identifier == "" || (req.PIN == "" && req.Password == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier and pin or password required"})
	}

	u, err := h.users.ByPhoneOrEmail(c.Request().Context(), req.Identifier)
	if err != nil {
		// Same response as a bad secret, so login cannot probe for accounts.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	var ok bool
	switch {
	case req.PIN != "":
		ok = auth.VerifySecret(req.PIN, u.PIN)
	case u.Password != "":
		ok = auth.VerifySecret(req.Password, u.Password)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	role, err := h.users.Role(c.Request().Context(), u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	token, err := h.tokens.Issue(u.ID, role, tokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         u,
		"role":         role,
	})
}

type registerRequest struct {
	PhoneNumber  string `json:"phone_number"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Language     string `json:"language"`
	BusinessName string `json:"business_name"` // merchants only
}

// RegisterPartner creates a self-service partner account. The generated PIN
// is delivered by SMS only, never in the response.
func (h *AuthHandler) RegisterPartner(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone_number required"})
	}

	nu, pin, err := h.buildNewUser(req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	partnerCode, err := auth.HashSecret(auth.GenerateMerchantCode())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	u, err := h.users.CreatePartner(c.Request().Context(), nu, partnerCode)
	if err != nil {
		return writeRegisterError(c, err)
	}

	h.smsPIN(u.PhoneNumber, pin)
	return c.JSON(http.StatusCreated, echo.Map{"message": "partner registered", "user": u})
}

// RegisterClient creates a client account on behalf of the authenticated
// partner or admin.
func (h *AuthHandler) RegisterClient(c echo.Context) error {
	registeredBy, _ := c.Get("user_id").(int64)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone_number required"})
	}

	nu, pin, err := h.buildNewUser(req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	u, err := h.users.CreateClient(c.Request().Context(), nu, &registeredBy)
	if err != nil {
		return writeRegisterError(c, err)
	}

	h.smsPIN(u.PhoneNumber, pin)
	return c.JSON(http.StatusCreated, echo.Map{"message": "client registered", "user": u})
}

// RegisterMerchant creates a merchant account. The merchant code authorizing
// withdrawals is generated here and sent to the owner by SMS.
func (h *AuthHandler) RegisterMerchant(c echo.Context) error {
	registeredBy, _ := c.Get("user_id").(int64)

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PhoneNumber == "" || req.BusinessName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone_number and business_name required"})
	}

	nu, pin, err := h.buildNewUser(req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	code := auth.GenerateMerchantCode()
	codeHash, err := auth.HashSecret(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	u, err := h.users.CreateMerchant(c.Request().Context(), nu, req.BusinessName, codeHash, &registeredBy)
	if err != nil {
		return writeRegisterError(c, err)
	}

	h.smsPIN(u.PhoneNumber, pin)
	h.sms(u.PhoneNumber, fmt.Sprintf("Your %s merchant code is %s. Keep it secret.", req.BusinessName, code))
	return c.JSON(http.StatusCreated, echo.Map{"message": "merchant registered", "user": u})
}

// buildNewUser hashes the generated PIN and optional password into an
// insertable record, returning the plaintext PIN for SMS delivery.
func (h *AuthHandler) buildNewUser(req registerRequest) (NewUser, string, error) {
	pin := auth.GeneratePIN()
	pinHash, err := auth.HashSecret(pin)
	if err != nil {
		return NewUser{}, "", err
	}
	var passwordHash string
	if req.Password != "" {
		if passwordHash, err = auth.HashSecret(req.Password); err != nil {
			return NewUser{}, "", err
		}
	}
	return NewUser{
		PhoneNumber: req.PhoneNumber,
		PIN:         pinHash,
		Name:        req.Name,
		Email:       req.Email,
		Password:    passwordHash,
		Language:    req.Language,
	}, pin, nil
}

func (h *AuthHandler) smsPIN(phone, pin string) {
	h.sms(phone, fmt.Sprintf("Welcome to PerfectPay. Your PIN is %s. Do not share it.", pin))
}

func (h *AuthHandler) sms(phone, message string) {
	if err := h.notify.SendSMS(phone, message); err != nil {
		h.log.Warn("sms enqueue failed", zap.String("phone", phone), zap.Error(err))
	}
}

func writeRegisterError(c echo.Context, err error) error {
	if errors.Is(err, ErrAlreadyExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
