package transactions

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"perfectpay-backend/internal/middleware"
)

const roleAdmin = "admin"

// Handler serves transaction history reads.
type Handler struct {
	recorder *Recorder
}

func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/transactions/history", h.History)
	g.GET("/transactions/:id", h.ByID)
}

// History lists the requester's transactions inside an optional date window
// (RFC 3339 dates, defaults to the last 30 days). Admins can pass all=true
// to see every user's movements.
func (h *Handler) History(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var f HistoryFilter
	f.UserID = userID
	if s := c.QueryParam("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start date"})
		}
		f.Start = t
	}
	if s := c.QueryParam("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end date"})
		}
		f.End = t
	}
	role, _ := c.Get("role").(string)
	if c.QueryParam("all") == "true" && role == roleAdmin {
		f.AllUsers = true
	}

	txns, err := h.recorder.History(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	if txns == nil {
		txns = []Transaction{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txns})
}

// ByID returns one transaction. Non-admins only see movements they were a
// party to.
func (h *Handler) ByID(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	txn, err := h.recorder.ByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	role, _ := c.Get("role").(string)
	if role != roleAdmin && txn.UserID != userID &&
		(txn.RecipientID == nil || *txn.RecipientID != userID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}
	return c.JSON(http.StatusOK, txn)
}
