package interest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Handler exposes interest endpoints for operational use.
type Handler struct {
	service *Service
}

// NewHandler constructs an interest handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type calculateRequest struct {
	AccountID string     `json:"account_id"`
	AsOf      *time.Time `json:"as_of"`
}

// Calculate returns the accrued interest without applying it.
func (h *Handler) Calculate(c *fiber.Ctx) error {
	var req calculateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}
	amount, err := h.service.CalculateAccrued(c.UserContext(), req.AccountID, asOf)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{
		"account_id": req.AccountID,
		"as_of":      asOf,
		"accrued":    amount.StringFixed(2),
	})
}

type applyRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Apply credits a calculated interest amount to the account.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.ApplyAccrued(c.UserContext(), req.AccountID, req.Amount)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{
		"account_id":       account.ID,
		"balance":          account.Balance.StringFixed(2),
		"last_interest_at": account.LastInterestAt,
	})
}
