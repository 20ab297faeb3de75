package payment

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Handler exposes the payment endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type paymentRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
}

// Create processes a deposit, withdrawal or payment.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	tx, err := h.service.Process(c.UserContext(), Input{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrValidation):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": tx.ID,
		"account_id":     tx.AccountID,
		"amount":         tx.Amount.StringFixed(2),
		"type":           tx.Type,
		"status":         tx.Status,
		"description":    tx.Description,
		"created_at":     tx.CreatedAt,
	})
}
