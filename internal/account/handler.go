package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type createRequest struct {
	CustomerID     string          `json:"customer_id"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type accountResponse struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	CustomerID     string `json:"customer_id"`
	Type           string `json:"type"`
	Balance        string `json:"balance"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at"`
	LastInterestAt string `json:"last_interest_at,omitempty"`
}

func toResponse(a ledger.Account) accountResponse {
	resp := accountResponse{
		ID:         a.ID,
		Number:     a.Number,
		CustomerID: a.CustomerID,
		Type:       string(a.Type),
		Balance:    a.Balance.StringFixed(2),
		Active:     a.Active,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.LastInterestAt != nil {
		resp.LastInterestAt = a.LastInterestAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Create opens an account for a customer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Create(c.UserContext(), CreateInput{
		CustomerID:     req.CustomerID,
		Type:           ledger.AccountType(req.Type),
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acct))
}

// List returns all accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.JSON(out)
}

// Get returns one account by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(acct))
}

// GetByNumber returns one account by its account number.
func (h *Handler) GetByNumber(c *fiber.Ctx) error {
	acct, err := h.service.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(acct))
}

// ByCustomer lists the accounts of one customer.
func (h *Handler) ByCustomer(c *fiber.Ctx) error {
	accounts, err := h.service.ListByCustomer(c.UserContext(), c.Params("customerId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.JSON(out)
}

type updateRequest struct {
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// Update applies an administrative correction.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Update(c.UserContext(), c.Params("accountId"), ledger.AccountType(req.Type), req.Balance)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(acct))
}

// Deactivate soft-disables the account.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	acct, err := h.service.Deactivate(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(acct))
}

// Activate re-enables the account.
func (h *Handler) Activate(c *fiber.Ctx) error {
	acct, err := h.service.Activate(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(acct))
}

// Delete removes a zero-balance account.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("accountId")); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
