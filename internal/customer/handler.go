package customer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Handler exposes customer HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a customer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type customerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toResponse(c Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Register creates a customer record.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cust, err := h.service.Register(c.UserContext(), RegisterInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(cust))
}

// Get returns one customer by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	cust, err := h.service.Get(c.UserContext(), c.Params("customerId"))
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(toResponse(cust))
}

// List returns all customers.
func (h *Handler) List(c *fiber.Ctx) error {
	customers, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	out := make([]customerResponse, 0, len(customers))
	for _, cust := range customers {
		out = append(out, toResponse(cust))
	}
	return c.JSON(out)
}
