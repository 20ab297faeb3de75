package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/customer"
)

// RegisterCustomerRoutes wires the customer registry endpoints.
func RegisterCustomerRoutes(r fiber.Router, h *customer.Handler) {
	r.Post("/customers", h.Register)
	r.Get("/customers", h.List)
	r.Get("/customers/:customerId", h.Get)
}
