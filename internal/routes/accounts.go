package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/account"
)

// RegisterAccountRoutes wires account lifecycle endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/number/:number", h.GetByNumber)
	r.Get("/accounts/:accountId", h.Get)
	r.Put("/accounts/:accountId", h.Update)
	r.Post("/accounts/:accountId/deactivate", h.Deactivate)
	r.Post("/accounts/:accountId/activate", h.Activate)
	r.Delete("/accounts/:accountId", h.Delete)
	r.Get("/customers/:customerId/accounts", h.ByCustomer)
}
