package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/payment"
)

// RegisterPaymentRoutes wires deposit, withdrawal and payment processing.
func RegisterPaymentRoutes(r fiber.Router, h *payment.Handler) {
	r.Post("/payments", h.Create)
}
