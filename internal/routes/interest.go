package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/interest"
)

// RegisterInterestRoutes wires the operational interest endpoints.
func RegisterInterestRoutes(r fiber.Router, h *interest.Handler) {
	r.Post("/interest/calculate", h.Calculate)
	r.Post("/interest/apply", h.Apply)
}
