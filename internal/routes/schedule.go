package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/scheduler"
)

// RegisterScheduleRoutes wires scheduled-transfer management.
func RegisterScheduleRoutes(r fiber.Router, h *scheduler.Handler) {
	r.Post("/schedules", h.Create)
	r.Get("/schedules/pending", h.Pending)
	r.Post("/schedules/run", h.RunDue)
}
