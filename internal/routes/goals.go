package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arriviste0/personal-finance-sub000/internal/goals"
)

// RegisterGoalRoutes wires allocation lifecycle endpoints.
func RegisterGoalRoutes(r fiber.Router, h *goals.Handler) {
	r.Post("/allocations", h.Create)
	r.Get("/allocations/:allocationId", h.Get)
	r.Patch("/allocations/:allocationId", h.Update)
	r.Delete("/allocations/:allocationId", h.Delete)
	r.Get("/users/:userId/allocations", h.List)
}
