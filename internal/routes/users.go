package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arriviste0/personal-finance-sub000/internal/user"
)

// RegisterUserRoutes wires user registry endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler) {
	r.Post("/users", h.Register)
	r.Get("/users/:userId", h.Get)
}
