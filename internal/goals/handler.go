package goals

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arriviste0/personal-finance-sub000/internal/allocation"
	"github.com/arriviste0/personal-finance-sub000/internal/ledger"
	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// Handler exposes allocation lifecycle endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a goals HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	UserID string       `json:"user_id"`
	Name   string       `json:"name"`
	Kind   string       `json:"kind"`
	Target money.Amount `json:"target"`
}

type updateRequest struct {
	UserID string        `json:"user_id"`
	Name   *string       `json:"name"`
	Target *money.Amount `json:"target"`
}

type allocationResponse struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"owner_id"`
	Name      string       `json:"name"`
	Kind      string       `json:"kind"`
	Current   money.Amount `json:"current"`
	Target    money.Amount `json:"target"`
	Complete  bool         `json:"complete"`
	CreatedAt time.Time    `json:"created_at"`
}

func toResponse(a allocation.Allocation) allocationResponse {
	return allocationResponse{
		ID:        a.ID,
		OwnerID:   a.OwnerID,
		Name:      a.Name,
		Kind:      string(a.Kind),
		Current:   a.Current,
		Target:    a.Target,
		Complete:  a.Complete(),
		CreatedAt: a.CreatedAt,
	}
}

// Create opens a new savings goal or the emergency fund.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.service.Create(c.UserContext(), CreateInput{
		UserID: req.UserID,
		Name:   req.Name,
		Kind:   allocation.Kind(req.Kind),
		Target: req.Target,
	})
	if err != nil {
		return fiber.NewError(ledger.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(a))
}

// Get returns a point-in-time snapshot of the allocation.
func (h *Handler) Get(c *fiber.Ctx) error {
	a, err := h.service.Get(c.UserContext(), c.Query("user_id"), c.Params("allocationId"))
	if err != nil {
		return fiber.NewError(ledger.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(a))
}

// Update renames or retargets the allocation.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.service.Update(c.UserContext(), req.UserID, c.Params("allocationId"), UpdateInput{
		Name:   req.Name,
		Target: req.Target,
	})
	if err != nil {
		return fiber.NewError(ledger.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(a))
}

// Delete closes the allocation, draining any remaining balance to the wallet.
func (h *Handler) Delete(c *fiber.Ctx) error {
	entry, err := h.service.Delete(c.UserContext(), c.Query("user_id"), c.Params("allocationId"))
	if err != nil {
		return fiber.NewError(ledger.HTTPStatus(err), err.Error())
	}
	if entry.ID == "" {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Status(http.StatusOK).JSON(entry)
}

// List returns all of the user's allocations.
func (h *Handler) List(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(ledger.HTTPStatus(err), err.Error())
	}
	responses := make([]allocationResponse, 0, len(result))
	for _, a := range result {
		responses = append(responses, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(responses)
}
