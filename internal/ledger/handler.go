package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/arriviste0/personal-finance-sub000/internal/money"
)

// HTTPStatus maps engine errors onto HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrAlreadyReversed):
		return http.StatusConflict
	case errors.Is(err, ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Handler exposes the transfer endpoints of the ledger engine.
type Handler struct {
	engine *Engine
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type transferRequest struct {
	UserID     string       `json:"user_id"`
	Amount     money.Amount `json:"amount"`
	Notes      string       `json:"notes"`
	ClientTxID string       `json:"client_tx_id"`
}

type reverseRequest struct {
	UserID     string `json:"user_id"`
	Notes      string `json:"notes"`
	ClientTxID string `json:"client_tx_id"`
}

// Deposit funds an allocation from the wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.engine.Deposit(c.UserContext(), TransferInput{
		UserID:       req.UserID,
		AllocationID: utils.CopyString(c.Params("allocationId")),
		Amount:       req.Amount,
		Notes:        req.Notes,
		ClientTxID:   req.ClientTxID,
	})
	return respondEntry(c, entry, err)
}

// Withdraw moves funds from an allocation back to the wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.engine.Withdraw(c.UserContext(), TransferInput{
		UserID:       req.UserID,
		AllocationID: utils.CopyString(c.Params("allocationId")),
		Amount:       req.Amount,
		Notes:        req.Notes,
		ClientTxID:   req.ClientTxID,
	})
	return respondEntry(c, entry, err)
}

// CreditWallet records an external injection of funds into the wallet.
func (h *Handler) CreditWallet(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.engine.CreditWallet(c.UserContext(), WalletCreditInput{
		UserID:     utils.CopyString(c.Params("userId")),
		Amount:     req.Amount,
		Notes:      req.Notes,
		ClientTxID: req.ClientTxID,
	})
	return respondEntry(c, entry, err)
}

// Reverse appends a compensating entry for a prior one.
func (h *Handler) Reverse(c *fiber.Ctx) error {
	var req reverseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.engine.Reverse(c.UserContext(), ReverseInput{
		UserID:     req.UserID,
		EntryID:    utils.CopyString(c.Params("entryId")),
		Notes:      req.Notes,
		ClientTxID: req.ClientTxID,
	})
	return respondEntry(c, entry, err)
}

// WalletBalance returns the user's unallocated balance.
func (h *Handler) WalletBalance(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := h.engine.WalletBalance(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":   userID,
		"balance":   balance,
		"timestamp": time.Now().UTC(),
	})
}

// History returns the user's ledger entries, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	entries, err := h.engine.History(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(HTTPStatus(err), err.Error())
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.Status(http.StatusOK).JSON(entries)
}

// respondEntry renders a committed entry, treating an idempotent replay as a
// success that returns the original entry.
func respondEntry(c *fiber.Ctx, entry Entry, err error) error {
	if err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			return c.Status(http.StatusOK).JSON(entry)
		}
		return fiber.NewError(HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(entry)
}
