package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arriviste0/personal-finance-sub000/internal/ledger"
)

// RegisterLedgerRoutes wires fund transfer endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/allocations/:allocationId/deposits", h.Deposit)
	r.Post("/allocations/:allocationId/withdrawals", h.Withdraw)
	r.Post("/entries/:entryId/reversals", h.Reverse)
	r.Get("/users/:userId/entries", h.History)
	r.Get("/users/:userId/wallet", h.WalletBalance)
	r.Post("/users/:userId/wallet/credits", h.CreditWallet)
}
