package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

type transactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Amount:      tx.Amount.StringFixed(2),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// RegisterTransactionRoutes wires the read side of the transaction journal.
// Writes only ever happen through the money-movement services, so these
// endpoints go straight to the store.
func RegisterTransactionRoutes(r fiber.Router, store ledger.Store) {
	r.Get("/transactions", func(c *fiber.Ctx) error {
		txs, err := store.Transactions(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			out = append(out, toTransactionResponse(tx))
		}
		return c.JSON(out)
	})

	r.Get("/transactions/:transactionId", func(c *fiber.Ctx) error {
		tx, err := store.Transaction(c.UserContext(), c.Params("transactionId"))
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, err.Error())
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(toTransactionResponse(tx))
	})

	r.Get("/accounts/:accountId/transactions", func(c *fiber.Ctx) error {
		if _, err := store.Account(c.UserContext(), c.Params("accountId")); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, err.Error())
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		txs, err := store.TransactionsByAccount(c.UserContext(), c.Params("accountId"))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			out = append(out, toTransactionResponse(tx))
		}
		return c.JSON(out)
	})
}
