package scheduler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/atlas-bank/atlas_core/internal/ledger"
)

// Handler exposes scheduled-transfer endpoints.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler constructs a scheduled-transfer handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

type scheduleRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	ExecuteAt     time.Time       `json:"execute_at"`
}

type scheduledResponse struct {
	ID            string    `json:"id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        string    `json:"amount"`
	ExecuteAt     time.Time `json:"execute_at"`
	Processed     bool      `json:"processed"`
}

func toScheduledResponse(st ledger.ScheduledTransfer) scheduledResponse {
	return scheduledResponse{
		ID:            st.ID,
		FromAccountID: st.FromAccountID,
		ToAccountID:   st.ToAccountID,
		Amount:        st.Amount.StringFixed(2),
		ExecuteAt:     st.ExecuteAt,
		Processed:     st.Processed,
	}
}

// Create queues a transfer for future execution.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	st, err := h.dispatcher.Schedule(c.UserContext(), req.FromAccountID, req.ToAccountID, req.Amount, req.ExecuteAt)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrValidation):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toScheduledResponse(st))
}

// Pending lists unprocessed scheduled transfers.
func (h *Handler) Pending(c *fiber.Ctx) error {
	pending, err := h.dispatcher.Pending(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]scheduledResponse, 0, len(pending))
	for _, st := range pending {
		out = append(out, toScheduledResponse(st))
	}
	return c.JSON(out)
}

// RunDue triggers a due-transfer scan immediately. The cron runner calls
// the same entry point on its cadence.
func (h *Handler) RunDue(c *fiber.Ctx) error {
	h.dispatcher.RunDueTransfers(c.UserContext(), time.Now().UTC())
	return c.SendStatus(http.StatusAccepted)
}
