package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"turn-dispatch/internal/services"
	"turn-dispatch/internal/status"
)

type TurnHandler struct {
	app   *pocketbase.PocketBase
	turns *services.TurnService
}

func NewTurnHandler(app *pocketbase.PocketBase, turns *services.TurnService) *TurnHandler {
	return &TurnHandler{
		app:   app,
		turns: turns,
	}
}

// Submit - register a new turn request
func (h *TurnHandler) Submit(e *core.RequestEvent) error {
	var req services.SubmitRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, err := h.turns.SubmitTicket(e.Request.Context(), req)
	if err != nil {
		var verr *status.ValidationError
		if errors.As(err, &verr) {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{
				"code":  verr.Code,
				"field": verr.Field,
				"error": verr.Message,
			})
		}

		slog.Error("h.turns.SubmitTicket()", "error", err)
		return e.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to persist ticket",
		})
	}

	return e.JSON(http.StatusCreated, result)
}

// DispatchNext - serve the next waiting ticket
func (h *TurnHandler) DispatchNext(e *core.RequestEvent) error {
	result, err := h.turns.DispatchNext(e.Request.Context())
	if err != nil {
		if errors.Is(err, status.ErrNoneWaiting) {
			return e.JSON(http.StatusOK, map[string]any{
				"status":  "none_waiting",
				"message": "No tickets waiting",
			})
		}

		slog.Error("h.turns.DispatchNext()", "error", err)
		return e.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to persist dispatch",
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":       "served",
		"ticket":       result.Ticket,
		"class_served": result.Class,
		"remaining":    result.Remaining,
	})
}

// Status - aggregate counts plus upcoming previews per class
func (h *TurnHandler) Status(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, h.turns.QueueStatus())
}

// Lookup - find a waiting ticket by id
func (h *TurnHandler) Lookup(e *core.RequestEvent) error {
	raw := e.Request.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return apis.NewBadRequestError("Invalid ticket id", err)
	}

	ticket, err := h.turns.LookupTicket(id)
	if err != nil {
		return apis.NewNotFoundError("Ticket not found", err)
	}

	return e.JSON(http.StatusOK, ticket)
}
