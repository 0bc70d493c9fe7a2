package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"turn-dispatch/internal/services"
)

type AdminHandler struct {
	app   *pocketbase.PocketBase
	turns *services.TurnService
}

func NewAdminHandler(app *pocketbase.PocketBase, turns *services.TurnService) *AdminHandler {
	return &AdminHandler{
		app:   app,
		turns: turns,
	}
}

// GetQueueDetails - full per-class dump of the waiting queues
func (h *AdminHandler) GetQueueDetails(e *core.RequestEvent) error {
	details := h.turns.QueueDetails()

	return e.JSON(http.StatusOK, map[string]any{
		"counts": details.Counts(),
		"queues": details,
	})
}

// ForceSnapshot - persist the current queue state on demand
func (h *AdminHandler) ForceSnapshot(e *core.RequestEvent) error {
	if err := h.turns.ForceSnapshot(e.Request.Context()); err != nil {
		slog.Error("h.turns.ForceSnapshot()", "error", err)
		return e.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save snapshot",
		})
	}

	return e.JSON(http.StatusOK, map[string]string{
		"message": "Snapshot saved",
	})
}
