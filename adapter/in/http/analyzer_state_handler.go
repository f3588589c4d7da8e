package http

import (
	"errors"

	"analyzer_server/adapter/out/statefile"

	"github.com/gofiber/fiber/v2"
)

// StateHandler exposes the legacy state-file view of extracted items.
type StateHandler struct {
	store *statefile.Store
}

func NewStateHandler(store *statefile.Store) *StateHandler {
	return &StateHandler{store: store}
}

func (h *StateHandler) Register(app fiber.Router) {
	state := app.Group("/email_state")
	state.Get("/", h.Get)
	state.Patch("/items/:id", h.ToggleCalendar)
	state.Delete("/items/:id", h.Delete)
}

// Get returns the full account-to-items snapshot.
func (h *StateHandler) Get(c *fiber.Ctx) error {
	state, err := h.store.Read()
	if err != nil {
		return InternalErrorResponse(c, err, "read state")
	}
	return c.JSON(state)
}

// ToggleCalendar flips the added_to_calendar flag on one item.
func (h *StateHandler) ToggleCalendar(c *fiber.Ctx) error {
	id := c.Params("id")
	item, err := h.store.ToggleCalendar(id)
	if err != nil {
		if errors.Is(err, statefile.ErrItemNotFound) {
			return ErrorResponse(c, 404, "item not found")
		}
		return InternalErrorResponse(c, err, "update state")
	}
	return SuccessResponse(c, item)
}

// Delete removes one item from the snapshot.
func (h *StateHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, statefile.ErrItemNotFound) {
			return ErrorResponse(c, 404, "item not found")
		}
		return InternalErrorResponse(c, err, "delete state item")
	}
	return SuccessResponse(c, fiber.Map{"deleted": id})
}
