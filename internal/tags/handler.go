package tags

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/sightline/internal/dto"
	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/shared"
	"github.com/labstack/echo/v4"
)

// Refresher is told when a device's tags change outside its live session.
type Refresher interface {
	RefreshTags(deviceID string)
}

type Handler struct {
	kv        kv.Store
	refresher Refresher
	logger    *slog.Logger
}

func NewHandler(store kv.Store, refresher Refresher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		kv:        store,
		refresher: refresher,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.DELETE("", h.Clear)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) storeFor(c echo.Context) (*Store, string, error) {
	deviceID := c.Param("device")
	if deviceID == "" {
		return nil, "", shared.BadRequest("missing_device", "device is required")
	}
	if !shared.ValidDeviceID(deviceID) {
		return nil, "", shared.BadRequest("invalid_device", "invalid device id")
	}
	return NewStore(h.kv, Config{DeviceID: deviceID, Logger: h.logger}), deviceID, nil
}

func (h *Handler) notify(deviceID string) {
	if h.refresher != nil {
		h.refresher.RefreshTags(deviceID)
	}
}

// ToResponse renders a tag for the REST API and the device tag list.
func ToResponse(t Tag) dto.TagResponse {
	return dto.TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// List godoc
// @Summary      List memory tags
// @Description  Returns the saved memory tags for a device
// @Tags         tags
// @Produce      json
// @Param        device  path      string  true  "Device ID"
// @Success      200     {object}  dto.TagListResponse
// @Failure      400     {object}  shared.APIError
// @Failure      500     {object}  shared.APIError
// @Router       /devices/{device}/tags [get]
func (h *Handler) List(c echo.Context) error {
	store, deviceID, err := h.storeFor(c)
	if err != nil {
		return err
	}

	list, err := store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list tags", "error", err, "device_id", deviceID)
		return shared.InternalError("list_failed", "failed to list tags")
	}

	response := make([]dto.TagResponse, len(list))
	for i, t := range list {
		response[i] = ToResponse(t)
	}

	return c.JSON(http.StatusOK, dto.TagListResponse{Tags: response, Limit: store.max})
}

// Delete godoc
// @Summary      Delete a memory tag
// @Description  Removes one tag. Unknown ids are ignored.
// @Tags         tags
// @Param        device  path  string  true  "Device ID"
// @Param        id      path  string  true  "Tag ID"
// @Success      204  "No Content"
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /devices/{device}/tags/{id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	store, deviceID, err := h.storeFor(c)
	if err != nil {
		return err
	}

	tagID := c.Param("id")
	if err := store.Remove(c.Request().Context(), tagID); err != nil {
		h.logger.Error("failed to delete tag", "error", err, "device_id", deviceID, "tag_id", tagID)
		return shared.InternalError("delete_failed", "failed to delete tag")
	}

	h.notify(deviceID)
	return c.NoContent(http.StatusNoContent)
}

// Clear godoc
// @Summary      Clear memory tags
// @Description  Removes every tag saved for a device
// @Tags         tags
// @Param        device  path  string  true  "Device ID"
// @Success      204  "No Content"
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /devices/{device}/tags [delete]
func (h *Handler) Clear(c echo.Context) error {
	store, deviceID, err := h.storeFor(c)
	if err != nil {
		return err
	}

	if err := store.Clear(c.Request().Context()); err != nil {
		h.logger.Error("failed to clear tags", "error", err, "device_id", deviceID)
		return shared.InternalError("clear_failed", "failed to clear tags")
	}

	h.notify(deviceID)
	return c.NoContent(http.StatusNoContent)
}
