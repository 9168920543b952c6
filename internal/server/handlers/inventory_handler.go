package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/service/farm"
	"github.com/mamadbah2/farmstock/internal/service/inventory"
	"github.com/mamadbah2/farmstock/pkg/clients/backend"
)

// InventoryService describes the inventory operations the HTTP layer uses.
type InventoryService interface {
	List(ctx context.Context, farmID models.ID) models.Result[models.InventoryList]
	ListDetailed(ctx context.Context, farmID models.ID) models.Result[models.InventoryList]
	Find(ctx context.Context, farmID models.ID, key models.ItemKey) models.Result[*models.Item]
	Create(ctx context.Context, farmID models.ID, itemType models.ItemType, form map[string]any) models.Result[map[string]any]
	Update(ctx context.Context, itemType models.ItemType, itemID models.ID, form map[string]any) models.Result[map[string]any]
	Delete(ctx context.Context, itemType models.ItemType, itemID models.ID) models.Result[models.ItemKey]
}

// InventoryHandler exposes the inventory service over HTTP.
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// List returns the flattened inventory and its counts. With resolve=true
// every item's details are fetched as well.
func (h *InventoryHandler) List(c *gin.Context) {
	farmID := models.ID(c.Query("farmId"))

	resolve, _ := strconv.ParseBool(c.Query("resolve"))
	if resolve {
		respond(c, h.svc.ListDetailed(c.Request.Context(), farmID))
		return
	}

	respond(c, h.svc.List(c.Request.Context(), farmID))
}

// Get returns one item with resolved details.
func (h *InventoryHandler) Get(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	key := models.ItemKey{Type: itemType, ID: models.ID(c.Param("id"))}
	res := h.svc.Find(c.Request.Context(), models.ID(c.Query("farmId")), key)
	respond(c, res)
}

// Create submits a new item of the type named in the path.
func (h *InventoryHandler) Create(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	form, ok := h.form(c)
	if !ok {
		return
	}

	farmID := models.ID(c.Query("farmId"))
	if farmID == "" {
		if raw, ok := form["farmId"].(string); ok {
			farmID = models.ID(strings.TrimSpace(raw))
		}
	}
	delete(form, "farmId")

	res := h.svc.Create(c.Request.Context(), farmID, itemType, form)
	if !res.Failed() {
		c.JSON(http.StatusCreated, res)
		return
	}
	respond(c, res)
}

// Update patches one item.
func (h *InventoryHandler) Update(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	form, ok := h.form(c)
	if !ok {
		return
	}

	res := h.svc.Update(c.Request.Context(), itemType, models.ID(c.Param("id")), form)
	respond(c, res)
}

// Delete removes one item.
func (h *InventoryHandler) Delete(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	res := h.svc.Delete(c.Request.Context(), itemType, models.ID(c.Param("id")))
	respond(c, res)
}

func (h *InventoryHandler) itemType(c *gin.Context) (models.ItemType, bool) {
	raw := c.Param("type")
	itemType, ok := models.ParseItemType(raw)
	if !ok {
		h.logger.Warn("unknown inventory type in path", zap.String("type", raw))
		c.JSON(http.StatusBadRequest, models.Result[any]{Error: inventory.ErrUnknownItemType.Error() + ": " + raw})
		return "", false
	}
	return itemType, true
}

func (h *InventoryHandler) form(c *gin.Context) (map[string]any, bool) {
	form := map[string]any{}
	if err := c.ShouldBindJSON(&form); err != nil {
		h.logger.Warn("invalid inventory payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.Result[any]{Error: "invalid request body"})
		return nil, false
	}
	return form, true
}

func respond[T any](c *gin.Context, res models.Result[T]) {
	if !res.Failed() {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(res.Err), res)
}

// statusFor maps service failures onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, inventory.ErrUnknownItemType), errors.Is(err, farm.ErrNoActiveFarm):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, inventory.ErrItemNotFound), backend.IsNotFound(err):
		return http.StatusNotFound
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}
}
