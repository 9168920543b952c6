package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/pkg/clients/backend"
)

// ErrItemNotFound indicates no item with the requested type and id exists
// in the farm's inventory.
var ErrItemNotFound = errors.New("inventory item not found")

// FarmResolver supplies the farm used when a request does not name one.
type FarmResolver interface {
	ActiveFarm(ctx context.Context) (*models.Farm, error)
}

// Service runs inventory reads and writes against the backend and reports
// their outcome as models.Result values. Reads degrade to empty or fallback
// data, writes report their failure.
type Service struct {
	client     backend.Client
	farms      FarmResolver
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewService wires the inventory service.
func NewService(client backend.Client, farms FarmResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:     client,
		farms:      farms,
		normalizer: NewNormalizer(client, logger.Named("normalizer")),
		logger:     logger,
	}
}

// Normalizer exposes the normalizer used by the service.
func (s *Service) Normalizer() *Normalizer { return s.normalizer }

// List returns the flattened inventory of farmID, or of the active farm
// when farmID is empty.
func (s *Service) List(ctx context.Context, farmID models.ID) models.Result[models.InventoryList] {
	empty := models.InventoryList{FarmID: farmID, Items: []models.Item{}}

	farmID, err := s.resolveFarm(ctx, farmID)
	if err != nil {
		s.logger.Warn("list inventory: resolve farm", zap.Error(err))
		return models.Fail(empty, err)
	}
	empty.FarmID = farmID

	records, err := s.client.ListInventory(ctx, farmID)
	if err != nil {
		s.logger.Warn("list inventory: backend", zap.String("farm_id", farmID.String()), zap.Error(err))
		return models.Fail(empty, err)
	}

	items := s.normalizer.Flatten(records)
	s.logger.Debug("inventory listed",
		zap.String("farm_id", farmID.String()),
		zap.Int("records", len(records)),
		zap.Int("items", len(items)))

	return models.OK(models.InventoryList{
		FarmID: farmID,
		Items:  items,
		Counts: Count(items),
	})
}

// ListDetailed is List with every item's details resolved. Items whose
// resolution fails are returned as flattened.
func (s *Service) ListDetailed(ctx context.Context, farmID models.ID) models.Result[models.InventoryList] {
	list := s.List(ctx, farmID)
	if list.Failed() || len(list.Data.Items) == 0 {
		return list
	}

	list.Data.Items = s.normalizer.ResolveItemDetails(ctx, list.Data.Items)
	return list
}

// Detail enriches item with freshly fetched data. It never fails; the
// original item is returned when enrichment is not possible.
func (s *Service) Detail(ctx context.Context, item models.Item) models.Result[models.Item] {
	return models.OK(s.normalizer.ResolveItemDetail(ctx, item))
}

// Find locates an item by type and id in the farm's inventory and resolves
// its details.
func (s *Service) Find(ctx context.Context, farmID models.ID, key models.ItemKey) models.Result[*models.Item] {
	list := s.List(ctx, farmID)
	if list.Failed() {
		return models.Fail[*models.Item](nil, list.Err)
	}

	item, found := lo.Find(list.Data.Items, func(item models.Item) bool {
		return item.Key() == key
	})
	if !found {
		return models.Fail[*models.Item](nil, fmt.Errorf("%w: %s", ErrItemNotFound, key))
	}

	resolved := s.normalizer.ResolveItemDetail(ctx, item)
	return models.OK(&resolved)
}

// Create submits a new item of itemType built from form.
func (s *Service) Create(ctx context.Context, farmID models.ID, itemType models.ItemType, form map[string]any) models.Result[map[string]any] {
	body, err := s.normalizer.BuildCreatePayload(form, itemType)
	if err != nil {
		return models.Fail[map[string]any](nil, err)
	}

	farmID, err = s.resolveFarm(ctx, farmID)
	if err != nil {
		return models.Fail[map[string]any](nil, err)
	}
	body["farmId"] = farmID

	if err := s.client.CreateInventory(ctx, body); err != nil {
		s.logger.Error("create inventory item", zap.String("type", string(itemType)), zap.Error(err))
		return models.Fail[map[string]any](nil, err)
	}

	s.logger.Info("inventory item created", zap.String("type", string(itemType)), zap.String("farm_id", farmID.String()))
	return models.OK(body)
}

// Update submits changed fields of one item.
func (s *Service) Update(ctx context.Context, itemType models.ItemType, itemID models.ID, form map[string]any) models.Result[map[string]any] {
	body, err := s.normalizer.BuildUpdatePayload(itemType, form)
	if err != nil {
		return models.Fail[map[string]any](nil, err)
	}
	if itemID == "" {
		return models.Fail[map[string]any](nil, errors.New("item id must be provided"))
	}

	if err := s.client.UpdateItem(ctx, itemType, itemID, body); err != nil {
		s.logger.Error("update inventory item", zap.String("type", string(itemType)), zap.String("item_id", itemID.String()), zap.Error(err))
		return models.Fail[map[string]any](nil, err)
	}

	s.logger.Info("inventory item updated", zap.String("type", string(itemType)), zap.String("item_id", itemID.String()))
	return models.OK(body)
}

// Delete removes one item.
func (s *Service) Delete(ctx context.Context, itemType models.ItemType, itemID models.ID) models.Result[models.ItemKey] {
	key := models.ItemKey{Type: itemType, ID: itemID}
	if !itemType.Valid() {
		return models.Fail(key, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType))
	}
	if itemID == "" {
		return models.Fail(key, errors.New("item id must be provided"))
	}

	if err := s.client.DeleteItem(ctx, itemType, itemID); err != nil {
		s.logger.Error("delete inventory item", zap.String("item", key.String()), zap.Error(err))
		return models.Fail(key, err)
	}

	s.logger.Info("inventory item deleted", zap.String("item", key.String()))
	return models.OK(key)
}

func (s *Service) resolveFarm(ctx context.Context, farmID models.ID) (models.ID, error) {
	if farmID != "" {
		return farmID, nil
	}
	if s.farms == nil {
		return "", errors.New("farm id must be provided")
	}

	farm, err := s.farms.ActiveFarm(ctx)
	if err != nil {
		return "", err
	}
	return farm.ID, nil
}

// Totals aggregates the numeric fields of a flattened list.
type Totals struct {
	GoodsQuantity int     `json:"goodsQuantity"`
	UtilityCosts  float64 `json:"utilityCosts"`
}

// Sum computes Totals. Numeric fields are never unset, so the sums are
// always defined.
func Sum(items []models.Item) Totals {
	var totals Totals
	for _, item := range items {
		switch {
		case item.Goods != nil:
			totals.GoodsQuantity += int(item.Goods.Quantity)
		case item.Utility != nil:
			u := item.Utility
			totals.UtilityCosts += float64(u.InstallationCost + u.ConsumptionCost + u.ConstructionCost + u.MaintenanceCost)
		}
	}
	return totals
}
