package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/farmstock/internal/domain/models"
)

const (
	defaultDetailTimeout = 10 * time.Second
	maxParallelResolves  = 4
)

// ErrUnknownItemType is returned when a payload is requested for a type tag
// other than goodsInStock, machinery or utility.
var ErrUnknownItemType = errors.New("unknown inventory item type")

var errNotAnObject = errors.New("collection element is not an object")

// RecordFetcher loads one inventory record from the backend.
type RecordFetcher interface {
	GetInventory(ctx context.Context, recordID models.ID) (*models.InventoryRecord, error)
}

// Normalizer converts between the backend's nested inventory records and
// the flat item list, and builds write payloads. It holds no state between
// calls.
type Normalizer struct {
	fetcher RecordFetcher
	logger  *zap.Logger
	timeout time.Duration
}

// NewNormalizer wires a normalizer. fetcher is only needed for detail resolution.
func NewNormalizer(fetcher RecordFetcher, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		fetcher: fetcher,
		logger:  logger,
		timeout: defaultDetailTimeout,
	}
}

// WithTimeout overrides the per-request timeout used by detail resolution.
func (n *Normalizer) WithTimeout(timeout time.Duration) *Normalizer {
	if timeout > 0 {
		n.timeout = timeout
	}
	return n
}

// Flatten emits one item per sub-item of every record: records in input
// order, goods then machinery then utilities, original order within each
// collection. Missing or malformed collections are skipped.
func (n *Normalizer) Flatten(records []models.InventoryRecord) []models.Item {
	items := make([]models.Item, 0)

	for _, record := range records {
		for _, itemType := range models.ItemTypes {
			elements := n.collection(record, itemType)

			for idx, raw := range elements {
				item, err := decodeItem(itemType, raw)
				if err != nil {
					n.logger.Warn("skip malformed inventory element",
						zap.String("inventory_id", record.ID.String()),
						zap.String("type", string(itemType)),
						zap.Int("index", idx),
						zap.Error(err))
					continue
				}

				item.InventoryID = record.ID
				item.FarmID = record.FarmID
				items = append(items, item)
			}
		}
	}

	return items
}

// Count tallies items per type. Unrecognised types only count toward Total.
func Count(items []models.Item) models.Counts {
	return models.Counts{
		GoodsInStock: lo.CountBy(items, func(item models.Item) bool { return item.Type == models.ItemTypeGoods }),
		Machinery:    lo.CountBy(items, func(item models.Item) bool { return item.Type == models.ItemTypeMachinery }),
		Utilities:    lo.CountBy(items, func(item models.Item) bool { return item.Type == models.ItemTypeUtility }),
		Total:        len(items),
	}
}

// ResolveItemDetail re-fetches the item's owning record and merges the
// fresh sub-item over the flat item. Any failure returns item unchanged.
func (n *Normalizer) ResolveItemDetail(ctx context.Context, item models.Item) models.Item {
	log := n.logger.With(
		zap.String("type", string(item.Type)),
		zap.String("item_id", item.ID().String()))

	recordID := item.InventoryID
	if recordID == "" {
		recordID = item.ID()
	}
	if recordID == "" {
		log.Warn("resolve item detail: no inventory id")
		return item
	}
	if n.fetcher == nil {
		log.Warn("resolve item detail: no record fetcher configured")
		return item
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	record, err := n.fetcher.GetInventory(ctx, recordID)
	if err != nil {
		log.Warn("resolve item detail: fetch inventory record", zap.String("inventory_id", recordID.String()), zap.Error(err))
		return item
	}
	if record == nil {
		log.Warn("resolve item detail: empty inventory record", zap.String("inventory_id", recordID.String()))
		return item
	}

	raw, ok := n.findSubItem(*record, item.Type, item.ID())
	if !ok {
		log.Warn("resolve item detail: item not found in record", zap.String("inventory_id", recordID.String()))
		return item
	}

	merged, err := mergeItem(item, raw)
	if err != nil {
		log.Warn("resolve item detail: merge fetched item", zap.Error(err))
		return item
	}

	merged.InventoryRecordID = lo.Ternary(record.ID != "", record.ID, recordID)
	if record.FarmID != "" {
		merged.FarmID = record.FarmID
	}

	var own struct {
		CreatedAt models.Text `json:"createdAt"`
		UpdatedAt models.Text `json:"updatedAt"`
	}
	_ = json.Unmarshal(raw, &own)

	createdAt, updatedAt := merged.Timestamps()
	*createdAt = lo.CoalesceOrEmpty(own.CreatedAt, record.CreatedAt, *createdAt)
	*updatedAt = lo.CoalesceOrEmpty(own.UpdatedAt, record.UpdatedAt, *updatedAt)

	log.Debug("item detail resolved", zap.String("inventory_id", merged.InventoryRecordID.String()))
	return merged
}

// ResolveItemDetails resolves a batch of items concurrently. The output
// keeps input order and every element degrades independently.
func (n *Normalizer) ResolveItemDetails(ctx context.Context, items []models.Item) []models.Item {
	out := make([]models.Item, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelResolves)

	for idx, item := range items {
		g.Go(func() error {
			out[idx] = n.ResolveItemDetail(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// collectionKeys returns the candidate raw collections for a type. The
// backend has been seen sending both "utilities" and "utility".
func collectionKeys(record models.InventoryRecord, itemType models.ItemType) []json.RawMessage {
	switch itemType {
	case models.ItemTypeGoods:
		return []json.RawMessage{record.GoodsInStock}
	case models.ItemTypeMachinery:
		return []json.RawMessage{record.Machinery}
	case models.ItemTypeUtility:
		return []json.RawMessage{record.Utilities, record.Utility}
	default:
		return nil
	}
}

// collection returns the first array-valued candidate collection.
func (n *Normalizer) collection(record models.InventoryRecord, itemType models.ItemType) []json.RawMessage {
	for _, raw := range collectionKeys(record, itemType) {
		if isNull(raw) {
			continue
		}

		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			n.logger.Warn("inventory collection is not an array",
				zap.String("inventory_id", record.ID.String()),
				zap.String("type", string(itemType)))
			continue
		}
		return elements
	}
	return nil
}

// findSubItem looks the item up by id in the record's collection for
// itemType. Collections may come back as a single object or an array.
func (n *Normalizer) findSubItem(record models.InventoryRecord, itemType models.ItemType, id models.ID) (json.RawMessage, bool) {
	if id == "" {
		return nil, false
	}

	for _, raw := range collectionKeys(record, itemType) {
		raw = bytes.TrimSpace(raw)
		if isNull(raw) {
			continue
		}

		var elements []json.RawMessage
		switch raw[0] {
		case '[':
			if err := json.Unmarshal(raw, &elements); err != nil {
				continue
			}
		case '{':
			elements = []json.RawMessage{raw}
		default:
			continue
		}

		for _, element := range elements {
			if elementID(element) == id {
				return element, true
			}
		}
	}

	return nil, false
}

func decodeItem(itemType models.ItemType, raw json.RawMessage) (models.Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.Item{}, errNotAnObject
	}

	item := models.Item{Type: itemType}
	id := elementID(raw)

	var err error
	switch itemType {
	case models.ItemTypeGoods:
		item.Goods = new(models.GoodsItem)
		err = json.Unmarshal(raw, item.Goods)
		item.Goods.ID = id
	case models.ItemTypeMachinery:
		item.Machinery = new(models.MachineryItem)
		err = json.Unmarshal(raw, item.Machinery)
		item.Machinery.ID = id
	case models.ItemTypeUtility:
		item.Utility = new(models.UtilityItem)
		err = json.Unmarshal(raw, item.Utility)
		item.Utility.ID = id
	default:
		return models.Item{}, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType)
	}
	if err != nil {
		return models.Item{}, fmt.Errorf("decode %s element: %w", itemType, err)
	}

	return item, nil
}

// mergeItem overlays the fields present in raw onto a copy of item's payload.
func mergeItem(item models.Item, raw json.RawMessage) (models.Item, error) {
	merged := item
	id := elementID(raw)

	var err error
	switch item.Type {
	case models.ItemTypeGoods:
		payload := models.GoodsItem{}
		if item.Goods != nil {
			payload = *item.Goods
		}
		err = json.Unmarshal(raw, &payload)
		payload.ID = id
		merged.Goods = &payload
	case models.ItemTypeMachinery:
		payload := models.MachineryItem{}
		if item.Machinery != nil {
			payload = *item.Machinery
		}
		err = json.Unmarshal(raw, &payload)
		payload.ID = id
		merged.Machinery = &payload
	case models.ItemTypeUtility:
		payload := models.UtilityItem{}
		if item.Utility != nil {
			payload = *item.Utility
		}
		err = json.Unmarshal(raw, &payload)
		payload.ID = id
		merged.Utility = &payload
	default:
		return item, fmt.Errorf("%w: %q", ErrUnknownItemType, item.Type)
	}
	if err != nil {
		return item, err
	}

	return merged, nil
}

// elementID reads "id", falling back to MongoDB's "_id".
func elementID(raw json.RawMessage) models.ID {
	var head struct {
		ID      models.ID `json:"id"`
		MongoID models.ID `json:"_id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return lo.CoalesceOrEmpty(head.ID, head.MongoID)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
