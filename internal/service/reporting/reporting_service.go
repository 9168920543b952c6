package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/repository/mongodb"
	repo "github.com/mamadbah2/farmstock/internal/repository/sheets"
	"github.com/mamadbah2/farmstock/internal/service/inventory"
	"github.com/mamadbah2/farmstock/pkg/clients/whatsapp"
)

const (
	dateLayout           = "2006-01-02"
	inventoryExportRange = "Inventory!A:H"
	expiryWindow         = 14 * 24 * time.Hour
	serviceWindow        = 7 * 24 * time.Hour
)

// InventoryLister is the part of the inventory service the digest needs.
type InventoryLister interface {
	List(ctx context.Context, farmID models.ID) models.Result[models.InventoryList]
}

// Digest is one generated inventory report.
type Digest struct {
	FarmID   models.ID
	Text     string
	Snapshot models.InventorySnapshot
	Items    []models.Item
}

// Service builds inventory digests and distributes them.
type Service struct {
	inventory InventoryLister
	snapshots mongodb.SnapshotRepository
	sheets    repo.Repository
	messenger whatsapp.Client
	recipient string
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. snapshots, sheets and
// messenger are optional; nil disables the matching output.
func NewService(lister InventoryLister, snapshots mongodb.SnapshotRepository, sheets repo.Repository, messenger whatsapp.Client, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		inventory: lister,
		snapshots: snapshots,
		sheets:    sheets,
		messenger: messenger,
		recipient: recipient,
		logger:    logger,
	}
}

// InventoryDigest summarises the farm's inventory as of now.
func (s *Service) InventoryDigest(ctx context.Context, farmID models.ID, now time.Time) (*Digest, error) {
	list := s.inventory.List(ctx, farmID)
	if list.Failed() {
		cause := list.Err
		if cause == nil {
			cause = errors.New(list.Error)
		}
		return nil, fmt.Errorf("load inventory: %w", cause)
	}

	items := list.Data.Items
	counts := inventory.Count(items)
	totals := inventory.Sum(items)

	outOfStock := lo.Filter(items, func(item models.Item, _ int) bool {
		return item.Goods != nil && item.Goods.Quantity <= 0
	})
	expiring := lo.Filter(items, func(item models.Item, _ int) bool {
		if item.Goods == nil {
			return false
		}
		date, err := parseDate(item.Goods.ExpirationDate)
		return err == nil && !date.After(now.Add(expiryWindow))
	})
	serviceDue := lo.Filter(items, func(item models.Item, _ int) bool {
		if item.Machinery == nil {
			return false
		}
		date, err := parseDate(item.Machinery.NextServiceDate)
		return err == nil && !date.After(now.Add(serviceWindow))
	})

	snapshot := models.InventorySnapshot{
		FarmID:         list.Data.FarmID.String(),
		Date:           now,
		GoodsCount:     counts.GoodsInStock,
		MachineryCount: counts.Machinery,
		UtilityCount:   counts.Utilities,
		TotalItems:     counts.Total,
		GoodsQuantity:  totals.GoodsQuantity,
		OutOfStock:     len(outOfStock),
		ExpiringSoon:   len(expiring),
		ServiceDue:     len(serviceDue),
		UtilityCosts:   totals.UtilityCosts,
		CreatedAt:      time.Now().UTC(),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inventory report (%s)\n", now.Format(dateLayout))
	fmt.Fprintf(&b, "Items: %d (goods %d, machinery %d, utilities %d)\n", counts.Total, counts.GoodsInStock, counts.Machinery, counts.Utilities)
	fmt.Fprintf(&b, "Goods in stock: %d units. Utility costs: %.2f\n", totals.GoodsQuantity, totals.UtilityCosts)
	writeSection(&b, "Out of stock", outOfStock, func(item models.Item) string { return item.Name() })
	writeSection(&b, "Expiring within 14 days", expiring, func(item models.Item) string {
		return fmt.Sprintf("%s (%s)", item.Name(), shortDate(item.Goods.ExpirationDate))
	})
	writeSection(&b, "Service due within 7 days", serviceDue, func(item models.Item) string {
		return fmt.Sprintf("%s (%s)", item.Name(), shortDate(item.Machinery.NextServiceDate))
	})

	return &Digest{
		FarmID:   list.Data.FarmID,
		Text:     strings.TrimRight(b.String(), "\n"),
		Snapshot: snapshot,
		Items:    items,
	}, nil
}

// Run builds the digest, stores its snapshot, exports the item list and
// sends the text. Output failures are joined into the returned error; the
// digest is returned whenever it could be built.
func (s *Service) Run(ctx context.Context, farmID models.ID, now time.Time) (*Digest, error) {
	digest, err := s.InventoryDigest(ctx, farmID, now)
	if err != nil {
		return nil, err
	}

	var errs []error

	if s.snapshots != nil {
		if err := s.snapshots.SaveInventorySnapshot(ctx, digest.Snapshot); err != nil {
			s.logger.Error("failed to save inventory snapshot", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if s.sheets != nil {
		if err := s.export(ctx, digest, now); err != nil {
			s.logger.Error("failed to export inventory", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if s.messenger != nil && s.recipient != "" {
		_, err := s.messenger.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{
			To:   s.recipient,
			Body: digest.Text,
		})
		if err != nil {
			s.logger.Error("failed to send inventory digest", zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.logger.Info("inventory digest generated",
		zap.String("farm_id", digest.FarmID.String()),
		zap.Int("items", digest.Snapshot.TotalItems))

	return digest, errors.Join(errs...)
}

func (s *Service) export(ctx context.Context, digest *Digest, now time.Time) error {
	rows := lo.Map(digest.Items, func(item models.Item, _ int) []interface{} {
		return exportRow(item, now)
	})
	if err := s.sheets.AppendRows(ctx, inventoryExportRange, rows); err != nil {
		return fmt.Errorf("export inventory: %w", err)
	}
	return nil
}

func exportRow(item models.Item, now time.Time) []interface{} {
	var amount interface{}
	var condition, location string

	switch {
	case item.Goods != nil:
		amount = int(item.Goods.Quantity)
		condition = string(item.Goods.Condition)
		location = string(item.Goods.CurrentLocation)
	case item.Machinery != nil:
		amount = 1
		condition = string(item.Machinery.Condition)
		location = string(item.Machinery.CurrentLocation)
	case item.Utility != nil:
		amount = int(item.Utility.WaterLevel)
		condition = string(item.Utility.FacilityCondition)
	}

	return []interface{}{
		now.Format(dateLayout),
		item.FarmID.String(),
		string(item.Type),
		item.ID().String(),
		item.Name(),
		amount,
		condition,
		location,
	}
}

func writeSection(b *strings.Builder, title string, items []models.Item, line func(models.Item) string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", line(item))
	}
}

func parseDate(value models.Text) (time.Time, error) {
	str := strings.TrimSpace(string(value))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func shortDate(value models.Text) string {
	if date, err := parseDate(value); err == nil {
		return date.Format(dateLayout)
	}
	return string(value)
}
