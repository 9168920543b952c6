package inventory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmstock/internal/domain/models"
)

// isoLayout matches the millisecond UTC timestamps the backend stores.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type fieldKind int

const (
	textField fieldKind = iota
	intField
	floatField
	dateField
	conditionField
)

type fieldSpec struct {
	name string
	kind fieldKind
}

var itemFields = map[models.ItemType][]fieldSpec{
	models.ItemTypeGoods: {
		{"itemName", textField},
		{"sku", textField},
		{"quantity", intField},
		{"currentLocation", textField},
		{"condition", conditionField},
		{"expirationDate", dateField},
	},
	models.ItemTypeMachinery: {
		{"equipmentName", textField},
		{"equipmentId", textField},
		{"purchaseDate", dateField},
		{"currentLocation", textField},
		{"condition", conditionField},
		{"lastServiceDate", dateField},
		{"nextServiceDate", dateField},
	},
	models.ItemTypeUtility: {
		{"utilityType", textField},
		{"waterLevel", intField},
		{"waterSource", textField},
		{"waterStorage", intField},
		{"powerSource", textField},
		{"powerCapacity", textField},
		{"installationCost", floatField},
		{"consumptionRate", floatField},
		{"consumptionCost", floatField},
		{"structureType", textField},
		{"structureCapacity", textField},
		{"constructionCost", floatField},
		{"entryDate", dateField},
		{"facilityCondition", conditionField},
		{"lastMaintenanceDate", dateField},
		{"maintenanceCost", floatField},
	},
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BuildCreatePayload returns the create body fragment {type: fields}.
// Form fields are passed through; numeric fields are always present and
// default to zero, and utilityType defaults to water. The caller adds
// farmId before submitting.
func (n *Normalizer) BuildCreatePayload(form map[string]any, itemType models.ItemType) (map[string]any, error) {
	if !itemType.Valid() {
		n.logger.Warn("build create payload: unknown inventory type", zap.String("type", string(itemType)))
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType)
	}

	fields := n.coerce(itemType, form, false)
	return map[string]any{string(itemType): fields}, nil
}

// BuildUpdatePayload returns the flat body for a per-item update endpoint.
// It applies the same per-type coercion as BuildCreatePayload with two
// differences: numeric fields absent from the form are left out rather than
// zeroed, so a partial edit keeps the stored values, and utilityType is only
// defaulted to water when the form sends it blank. Dates are normalised to
// ISO-8601 UTC timestamps.
func (n *Normalizer) BuildUpdatePayload(itemType models.ItemType, form map[string]any) (map[string]any, error) {
	if !itemType.Valid() {
		n.logger.Warn("build update payload: unknown inventory type", zap.String("type", string(itemType)))
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType)
	}

	return n.coerce(itemType, form, true), nil
}

// coerce copies every form field and then rewrites the typed ones.
func (n *Normalizer) coerce(itemType models.ItemType, form map[string]any, update bool) map[string]any {
	out := make(map[string]any, len(form)+len(itemFields[itemType]))
	for key, value := range form {
		out[key] = value
	}

	for _, field := range itemFields[itemType] {
		value, present := form[field.name]
		if present && value == nil {
			present = false
		}

		switch field.kind {
		case intField:
			if present || !update {
				out[field.name] = models.ParseInt(value)
			} else {
				delete(out, field.name)
			}
		case floatField:
			if present || !update {
				out[field.name] = models.ParseFloat(value)
			} else {
				delete(out, field.name)
			}
		case dateField:
			if !update {
				continue
			}
			if !present {
				delete(out, field.name)
				continue
			}
			iso, ok := isoTimestamp(value)
			if !ok {
				n.logger.Warn("drop unparseable date field",
					zap.String("type", string(itemType)),
					zap.String("field", field.name),
					zap.Any("value", value))
				delete(out, field.name)
				continue
			}
			if iso == "" {
				delete(out, field.name)
				continue
			}
			out[field.name] = iso
		case conditionField:
			if s, ok := value.(string); ok && !models.IsCanonicalCondition(s) {
				n.logger.Debug("non-canonical condition",
					zap.String("type", string(itemType)),
					zap.String("field", field.name),
					zap.String("value", s))
			}
		}
	}

	if itemType == models.ItemTypeUtility {
		value, set := out["utilityType"]
		if (!set && !update) || (set && isBlank(value)) {
			out["utilityType"] = models.UtilityWater
		}
	}

	return out
}

// isoTimestamp converts a form date value. Empty values yield ("", true).
func isoTimestamp(value any) (string, bool) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return "", true
		}
		return v.UTC().Format(isoLayout), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return "", true
		}
		return v.UTC().Format(isoLayout), true
	case float64:
		return time.UnixMilli(int64(v)).UTC().Format(isoLayout), true
	case int64:
		return time.UnixMilli(v).UTC().Format(isoLayout), true
	case int:
		return time.UnixMilli(int64(v)).UTC().Format(isoLayout), true
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return "", false
		}
		return time.UnixMilli(ms).UTC().Format(isoLayout), true
	case models.Text:
		return isoTimestamp(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(isoLayout), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}
