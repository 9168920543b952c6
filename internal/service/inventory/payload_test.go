package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmstock/internal/domain/models"
)

func TestBuildCreatePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		itemType models.ItemType
		form     map[string]any
		want     map[string]any
	}{
		{
			name:     "goods numeric coercion from string",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"itemName": "Feed", "quantity": "5"},
			want: map[string]any{
				"goodsInStock": map[string]any{"itemName": "Feed", "quantity": 5},
			},
		},
		{
			name:     "goods non-numeric quantity becomes zero",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"itemName": "Feed", "quantity": "abc"},
			want: map[string]any{
				"goodsInStock": map[string]any{"itemName": "Feed", "quantity": 0},
			},
		},
		{
			name:     "goods missing quantity defaults to zero and dates pass through",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"itemName": "Seeds", "expirationDate": "2025-06-01", "extra": "ignored"},
			want: map[string]any{
				"goodsInStock": map[string]any{"itemName": "Seeds", "quantity": 0, "expirationDate": "2025-06-01", "extra": "ignored"},
			},
		},
		{
			name:     "machinery keeps text and dates as given",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"equipmentName": "Tractor", "nextServiceDate": "2025-01-10", "condition": "good"},
			want: map[string]any{
				"machinery": map[string]any{"equipmentName": "Tractor", "nextServiceDate": "2025-01-10", "condition": "good"},
			},
		},
		{
			name:     "machinery passes through fields it does not coerce",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"equipmentName": "Tractor", "serialNumber": "X1"},
			want: map[string]any{
				"machinery": map[string]any{"equipmentName": "Tractor", "serialNumber": "X1"},
			},
		},
		{
			name:     "free text condition is kept",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"equipmentName": "Pump", "condition": "needs a new belt"},
			want: map[string]any{
				"machinery": map[string]any{"equipmentName": "Pump", "condition": "needs a new belt"},
			},
		},
		{
			name:     "utility defaults type to water and zeroes numerics",
			itemType: models.ItemTypeUtility,
			form:     map[string]any{"waterLevel": "75.9", "consumptionCost": "12.5kg"},
			want: map[string]any{
				"utility": map[string]any{
					"utilityType":      models.UtilityWater,
					"waterLevel":       75,
					"waterStorage":     0,
					"installationCost": 0.0,
					"consumptionRate":  0.0,
					"consumptionCost":  12.5,
					"constructionCost": 0.0,
					"maintenanceCost":  0.0,
				},
			},
		},
		{
			name:     "utility keeps an explicit type",
			itemType: models.ItemTypeUtility,
			form:     map[string]any{"utilityType": "power", "powerSource": "solar", "installationCost": 1500},
			want: map[string]any{
				"utility": map[string]any{
					"utilityType":      "power",
					"powerSource":      "solar",
					"waterLevel":       0,
					"waterStorage":     0,
					"installationCost": 1500.0,
					"consumptionRate":  0.0,
					"consumptionCost":  0.0,
					"constructionCost": 0.0,
					"maintenanceCost":  0.0,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewNormalizer(nil, nil).BuildCreatePayload(tt.form, tt.itemType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCreatePayloadNumericTypes(t *testing.T) {
	t.Parallel()

	got, err := NewNormalizer(nil, nil).BuildCreatePayload(map[string]any{"quantity": 7.9}, models.ItemTypeGoods)
	require.NoError(t, err)

	fields, ok := got[string(models.ItemTypeGoods)].(map[string]any)
	require.True(t, ok)
	assert.IsType(t, 0, fields["quantity"])
	assert.Equal(t, 7, fields["quantity"])
}

func TestBuildPayloadUnknownType(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil, nil)

	created, err := n.BuildCreatePayload(map[string]any{"quantity": "1"}, "bogus")
	assert.Nil(t, created)
	assert.True(t, errors.Is(err, ErrUnknownItemType))

	updated, err := n.BuildUpdatePayload("bogus", map[string]any{"quantity": "1"})
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, ErrUnknownItemType)
}

func TestBuildUpdatePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		itemType models.ItemType
		form     map[string]any
		want     map[string]any
	}{
		{
			name:     "goods date normalised to iso",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"quantity": "3", "expirationDate": "2025-06-01"},
			want:     map[string]any{"quantity": 3, "expirationDate": "2025-06-01T00:00:00.000Z"},
		},
		{
			name:     "absent numerics are left out",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"itemName": "Feed"},
			want:     map[string]any{"itemName": "Feed"},
		},
		{
			name:     "offset timestamps converted to utc",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"lastServiceDate": "2024-12-31T23:30:00+01:00"},
			want:     map[string]any{"lastServiceDate": "2024-12-31T22:30:00.000Z"},
		},
		{
			name:     "time values and empty dates",
			itemType: models.ItemTypeMachinery,
			form: map[string]any{
				"purchaseDate":    time.Date(2023, 3, 4, 5, 6, 7, 8_000_000, time.UTC),
				"nextServiceDate": "",
			},
			want: map[string]any{"purchaseDate": "2023-03-04T05:06:07.008Z"},
		},
		{
			name:     "unparseable dates are dropped",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"equipmentName": "Plough", "purchaseDate": "next tuesday"},
			want:     map[string]any{"equipmentName": "Plough"},
		},
		{
			name:     "utility update does not force a type",
			itemType: models.ItemTypeUtility,
			form:     map[string]any{"maintenanceCost": "40.25", "lastMaintenanceDate": "2024-05-05"},
			want:     map[string]any{"maintenanceCost": 40.25, "lastMaintenanceDate": "2024-05-05T00:00:00.000Z"},
		},
		{
			name:     "unknown fields pass through",
			itemType: models.ItemTypeMachinery,
			form:     map[string]any{"serialNumber": "X1", "warrantyMonths": 24},
			want:     map[string]any{"serialNumber": "X1", "warrantyMonths": 24},
		},
		{
			name:     "null numerics and dates are left out",
			itemType: models.ItemTypeGoods,
			form:     map[string]any{"itemName": "Feed", "quantity": nil, "expirationDate": nil},
			want:     map[string]any{"itemName": "Feed"},
		},
		{
			name:     "blank utility type falls back to water",
			itemType: models.ItemTypeUtility,
			form:     map[string]any{"utilityType": "  "},
			want:     map[string]any{"utilityType": models.UtilityWater},
		},
		{
			name:     "null utility type falls back to water",
			itemType: models.ItemTypeUtility,
			form:     map[string]any{"utilityType": nil},
			want:     map[string]any{"utilityType": models.UtilityWater},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewNormalizer(nil, nil).BuildUpdatePayload(tt.itemType, tt.form)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPayloadDoesNotModifyForm(t *testing.T) {
	t.Parallel()

	form := map[string]any{"quantity": "4", "expirationDate": "2025-06-01", "note": "keep"}
	_, err := NewNormalizer(nil, nil).BuildUpdatePayload(models.ItemTypeGoods, form)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"quantity": "4", "expirationDate": "2025-06-01", "note": "keep"}, form)
}
