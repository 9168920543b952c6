package inventory

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/pkg/clients/backend"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListInventory(ctx context.Context, farmID models.ID) ([]models.InventoryRecord, error) {
	args := m.Called(ctx, farmID)
	records, _ := args.Get(0).([]models.InventoryRecord)
	return records, args.Error(1)
}

func (m *mockBackend) GetInventory(ctx context.Context, recordID models.ID) (*models.InventoryRecord, error) {
	args := m.Called(ctx, recordID)
	record, _ := args.Get(0).(*models.InventoryRecord)
	return record, args.Error(1)
}

func (m *mockBackend) CreateInventory(ctx context.Context, body map[string]any) error {
	return m.Called(ctx, body).Error(0)
}

func (m *mockBackend) UpdateItem(ctx context.Context, itemType models.ItemType, itemID models.ID, body map[string]any) error {
	return m.Called(ctx, itemType, itemID, body).Error(0)
}

func (m *mockBackend) DeleteItem(ctx context.Context, itemType models.ItemType, itemID models.ID) error {
	return m.Called(ctx, itemType, itemID).Error(0)
}

type staticFarm struct {
	farm *models.Farm
	err  error
}

func (s staticFarm) ActiveFarm(context.Context) (*models.Farm, error) { return s.farm, s.err }

const sampleRecords = `[{
	"id": "rec1",
	"farmId": "farmA",
	"goodsInStock": [{"id": "g1", "itemName": "Feed", "quantity": 10}],
	"machinery": [{"id": "m1", "equipmentName": "Tractor"}],
	"utilities": [{"id": "u1", "utilityType": "water", "waterLevel": 50, "maintenanceCost": 12.5}]
}]`

func TestServiceList(t *testing.T) {
	t.Parallel()

	t.Run("uses active farm when none given", func(t *testing.T) {
		t.Parallel()

		client := new(mockBackend)
		client.On("ListInventory", mock.Anything, models.ID("farmA")).Return(decodeRecords(t, sampleRecords), nil).Once()

		svc := NewService(client, staticFarm{farm: &models.Farm{ID: "farmA"}}, nil)
		result := svc.List(context.Background(), "")

		require.False(t, result.Failed())
		assert.Equal(t, models.ID("farmA"), result.Data.FarmID)
		assert.Len(t, result.Data.Items, 3)
		assert.Equal(t, models.Counts{GoodsInStock: 1, Machinery: 1, Utilities: 1, Total: 3}, result.Data.Counts)
		client.AssertExpectations(t)
	})

	t.Run("backend failure degrades to empty list", func(t *testing.T) {
		t.Parallel()

		client := new(mockBackend)
		client.On("ListInventory", mock.Anything, models.ID("farmB")).
			Return(nil, &backend.APIError{Status: http.StatusInternalServerError, Message: "down"}).Once()

		result := NewService(client, nil, nil).List(context.Background(), "farmB")

		assert.True(t, result.Failed())
		assert.Contains(t, result.Error, "down")
		assert.NotNil(t, result.Data.Items)
		assert.Empty(t, result.Data.Items)
		assert.Equal(t, models.ID("farmB"), result.Data.FarmID)
	})

	t.Run("no farm available", func(t *testing.T) {
		t.Parallel()

		client := new(mockBackend)
		result := NewService(client, staticFarm{err: errors.New("no active farm")}, nil).List(context.Background(), "")

		assert.True(t, result.Failed())
		assert.Empty(t, result.Data.Items)
		client.AssertNotCalled(t, "ListInventory", mock.Anything, mock.Anything)
	})
}

func TestServiceFind(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("ListInventory", mock.Anything, models.ID("farmA")).Return(decodeRecords(t, sampleRecords), nil)
	client.On("GetInventory", mock.Anything, models.ID("rec1")).
		Return(decodeRecord(t, `{"id": "rec1", "farmId": "farmA", "machinery": [{"id": "m1", "equipmentName": "Tractor", "condition": "good"}]}`), nil)

	svc := NewService(client, nil, nil)

	found := svc.Find(context.Background(), "farmA", models.ItemKey{Type: models.ItemTypeMachinery, ID: "m1"})
	require.False(t, found.Failed())
	require.NotNil(t, found.Data)
	assert.Equal(t, models.Text("good"), found.Data.Machinery.Condition)
	assert.Equal(t, models.ID("rec1"), found.Data.InventoryRecordID)

	// Ids are only unique per type.
	missing := svc.Find(context.Background(), "farmA", models.ItemKey{Type: models.ItemTypeGoods, ID: "m1"})
	assert.True(t, missing.Failed())
	assert.ErrorIs(t, missing.Err, ErrItemNotFound)
	assert.Nil(t, missing.Data)
}

func TestServiceListDetailed(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("ListInventory", mock.Anything, models.ID("farmA")).Return(decodeRecords(t, sampleRecords), nil).Once()
	client.On("GetInventory", mock.Anything, models.ID("rec1")).
		Return(decodeRecord(t, `{
			"id": "rec1",
			"farmId": "farmA",
			"updatedAt": "2024-06-01T00:00:00.000Z",
			"goodsInStock": [{"id": "g1", "quantity": 12}],
			"machinery": [{"id": "m1", "equipmentName": "Tractor", "serialNumber": "X1"}]
		}`), nil)

	result := NewService(client, nil, nil).ListDetailed(context.Background(), "farmA")

	require.False(t, result.Failed())
	require.Len(t, result.Data.Items, 3)
	assert.Equal(t, models.Counts{GoodsInStock: 1, Machinery: 1, Utilities: 1, Total: 3}, result.Data.Counts)

	goods, machine, utility := result.Data.Items[0], result.Data.Items[1], result.Data.Items[2]
	assert.Equal(t, models.Int(12), goods.Goods.Quantity)
	assert.Equal(t, models.ID("rec1"), goods.InventoryRecordID)
	assert.JSONEq(t, `"X1"`, string(machine.Machinery.Extra["serialNumber"]))
	assert.Empty(t, utility.InventoryRecordID, "u1 is not in the fetched record")
	assert.Equal(t, models.Int(50), utility.Utility.WaterLevel)
	client.AssertNumberOfCalls(t, "GetInventory", 3)
}

func TestServiceListDetailedSkipsResolutionOnFailure(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("ListInventory", mock.Anything, models.ID("farmA")).
		Return(nil, &backend.APIError{Status: http.StatusBadGateway, Message: "bad gateway"}).Once()

	result := NewService(client, nil, nil).ListDetailed(context.Background(), "farmA")

	assert.True(t, result.Failed())
	assert.Empty(t, result.Data.Items)
	client.AssertNotCalled(t, "GetInventory", mock.Anything, mock.Anything)
}

func TestServiceDetailNeverFails(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("GetInventory", mock.Anything, models.ID("rec1")).
		Return(nil, &backend.APIError{Status: http.StatusNotFound, Message: "Not Found"})

	item := goodsItem("g1", "rec1", "farmA")
	result := NewService(client, nil, nil).Detail(context.Background(), item)

	assert.False(t, result.Failed())
	assert.Equal(t, item, result.Data)
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("CreateInventory", mock.Anything, map[string]any{
		"farmId":       models.ID("farmA"),
		"goodsInStock": map[string]any{"itemName": "Feed", "quantity": 5},
	}).Return(nil).Once()

	svc := NewService(client, staticFarm{farm: &models.Farm{ID: "farmA"}}, nil)
	result := svc.Create(context.Background(), "", models.ItemTypeGoods, map[string]any{"itemName": "Feed", "quantity": "5"})

	require.False(t, result.Failed())
	assert.Equal(t, models.ID("farmA"), result.Data["farmId"])
	client.AssertExpectations(t)

	bogus := svc.Create(context.Background(), "farmA", "bogus", map[string]any{})
	assert.True(t, bogus.Failed())
	assert.ErrorIs(t, bogus.Err, ErrUnknownItemType)
}

func TestServiceCreateReportsBackendError(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("CreateInventory", mock.Anything, mock.Anything).
		Return(&backend.APIError{Status: http.StatusBadRequest, Message: "itemName is required"})

	result := NewService(client, nil, nil).Create(context.Background(), "farmA", models.ItemTypeGoods, map[string]any{})

	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "itemName is required")
}

func TestServiceUpdateAndDelete(t *testing.T) {
	t.Parallel()

	client := new(mockBackend)
	client.On("UpdateItem", mock.Anything, models.ItemTypeUtility, models.ID("u1"), map[string]any{"waterLevel": 80}).Return(nil).Once()
	client.On("DeleteItem", mock.Anything, models.ItemTypeMachinery, models.ID("m1")).Return(nil).Once()
	client.On("DeleteItem", mock.Anything, models.ItemTypeGoods, models.ID("gone")).
		Return(&backend.APIError{Status: http.StatusNotFound, Message: "Not Found"}).Once()

	svc := NewService(client, nil, nil)

	updated := svc.Update(context.Background(), models.ItemTypeUtility, "u1", map[string]any{"waterLevel": "80"})
	require.False(t, updated.Failed())
	assert.Equal(t, map[string]any{"waterLevel": 80}, updated.Data)

	noID := svc.Update(context.Background(), models.ItemTypeUtility, "", map[string]any{})
	assert.True(t, noID.Failed())

	deleted := svc.Delete(context.Background(), models.ItemTypeMachinery, "m1")
	require.False(t, deleted.Failed())
	assert.Equal(t, models.ItemKey{Type: models.ItemTypeMachinery, ID: "m1"}, deleted.Data)

	missing := svc.Delete(context.Background(), models.ItemTypeGoods, "gone")
	assert.True(t, missing.Failed())
	assert.True(t, backend.IsNotFound(missing.Err))

	client.AssertExpectations(t)
}

func TestSum(t *testing.T) {
	t.Parallel()

	items := NewNormalizer(nil, nil).Flatten(decodeRecords(t, `[{
		"id": "r1",
		"goodsInStock": [{"id": "g1", "quantity": 10}, {"id": "g2", "quantity": "4"}],
		"utilities": [{"id": "u1", "installationCost": 100, "maintenanceCost": "12.5"}]
	}]`))

	totals := Sum(items)
	assert.Equal(t, 14, totals.GoodsQuantity)
	assert.InDelta(t, 112.5, totals.UtilityCosts, 1e-9)
}
