package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// ItemType discriminates the three kinds of inventory items a farm holds.
type ItemType string

const (
	ItemTypeGoods     ItemType = "goodsInStock"
	ItemTypeMachinery ItemType = "machinery"
	ItemTypeUtility   ItemType = "utility"
)

// ItemTypes lists the recognised item types in flattening order.
var ItemTypes = []ItemType{ItemTypeGoods, ItemTypeMachinery, ItemTypeUtility}

// Canonical values for the condition fields. Free text is accepted as well.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// IsCanonicalCondition reports whether s is one of the condition constants,
// ignoring case and surrounding space.
func IsCanonicalCondition(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Utility types selecting which utility field group is meaningful.
const (
	UtilityWater     = "water"
	UtilityPower     = "power"
	UtilityStructure = "structure"
)

// ParseItemType resolves a type tag, including the aliases used by the
// backend's endpoint paths ("goods") and collection keys ("utilities").
func ParseItemType(raw string) (ItemType, bool) {
	switch strings.TrimSpace(raw) {
	case string(ItemTypeGoods), "goods":
		return ItemTypeGoods, true
	case string(ItemTypeMachinery):
		return ItemTypeMachinery, true
	case string(ItemTypeUtility), "utilities":
		return ItemTypeUtility, true
	default:
		return "", false
	}
}

// Valid reports whether t is one of the recognised item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeGoods, ItemTypeMachinery, ItemTypeUtility:
		return true
	default:
		return false
	}
}

// Endpoint returns the path segment used by the per-item backend endpoints.
func (t ItemType) Endpoint() string {
	switch t {
	case ItemTypeGoods:
		return "goods"
	case ItemTypeMachinery:
		return "machinery"
	case ItemTypeUtility:
		return "utility"
	default:
		return ""
	}
}

// InventoryRecord is one farm's inventory container as returned by the
// backend. The sub-collections are kept raw: the backend does not guarantee
// they are arrays and the normalizer decides how to read them.
type InventoryRecord struct {
	ID           ID              `json:"id"`
	FarmID       ID              `json:"farmId"`
	GoodsInStock json.RawMessage `json:"goodsInStock,omitempty"`
	Machinery    json.RawMessage `json:"machinery,omitempty"`
	Utilities    json.RawMessage `json:"utilities,omitempty"`
	Utility      json.RawMessage `json:"utility,omitempty"`
	CreatedAt    Text            `json:"createdAt,omitempty"`
	UpdatedAt    Text            `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts "_id" as an alias of "id".
func (r *InventoryRecord) UnmarshalJSON(data []byte) error {
	type plain InventoryRecord
	var aux struct {
		plain
		MongoID ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = InventoryRecord(aux.plain)
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// GoodsItem is a consumable or stocked product.
type GoodsItem struct {
	ID              ID   `json:"id"`
	ItemName        Text `json:"itemName,omitempty"`
	SKU             Text `json:"sku,omitempty"`
	Quantity        Int  `json:"quantity"`
	CurrentLocation Text `json:"currentLocation,omitempty"`
	Condition       Text `json:"condition,omitempty"`
	ExpirationDate  Text `json:"expirationDate,omitempty"`
	CreatedAt       Text `json:"createdAt,omitempty"`
	UpdatedAt       Text `json:"updatedAt,omitempty"`

	// Extra holds backend fields with no dedicated struct field.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes over the current value and keeps unknown fields in Extra.
func (g *GoodsItem) UnmarshalJSON(data []byte) error {
	type plain GoodsItem
	if err := json.Unmarshal(data, (*plain)(g)); err != nil {
		return err
	}
	extra, err := unknownFields(data, goodsKeys, g.Extra)
	if err != nil {
		return err
	}
	g.Extra = extra
	return nil
}

// MachineryItem is a piece of equipment with a service schedule.
type MachineryItem struct {
	ID              ID   `json:"id"`
	EquipmentName   Text `json:"equipmentName,omitempty"`
	EquipmentID     Text `json:"equipmentId,omitempty"`
	PurchaseDate    Text `json:"purchaseDate,omitempty"`
	CurrentLocation Text `json:"currentLocation,omitempty"`
	Condition       Text `json:"condition,omitempty"`
	LastServiceDate Text `json:"lastServiceDate,omitempty"`
	NextServiceDate Text `json:"nextServiceDate,omitempty"`
	CreatedAt       Text `json:"createdAt,omitempty"`
	UpdatedAt       Text `json:"updatedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes over the current value and keeps unknown fields in Extra.
func (m *MachineryItem) UnmarshalJSON(data []byte) error {
	type plain MachineryItem
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	extra, err := unknownFields(data, machineryKeys, m.Extra)
	if err != nil {
		return err
	}
	m.Extra = extra
	return nil
}

// UtilityItem is a water, power or structure facility. UtilityType selects
// which field group carries meaning.
type UtilityItem struct {
	ID          ID   `json:"id"`
	UtilityType Text `json:"utilityType,omitempty"`

	WaterLevel   Int  `json:"waterLevel"`
	WaterSource  Text `json:"waterSource,omitempty"`
	WaterStorage Int  `json:"waterStorage"`

	PowerSource      Text  `json:"powerSource,omitempty"`
	PowerCapacity    Text  `json:"powerCapacity,omitempty"`
	InstallationCost Float `json:"installationCost"`
	ConsumptionRate  Float `json:"consumptionRate"`
	ConsumptionCost  Float `json:"consumptionCost"`

	StructureType     Text  `json:"structureType,omitempty"`
	StructureCapacity Text  `json:"structureCapacity,omitempty"`
	ConstructionCost  Float `json:"constructionCost"`

	EntryDate           Text  `json:"entryDate,omitempty"`
	FacilityCondition   Text  `json:"facilityCondition,omitempty"`
	LastMaintenanceDate Text  `json:"lastMaintenanceDate,omitempty"`
	MaintenanceCost     Float `json:"maintenanceCost"`

	CreatedAt Text `json:"createdAt,omitempty"`
	UpdatedAt Text `json:"updatedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes over the current value and keeps unknown fields in Extra.
func (u *UtilityItem) UnmarshalJSON(data []byte) error {
	type plain UtilityItem
	if err := json.Unmarshal(data, (*plain)(u)); err != nil {
		return err
	}
	extra, err := unknownFields(data, utilityKeys, u.Extra)
	if err != nil {
		return err
	}
	u.Extra = extra
	return nil
}

var (
	goodsKeys     = jsonKeys(reflect.TypeOf(GoodsItem{}))
	machineryKeys = jsonKeys(reflect.TypeOf(MachineryItem{}))
	utilityKeys   = jsonKeys(reflect.TypeOf(UtilityItem{}))
)

// itemKeys are owned by Item itself, or are aliases resolved on decode.
var itemKeys = []string{"_id", "type", "inventoryId", "farmId", "inventoryRecordId"}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField()+len(itemKeys))
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	for _, key := range itemKeys {
		keys[key] = struct{}{}
	}
	return keys
}

// unknownFields returns existing extended with the members of the data
// object not listed in known. existing is never modified.
func unknownFields(data []byte, known map[string]struct{}, existing map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	out := maps.Clone(existing)
	for key, value := range fields {
		if _, ok := known[key]; ok {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[key] = value
	}
	return out, nil
}

func (i Item) extra() map[string]json.RawMessage {
	switch {
	case i.Goods != nil:
		return i.Goods.Extra
	case i.Machinery != nil:
		return i.Machinery.Extra
	case i.Utility != nil:
		return i.Utility.Extra
	default:
		return nil
	}
}

// ItemKey identifies an item. Ids are only unique within one item type.
type ItemKey struct {
	Type ItemType `json:"type"`
	ID   ID       `json:"id"`
}

func (k ItemKey) String() string { return fmt.Sprintf("%s/%s", k.Type, k.ID) }

// Item is the flat, type-tagged projection of an inventory sub-item. Exactly
// one of Goods, Machinery or Utility is set, matching Type.
type Item struct {
	Type        ItemType
	InventoryID ID
	FarmID      ID

	// InventoryRecordID is only populated by detail resolution.
	InventoryRecordID ID

	Goods     *GoodsItem
	Machinery *MachineryItem
	Utility   *UtilityItem
}

// ErrItemPayloadMismatch is returned when an item's payload does not match its type.
var ErrItemPayloadMismatch = errors.New("item payload does not match its type")

// ID returns the sub-item id.
func (i Item) ID() ID {
	switch {
	case i.Type == ItemTypeGoods && i.Goods != nil:
		return i.Goods.ID
	case i.Type == ItemTypeMachinery && i.Machinery != nil:
		return i.Machinery.ID
	case i.Type == ItemTypeUtility && i.Utility != nil:
		return i.Utility.ID
	default:
		return ""
	}
}

// Key returns the lookup identity of the item.
func (i Item) Key() ItemKey { return ItemKey{Type: i.Type, ID: i.ID()} }

// Name returns a display name for the item.
func (i Item) Name() string {
	switch {
	case i.Goods != nil:
		return string(i.Goods.ItemName)
	case i.Machinery != nil:
		return string(i.Machinery.EquipmentName)
	case i.Utility != nil:
		return string(i.Utility.UtilityType)
	default:
		return ""
	}
}

// Timestamps returns pointers to the payload's createdAt and updatedAt
// fields, or nils when the item has no payload.
func (i Item) Timestamps() (createdAt, updatedAt *Text) {
	switch {
	case i.Type == ItemTypeGoods && i.Goods != nil:
		return &i.Goods.CreatedAt, &i.Goods.UpdatedAt
	case i.Type == ItemTypeMachinery && i.Machinery != nil:
		return &i.Machinery.CreatedAt, &i.Machinery.UpdatedAt
	case i.Type == ItemTypeUtility && i.Utility != nil:
		return &i.Utility.CreatedAt, &i.Utility.UpdatedAt
	default:
		return nil, nil
	}
}

func (i Item) payload() (any, error) {
	switch {
	case i.Type == ItemTypeGoods && i.Goods != nil:
		return i.Goods, nil
	case i.Type == ItemTypeMachinery && i.Machinery != nil:
		return i.Machinery, nil
	case i.Type == ItemTypeUtility && i.Utility != nil:
		return i.Utility, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrItemPayloadMismatch, i.Type)
	}
}

// MarshalJSON renders the item as the union of its payload fields plus the
// type discriminant and back-references.
func (i Item) MarshalJSON() ([]byte, error) {
	payload, err := i.payload()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	for key, value := range i.extra() {
		if _, taken := fields[key]; !taken {
			fields[key] = value
		}
	}

	set := func(key string, value any) {
		encoded, _ := json.Marshal(value)
		fields[key] = encoded
	}
	set("type", i.Type)
	set("inventoryId", i.InventoryID)
	set("farmId", i.FarmID)
	if i.InventoryRecordID != "" {
		set("inventoryRecordId", i.InventoryRecordID)
	}

	return json.Marshal(fields)
}

// UnmarshalJSON decodes a flat item, selecting the payload by "type".
func (i *Item) UnmarshalJSON(data []byte) error {
	var head struct {
		Type              string `json:"type"`
		InventoryID       ID     `json:"inventoryId"`
		FarmID            ID     `json:"farmId"`
		InventoryRecordID ID     `json:"inventoryRecordId"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	t, ok := ParseItemType(head.Type)
	if !ok {
		return fmt.Errorf("unknown inventory item type %q", head.Type)
	}

	out := Item{
		Type:              t,
		InventoryID:       head.InventoryID,
		FarmID:            head.FarmID,
		InventoryRecordID: head.InventoryRecordID,
	}

	var err error
	switch t {
	case ItemTypeGoods:
		out.Goods = new(GoodsItem)
		err = json.Unmarshal(data, out.Goods)
	case ItemTypeMachinery:
		out.Machinery = new(MachineryItem)
		err = json.Unmarshal(data, out.Machinery)
	case ItemTypeUtility:
		out.Utility = new(UtilityItem)
		err = json.Unmarshal(data, out.Utility)
	}
	if err != nil {
		return err
	}

	*i = out
	return nil
}

// Counts tallies flattened items per type.
type Counts struct {
	GoodsInStock int `json:"goodsInStock"`
	Machinery    int `json:"machinery"`
	Utilities    int `json:"utilities"`
	Total        int `json:"total"`
}

// InventoryList is the flattened inventory of a farm together with its counts.
type InventoryList struct {
	FarmID ID     `json:"farmId"`
	Items  []Item `json:"items"`
	Counts Counts `json:"counts"`
}
