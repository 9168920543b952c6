package models

import "time"

// InventorySnapshot is the periodic inventory digest persisted in MongoDB.
type InventorySnapshot struct {
	FarmID         string    `bson:"farm_id" json:"farm_id"`
	Date           time.Time `bson:"date" json:"date"`
	GoodsCount     int       `bson:"goods_count" json:"goods_count"`
	MachineryCount int       `bson:"machinery_count" json:"machinery_count"`
	UtilityCount   int       `bson:"utility_count" json:"utility_count"`
	TotalItems     int       `bson:"total_items" json:"total_items"`
	GoodsQuantity  int       `bson:"goods_quantity" json:"goods_quantity"`
	OutOfStock     int       `bson:"out_of_stock" json:"out_of_stock"`
	ExpiringSoon   int       `bson:"expiring_soon" json:"expiring_soon"`
	ServiceDue     int       `bson:"service_due" json:"service_due"`
	UtilityCosts   float64   `bson:"utility_costs" json:"utility_costs"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
