package models

// QuantityRow is one SUM(quantity) group of count events.
type QuantityRow struct {
	ItemID      string  `json:"item_id"`
	LocationTag *string `json:"location_tag"`
	Quantity    float64 `json:"quantity"`
}

// ItemTotals is the per-item fold of count events. Untagged quantities only reach Total.
type ItemTotals struct {
	Total       float64 `json:"total"`
	PointOfSale float64 `json:"point_of_sale"`
	Warehouse   float64 `json:"warehouse"`
}

func (t *ItemTotals) Add(tag *string, quantity float64) {
	t.Total += quantity
	if tag == nil {
		return
	}
	switch *tag {
	case LocationPointOfSale:
		t.PointOfSale += quantity
	case LocationWarehouse:
		t.Warehouse += quantity
	}
}
