package models

// Lifecycle values shared by runs, zones and count events.
const (
	RunStateActive    = "active"
	RunStateFinalized = "finalized"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	ZoneStateInProgress = "in_progress"
	ZoneStateFinalized  = "finalized"

	LocationPointOfSale = "point_of_sale"
	LocationWarehouse   = "warehouse"
)

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Item{},
		&BarcodeUnit{},
		&InventoryRun{},
		&ExpectedQuantity{},
		&RunTotal{},
		&Zone{},
		&ActiveSession{},
		&ZeroStockMark{},
		&CountEvent{},
		&RecountAdjustment{},
		&RecountAdjustmentLog{},
		&SyncLog{},
	}
}
