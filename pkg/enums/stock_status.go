package enums

// StockStatus is derived from a product's counters; it is never persisted.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusReserved   StockStatus = "reserved"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// DeriveStockStatus computes the status from the raw counters.
func DeriveStockStatus(physical, reserved, reorderPoint int) StockStatus {
	available := physical - reserved
	switch {
	case available <= 0:
		return StockStatusOutOfStock
	case available <= reorderPoint:
		return StockStatusLowStock
	case reserved > 0:
		return StockStatusReserved
	default:
		return StockStatusInStock
	}
}
