package entity

import "time"

// Tipos de alerta de stock.
const (
	AlertTypeLowStock   = "low_stock"
	AlertTypeOutOfStock = "out_of_stock"
)

// StockAlert alerta abierta cuando un registro cruza su punto de reorden.
type StockAlert struct {
	ID            string `json:"id"`
	StockRecordID string `json:"stockRecordId"`
	StockKey
	Type           string     `json:"type"`
	AvailableStock int        `json:"availableStock"`
	ReorderPoint   int        `json:"reorderPoint"`
	CreatedAt      time.Time  `json:"createdAt"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

// IsOpen indica si la alerta sigue sin resolver.
func (a *StockAlert) IsOpen() bool {
	return a.ResolvedAt == nil
}
