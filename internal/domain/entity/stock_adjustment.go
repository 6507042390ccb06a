package entity

import "time"

// Tipos de ajuste manual de stock.
const (
	StockAdjustmentAdd      = "add"
	StockAdjustmentRemove   = "remove"
	StockAdjustmentDamage   = "damage"
	StockAdjustmentTransfer = "transfer"
)

// StockAdjustmentItem línea de un ajuste manual.
type StockAdjustmentItem struct {
	StockKey
	Quantity      int    `json:"quantity"`
	StockRecordID string `json:"stockRecordId"`
	BalanceAfter  int    `json:"balanceAfter"`
}

// StockAdjustment documento persistido por POST /stocks/{branch}/adjust y por los traslados.
type StockAdjustment struct {
	ID             string                `json:"id"`
	BranchID       string                `json:"branchId"`
	AdjustmentType string                `json:"adjustmentType"`
	Reason         string                `json:"reason"`
	Reference      string                `json:"reference,omitempty"`
	Items          []StockAdjustmentItem `json:"items"`
	CreatedBy      string                `json:"createdBy"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// IsValidStockAdjustmentType tipos aceptados desde la API (transfer es interno).
func IsValidStockAdjustmentType(t string) bool {
	return t == StockAdjustmentAdd || t == StockAdjustmentRemove || t == StockAdjustmentDamage
}
