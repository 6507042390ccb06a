package dto

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// StockItemRequest línea de una recepción o ajuste. "product" es el id del producto.
type StockItemRequest struct {
	ProductID string `json:"product" validate:"required"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Location  string `json:"location"`
	Color     string `json:"color"`
}

// ReceiveStockRequest body para POST /api/stocks/:branch/receive.
type ReceiveStockRequest struct {
	Items           []StockItemRequest `json:"items" validate:"required,min=1,dive"`
	SupplierID      string             `json:"supplierId"`
	PurchaseOrderID string             `json:"purchaseOrderId"`
}

// AdjustStockRequest body para POST /api/stocks/:branch/adjust.
type AdjustStockRequest struct {
	AdjustmentType string             `json:"adjustmentType" validate:"required,oneof=add remove damage"`
	Reason         string             `json:"reason" validate:"required,max=500"`
	Items          []StockItemRequest `json:"items" validate:"required,min=1,dive"`
}

// TransferStockRequest body para POST /api/stocks/transfer.
type TransferStockRequest struct {
	FromBranch string             `json:"fromBranch" validate:"required"`
	ToBranch   string             `json:"toBranch" validate:"required,nefield=FromBranch"`
	Items      []StockItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes      string             `json:"notes" validate:"max=500"`
}

// ReorderPointRequest body para PUT /api/stocks/records/:id/reorder-point.
type ReorderPointRequest struct {
	ReorderPoint int `json:"reorderPoint" validate:"min=0"`
}

// ReceiveStockResponse registros resultantes de una recepción.
type ReceiveStockResponse struct {
	Records []*entity.StockRecord `json:"records"`
}

// StockListResponse lista paginada de registros de una sucursal.
type StockListResponse struct {
	Items []*entity.StockRecord `json:"items"`
	Page  PageResponse          `json:"page"`
}

// StockAlertsResponse registros en stock bajo y alertas abiertas de la sucursal.
type StockAlertsResponse struct {
	LowStock []*entity.StockRecord `json:"lowStock"`
	Alerts   []*entity.StockAlert  `json:"alerts"`
}

// StockHistoryResponse historial paginado de un registro.
type StockHistoryResponse struct {
	StockRecordID string                  `json:"stockRecordId"`
	Movements     []*entity.StockMovement `json:"movements"`
	Page          PageResponse            `json:"page"`
}

// ReplenishmentSuggestion sugerencia de reposición para un registro bajo su punto de reorden.
type ReplenishmentSuggestion struct {
	StockRecordID string `json:"stockRecordId"`
	entity.StockKey
	AvailableStock    int `json:"availableStock"`
	ReorderPoint      int `json:"reorderPoint"`
	IdealStock        int `json:"idealStock"` // ceil(ReorderPoint * 1.5)
	SuggestedOrderQty int `json:"suggestedOrderQty"`
	Priority          int `json:"priority"` // 1 = más urgente
}
