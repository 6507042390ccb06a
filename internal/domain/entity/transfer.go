package entity

import "time"

// Estados de un traslado entre sucursales.
const (
	TransferStatusPending   = "pending"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
)

// TransferItem línea de un traslado.
type TransferItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Location  string `json:"location,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
}

// SourceKey llave de stock en la sucursal de origen.
func (i TransferItem) SourceKey(fromBranch string) StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID, BranchID: fromBranch, Location: i.Location, Color: i.Color}.Normalize()
}

// DestinationKey llave de stock en la sucursal de destino.
func (i TransferItem) DestinationKey(toBranch string) StockKey {
	return StockKey{ProductID: i.ProductID, VariantID: i.VariantID, BranchID: toBranch, Location: i.Location, Color: i.Color}.Normalize()
}

// StockTransfer traslado pendiente: el origen reserva las unidades en tránsito hasta que el destino recibe.
type StockTransfer struct {
	ID          string         `json:"id"`
	FromBranch  string         `json:"fromBranch"`
	ToBranch    string         `json:"toBranch"`
	Items       []TransferItem `json:"items"`
	Status      string         `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	CreatedBy   string         `json:"createdBy"`
	ReceivedBy  string         `json:"receivedBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// IsPending indica si el traslado aún puede recibirse o cancelarse.
func (t *StockTransfer) IsPending() bool {
	return t.Status == TransferStatusPending
}
