package entity

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLocation ubicación usada cuando la línea no indica una (piso de venta).
const DefaultLocation = "store"

// DefaultReorderPoint umbral de stock bajo cuando el registro no tiene punto de reorden propio.
const DefaultReorderPoint = 5

// StockKey identifica un registro de stock: producto, variante, sucursal, ubicación y color.
type StockKey struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	BranchID  string `json:"branchId"`
	Location  string `json:"location"`
	Color     string `json:"color"`
}

// Normalize aplica la ubicación por defecto y recorta espacios.
func (k StockKey) Normalize() StockKey {
	k.ProductID = strings.TrimSpace(k.ProductID)
	k.VariantID = strings.TrimSpace(k.VariantID)
	k.BranchID = strings.TrimSpace(k.BranchID)
	k.Location = strings.TrimSpace(k.Location)
	k.Color = strings.TrimSpace(k.Color)
	if k.Location == "" {
		k.Location = DefaultLocation
	}
	return k
}

// String forma canónica de la llave; se usa para bloqueos por registro y en índices en memoria.
func (k StockKey) String() string {
	n := k.Normalize()
	return fmt.Sprintf("%s|%s|%s|%s|%s", n.ProductID, n.VariantID, n.BranchID, n.Location, n.Color)
}

// Valid indica si la llave tiene los campos obligatorios.
func (k StockKey) Valid() bool {
	n := k.Normalize()
	return n.ProductID != "" && n.BranchID != ""
}

// StockRecord estado autoritativo de cantidades para una StockKey.
// Invariante: AvailableStock = CurrentStock - ReservedStock - InTransitStock, todos >= 0.
// DamagedStock se lleva aparte: las unidades dañadas salen de CurrentStock al marcarse.
type StockRecord struct {
	ID string `json:"id"`
	StockKey
	CurrentStock    int        `json:"currentStock"`
	ReservedStock   int        `json:"reservedStock"`
	AvailableStock  int        `json:"availableStock"`
	InTransitStock  int        `json:"inTransitStock"`
	DamagedStock    int        `json:"damagedStock"`
	ReorderPoint    int        `json:"reorderPoint"` // 0 = sin definir, aplica DefaultReorderPoint
	IsLowStock      bool       `json:"isLowStock"`
	LastRestockDate *time.Time `json:"lastRestockDate,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewStockRecord crea un registro vacío para la llave (creación perezosa en Receive/Adjust-add/TransferIn).
func NewStockRecord(id string, key StockKey, now time.Time) StockRecord {
	return StockRecord{
		ID:        id,
		StockKey:  key.Normalize(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key devuelve la llave normalizada del registro.
func (r StockRecord) Key() StockKey {
	return r.StockKey.Normalize()
}

// EffectiveReorderPoint punto de reorden propio o el valor por defecto indicado.
func (r StockRecord) EffectiveReorderPoint(fallback int) int {
	if r.ReorderPoint > 0 {
		return r.ReorderPoint
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultReorderPoint
}

// CheckInvariants verifica los contadores; un error aquí indica un bug.
func (r StockRecord) CheckInvariants() error {
	if r.CurrentStock < 0 || r.ReservedStock < 0 || r.AvailableStock < 0 || r.InTransitStock < 0 || r.DamagedStock < 0 {
		return fmt.Errorf("contador negativo en %s", r.StockKey.String())
	}
	if r.AvailableStock != r.CurrentStock-r.ReservedStock-r.InTransitStock {
		return fmt.Errorf("available=%d != current=%d - reserved=%d - inTransit=%d en %s",
			r.AvailableStock, r.CurrentStock, r.ReservedStock, r.InTransitStock, r.StockKey.String())
	}
	return nil
}
