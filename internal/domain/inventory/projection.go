package inventory

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// IsLow stock bajo: disponible <= punto de reorden (propio o por defecto).
func IsLow(rec entity.StockRecord, defaultReorder int) bool {
	return rec.AvailableStock <= rec.EffectiveReorderPoint(defaultReorder)
}

// Project recalcula IsLowStock sin tocar los contadores.
func Project(rec entity.StockRecord, defaultReorder int) entity.StockRecord {
	rec.IsLowStock = IsLow(rec, defaultReorder)
	return rec
}

// AlertType out_of_stock cuando no queda disponible, low_stock en otro caso.
func AlertType(rec entity.StockRecord) string {
	if rec.AvailableStock == 0 {
		return entity.AlertTypeOutOfStock
	}
	return entity.AlertTypeLowStock
}

// NewAlert construye la alerta para un registro que acaba de cruzar su punto de reorden.
func NewAlert(id string, rec entity.StockRecord, defaultReorder int, now time.Time) entity.StockAlert {
	return entity.StockAlert{
		ID:             id,
		StockRecordID:  rec.ID,
		StockKey:       rec.Key(),
		Type:           AlertType(rec),
		AvailableStock: rec.AvailableStock,
		ReorderPoint:   rec.EffectiveReorderPoint(defaultReorder),
		CreatedAt:      now,
	}
}
