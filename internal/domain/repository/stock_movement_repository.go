package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository historial append-only de movimientos, paginado por registro.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByStockRecord(ctx context.Context, stockRecordID string, limit, offset int) ([]*entity.StockMovement, error)
}
