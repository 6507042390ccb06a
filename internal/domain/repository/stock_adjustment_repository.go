package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockAdjustmentRepository documentos de ajuste manual de stock.
type StockAdjustmentRepository interface {
	Create(ctx context.Context, adj *entity.StockAdjustment) error
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.StockAdjustment, error)
}
