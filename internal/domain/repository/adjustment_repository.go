package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AdjustmentRepository define el puerto de persistencia de devoluciones y cambios.
type AdjustmentRepository interface {
	// Create devuelve domain.ErrDuplicate si el número de transacción ya existe.
	Create(ctx context.Context, adj *entity.AdjustmentRecord) error
	GetByTransactionNumber(ctx context.Context, txn string) (*entity.AdjustmentRecord, error)
	// ListBySale incluye los ajustes anulados.
	ListBySale(ctx context.Context, saleID string) ([]*entity.AdjustmentRecord, error)
	UpdateStatus(ctx context.Context, adj *entity.AdjustmentRecord) error
}
