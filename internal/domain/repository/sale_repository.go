package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SaleRepository define el puerto de persistencia de ventas.
type SaleRepository interface {
	// Create devuelve domain.ErrDuplicate si el número de transacción ya existe.
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	GetByTransactionNumber(ctx context.Context, txn string) (*entity.Sale, error)
	// Update persiste estado, pago y fechas; líneas y totales no cambian.
	Update(ctx context.Context, sale *entity.Sale) error
	LinkAdjustment(ctx context.Context, saleID, adjustmentID string) error
}
