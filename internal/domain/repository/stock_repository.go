package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto de persistencia de StockRecord.
// Los métodos Get* devuelven (nil, nil) cuando el registro no existe.
type StockRepository interface {
	GetByID(ctx context.Context, id string) (*entity.StockRecord, error)
	GetByKey(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	// GetByKeyForUpdate bloquea la fila dentro de la transacción (SELECT FOR UPDATE).
	GetByKeyForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	Create(ctx context.Context, rec *entity.StockRecord) error
	// Update escribe el registro solo si la versión persistida coincide con rec.Version
	// e incrementa rec.Version; en otro caso devuelve domain.ErrConcurrencyConflict.
	Update(ctx context.Context, rec *entity.StockRecord) error
	// ListByBranch con limit <= 0 devuelve todos los registros.
	ListByBranch(ctx context.Context, branchID string, lowOnly bool, limit, offset int) ([]*entity.StockRecord, error)
}
