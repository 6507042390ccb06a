package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertRepository alertas de stock bajo.
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.StockAlert) error
	// ResolveOpen marca como resueltas las alertas abiertas del registro.
	ResolveOpen(ctx context.Context, stockRecordID string, at time.Time) error
	ListOpenByBranch(ctx context.Context, branchID string) ([]*entity.StockAlert, error)
}
