package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas de stock bajo.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

// Create inserta la alerta.
func (r *AlertRepo) Create(ctx context.Context, a *entity.StockAlert) error {
	k := a.StockKey.Normalize()
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_alerts (id, stock_record_id, product_id, variant_id, branch_id, location, color,
			type, available_stock, reorder_point, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.StockRecordID, k.ProductID, k.VariantID, k.BranchID, k.Location, k.Color,
		a.Type, a.AvailableStock, a.ReorderPoint, a.CreatedAt, a.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock alert: %w", err)
	}
	return nil
}

// ResolveOpen cierra las alertas abiertas del registro.
func (r *AlertRepo) ResolveOpen(ctx context.Context, stockRecordID string, at time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE stock_alerts SET resolved_at = $1 WHERE stock_record_id = $2 AND resolved_at IS NULL`, at, stockRecordID)
	if err != nil {
		return fmt.Errorf("resolve stock alerts: %w", err)
	}
	return nil
}

// ListOpenByBranch alertas abiertas de la sucursal, más recientes primero.
func (r *AlertRepo) ListOpenByBranch(ctx context.Context, branchID string) ([]*entity.StockAlert, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, stock_record_id, product_id, variant_id, branch_id, location, color,
			type, available_stock, reorder_point, created_at, resolved_at
		FROM stock_alerts WHERE branch_id = $1 AND resolved_at IS NULL
		ORDER BY created_at DESC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("list stock alerts: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockAlert
	for rows.Next() {
		var a entity.StockAlert
		if err := rows.Scan(
			&a.ID, &a.StockRecordID, &a.ProductID, &a.VariantID, &a.BranchID, &a.Location, &a.Color,
			&a.Type, &a.AvailableStock, &a.ReorderPoint, &a.CreatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock alert: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
