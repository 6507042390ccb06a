package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo historial de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento; el historial es solo de inserción.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	k := m.StockKey.Normalize()
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, stock_record_id, product_id, variant_id, branch_id, location, color,
			operation, action, quantity_delta, balance_after, available_after, reference, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		m.ID, m.StockRecordID, k.ProductID, k.VariantID, k.BranchID, k.Location, k.Color,
		m.Operation, m.Action, m.QuantityDelta, m.BalanceAfter, m.AvailableAfter,
		nullIfEmpty(m.Reference), nullIfEmpty(m.Reason), m.ActorID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ListByStockRecord movimientos del registro, más recientes primero.
func (r *StockMovementRepo) ListByStockRecord(ctx context.Context, stockRecordID string, limit, offset int) ([]*entity.StockMovement, error) {
	query, args := pageClause(`
		SELECT id, stock_record_id, product_id, variant_id, branch_id, location, color,
			operation, action, quantity_delta, balance_after, available_after, reference, reason, actor_id, created_at
		FROM stock_movements WHERE stock_record_id = $1
		ORDER BY seq DESC`, []any{stockRecordID}, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var ref, reason *string
		if err := rows.Scan(
			&m.ID, &m.StockRecordID, &m.ProductID, &m.VariantID, &m.BranchID, &m.Location, &m.Color,
			&m.Operation, &m.Action, &m.QuantityDelta, &m.BalanceAfter, &m.AvailableAfter, &ref, &reason, &m.ActorID, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Reference, m.Reason = derefString(ref), derefString(reason)
		list = append(list, &m)
	}
	return list, rows.Err()
}
