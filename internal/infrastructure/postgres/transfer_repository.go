package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.TransferRepository        = (*TransferRepo)(nil)
	_ repository.StockAdjustmentRepository = (*StockAdjustmentRepo)(nil)
)

// TransferRepo traslados entre sucursales.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create inserta el traslado.
func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_transfers (id, from_branch, to_branch, items, status, notes, created_by, received_by, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.FromBranch, t.ToBranch, t.Items, t.Status, nullIfEmpty(t.Notes), t.CreatedBy,
		nullIfEmpty(t.ReceivedBy), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un traslado por ID.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	var notes, receivedBy *string
	err := r.q.QueryRow(ctx, `
		SELECT id, from_branch, to_branch, items, status, notes, created_by, received_by, created_at, completed_at
		FROM stock_transfers WHERE id = $1`, id).Scan(
		&t.ID, &t.FromBranch, &t.ToBranch, &t.Items, &t.Status, &notes, &t.CreatedBy, &receivedBy, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	t.Notes, t.ReceivedBy = derefString(notes), derefString(receivedBy)
	return &t, nil
}

// Update persiste estado, receptor y fecha de cierre.
func (r *TransferRepo) Update(ctx context.Context, t *entity.StockTransfer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_transfers SET status = $1, received_by = $2, completed_at = $3
		WHERE id = $4`,
		t.Status, nullIfEmpty(t.ReceivedBy), t.CompletedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// StockAdjustmentRepo documentos de ajuste manual.
type StockAdjustmentRepo struct {
	q Querier
}

// NewStockAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockAdjustmentRepository(q Querier) *StockAdjustmentRepo {
	return &StockAdjustmentRepo{q: q}
}

// Create inserta el documento.
func (r *StockAdjustmentRepo) Create(ctx context.Context, a *entity.StockAdjustment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_adjustments (id, branch_id, adjustment_type, reason, reference, items, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.BranchID, a.AdjustmentType, a.Reason, nullIfEmpty(a.Reference), a.Items, a.CreatedBy, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock adjustment: %w", err)
	}
	return nil
}

// ListByBranch documentos de la sucursal, más recientes primero.
func (r *StockAdjustmentRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.StockAdjustment, error) {
	query, args := pageClause(`
		SELECT id, branch_id, adjustment_type, reason, reference, items, created_by, created_at
		FROM stock_adjustments WHERE branch_id = $1
		ORDER BY created_at DESC, id`, []any{branchID}, limit, offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock adjustments: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockAdjustment
	for rows.Next() {
		var a entity.StockAdjustment
		var ref *string
		if err := rows.Scan(&a.ID, &a.BranchID, &a.AdjustmentType, &a.Reason, &ref, &a.Items, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock adjustment: %w", err)
		}
		a.Reference = derefString(ref)
		list = append(list, &a)
	}
	return list, rows.Err()
}
