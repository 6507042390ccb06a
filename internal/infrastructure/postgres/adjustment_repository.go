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

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

const adjustmentColumns = `id, transaction_number, type, original_sale_id, branch_id, items, totals, payment,
	mode, status, reason, notes, created_by, created_at, voided_at, voided_by`

// AdjustmentRepo devoluciones y cambios sobre PostgreSQL.
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

// Create inserta el ajuste; un número de transacción repetido devuelve ErrDuplicate.
func (r *AdjustmentRepo) Create(ctx context.Context, a *entity.AdjustmentRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_adjustments (`+adjustmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.TransactionNumber, a.Type, a.OriginalSaleID, a.BranchID, a.Items, a.Totals, a.Payment,
		nullIfEmpty(a.Mode), a.Status, nullIfEmpty(a.Reason), nullIfEmpty(a.Notes), a.CreatedBy, a.CreatedAt,
		a.VoidedAt, nullIfEmpty(a.VoidedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ajuste %s", domain.ErrDuplicate, a.TransactionNumber)
		}
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

func scanAdjustment(row pgx.Row) (*entity.AdjustmentRecord, error) {
	var a entity.AdjustmentRecord
	var mode, reason, notes, voidedBy *string
	err := row.Scan(
		&a.ID, &a.TransactionNumber, &a.Type, &a.OriginalSaleID, &a.BranchID, &a.Items, &a.Totals, &a.Payment,
		&mode, &a.Status, &reason, &notes, &a.CreatedBy, &a.CreatedAt, &a.VoidedAt, &voidedBy,
	)
	if err != nil {
		return nil, err
	}
	a.Mode, a.Reason, a.Notes, a.VoidedBy = derefString(mode), derefString(reason), derefString(notes), derefString(voidedBy)
	return &a, nil
}

// GetByTransactionNumber obtiene un ajuste por número de transacción.
func (r *AdjustmentRepo) GetByTransactionNumber(ctx context.Context, txn string) (*entity.AdjustmentRecord, error) {
	a, err := scanAdjustment(r.q.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM sale_adjustments WHERE transaction_number = $1`, txn))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	return a, nil
}

// ListBySale ajustes de la venta, anulados incluidos, del más antiguo al más reciente.
func (r *AdjustmentRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.AdjustmentRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+adjustmentColumns+` FROM sale_adjustments
		WHERE original_sale_id = $1
		ORDER BY created_at, transaction_number`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	var list []*entity.AdjustmentRecord
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// UpdateStatus persiste estado y datos de anulación; líneas y totales no cambian.
func (r *AdjustmentRepo) UpdateStatus(ctx context.Context, a *entity.AdjustmentRecord) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE sale_adjustments SET status = $1, voided_at = $2, voided_by = $3
		WHERE id = $4`,
		a.Status, a.VoidedAt, nullIfEmpty(a.VoidedBy), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update adjustment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
