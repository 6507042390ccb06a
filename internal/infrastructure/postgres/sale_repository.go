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

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id, transaction_number, status, branch_id, created_by, cart_items,
	subtotal, total_discount, grand_total, payment, points_earned, points_redeemed,
	linked_adjustment_ids, created_at, completed_at, updated_at`

// SaleRepo ventas sobre PostgreSQL. Las líneas del carrito y el pago se guardan como JSONB.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta la venta; un número de transacción repetido devuelve ErrDuplicate.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	linked := s.LinkedAdjustmentIDs
	if linked == nil {
		linked = []string{}
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.ID, s.TransactionNumber, s.Status, s.BranchID, s.CreatedBy, s.CartItems,
		s.Totals.Subtotal, s.Totals.TotalDiscount, s.Totals.GrandTotal, s.Payment,
		s.Loyalty.PointsEarned, s.Loyalty.PointsRedeemed, linked, s.CreatedAt, s.CompletedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, s.TransactionNumber)
		}
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) getOne(ctx context.Context, where string, arg any) (*entity.Sale, error) {
	var s entity.Sale
	err := r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE `+where+` = $1`, arg).Scan(
		&s.ID, &s.TransactionNumber, &s.Status, &s.BranchID, &s.CreatedBy, &s.CartItems,
		&s.Totals.Subtotal, &s.Totals.TotalDiscount, &s.Totals.GrandTotal, &s.Payment,
		&s.Loyalty.PointsEarned, &s.Loyalty.PointsRedeemed, &s.LinkedAdjustmentIDs,
		&s.CreatedAt, &s.CompletedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

// GetByID obtiene una venta por ID.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, "id", id)
}

// GetByTransactionNumber obtiene una venta por número de transacción.
func (r *SaleRepo) GetByTransactionNumber(ctx context.Context, txn string) (*entity.Sale, error) {
	return r.getOne(ctx, "transaction_number", txn)
}

// Update persiste estado, pago y fechas.
func (r *SaleRepo) Update(ctx context.Context, s *entity.Sale) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE sales SET status = $1, payment = $2, completed_at = $3, updated_at = $4
		WHERE id = $5`,
		s.Status, s.Payment, s.CompletedAt, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LinkAdjustment agrega el ajuste a la venta si no estaba vinculado.
func (r *SaleRepo) LinkAdjustment(ctx context.Context, saleID, adjustmentID string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE sales SET linked_adjustment_ids = array_append(linked_adjustment_ids, $2), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(linked_adjustment_ids))`,
		saleID, adjustmentID,
	)
	if err != nil {
		return fmt.Errorf("link adjustment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, saleID).Scan(&exists); err != nil {
			return fmt.Errorf("link adjustment: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
		}
	}
	return nil
}
