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

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `id, product_id, variant_id, branch_id, location, color,
	current_stock, reserved_stock, available_stock, in_transit_stock, damaged_stock,
	reorder_point, is_low_stock, last_restock_date, version, created_at, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var r entity.StockRecord
	err := row.Scan(
		&r.ID, &r.ProductID, &r.VariantID, &r.BranchID, &r.Location, &r.Color,
		&r.CurrentStock, &r.ReservedStock, &r.AvailableStock, &r.InTransitStock, &r.DamagedStock,
		&r.ReorderPoint, &r.IsLowStock, &r.LastRestockDate, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *StockRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.StockRecord, error) {
	rec, err := scanStock(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetByID obtiene un registro por ID.
func (r *StockRepo) GetByID(ctx context.Context, id string) (*entity.StockRecord, error) {
	return r.getOne(ctx, "get stock record", `SELECT `+stockColumns+` FROM stock_records WHERE id = $1`, id)
}

// GetByKey obtiene el registro de la llave sin bloquear.
func (r *StockRepo) GetByKey(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	k := key.Normalize()
	return r.getOne(ctx, "get stock by key", `
		SELECT `+stockColumns+` FROM stock_records
		WHERE product_id = $1 AND variant_id = $2 AND branch_id = $3 AND location = $4 AND color = $5`,
		k.ProductID, k.VariantID, k.BranchID, k.Location, k.Color)
}

// GetByKeyForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE).
func (r *StockRepo) GetByKeyForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	k := key.Normalize()
	return r.getOne(ctx, "get stock for update", `
		SELECT `+stockColumns+` FROM stock_records
		WHERE product_id = $1 AND variant_id = $2 AND branch_id = $3 AND location = $4 AND color = $5
		FOR UPDATE`,
		k.ProductID, k.VariantID, k.BranchID, k.Location, k.Color)
}

// Create inserta el registro con versión 0. Si otra transacción creó la misma llave
// devuelve ErrConcurrencyConflict para que el libro reintente.
func (r *StockRepo) Create(ctx context.Context, rec *entity.StockRecord) error {
	k := rec.Key()
	rec.Version = 0
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_records (`+stockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		rec.ID, k.ProductID, k.VariantID, k.BranchID, k.Location, k.Color,
		rec.CurrentStock, rec.ReservedStock, rec.AvailableStock, rec.InTransitStock, rec.DamagedStock,
		rec.ReorderPoint, rec.IsLowStock, rec.LastRestockDate, rec.Version, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: registro %s creado en paralelo", domain.ErrConcurrencyConflict, k.String())
		}
		return fmt.Errorf("create stock record: %w", err)
	}
	return nil
}

// Update escribe los contadores si la versión persistida coincide (bloqueo optimista).
func (r *StockRepo) Update(ctx context.Context, rec *entity.StockRecord) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_records SET
			current_stock = $1, reserved_stock = $2, available_stock = $3, in_transit_stock = $4,
			damaged_stock = $5, reorder_point = $6, is_low_stock = $7, last_restock_date = $8,
			updated_at = $9, version = version + 1
		WHERE id = $10 AND version = $11`,
		rec.CurrentStock, rec.ReservedStock, rec.AvailableStock, rec.InTransitStock,
		rec.DamagedStock, rec.ReorderPoint, rec.IsLowStock, rec.LastRestockDate,
		rec.UpdatedAt, rec.ID, rec.Version,
	)
	if err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
		}
		return fmt.Errorf("update stock record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: registro %s versión %d desactualizada", domain.ErrConcurrencyConflict, rec.ID, rec.Version)
	}
	rec.Version++
	return nil
}

// ListByBranch registros de una sucursal ordenados por llave.
func (r *StockRepo) ListByBranch(ctx context.Context, branchID string, lowOnly bool, limit, offset int) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE branch_id = $1`
	args := []any{branchID}
	if lowOnly {
		query += ` AND is_low_stock`
	}
	query += ` ORDER BY product_id, variant_id, location, color`
	query, args = pageClause(query, args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
