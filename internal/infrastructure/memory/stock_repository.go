package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.StockRepository         = (*stockRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
)

type stockRepo struct{ u *unit }

func (r *stockRepo) GetByID(_ context.Context, id string) (*entity.StockRecord, error) {
	rec, ok := r.u.s.stocks[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *stockRepo) GetByKey(_ context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	id, ok := r.u.s.stockByKey[key.String()]
	if !ok {
		return nil, nil
	}
	rec := r.u.s.stocks[id]
	return &rec, nil
}

// GetByKeyForUpdate igual que GetByKey: el candado del Store ya serializa la unidad de trabajo.
func (r *stockRepo) GetByKeyForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.GetByKey(ctx, key)
}

func (r *stockRepo) Create(_ context.Context, rec *entity.StockRecord) error {
	s := r.u.s
	k := rec.Key().String()
	if _, ok := s.stockByKey[k]; ok {
		return fmt.Errorf("%w: registro de stock %s", domain.ErrDuplicate, k)
	}
	s.stocks[rec.ID] = *rec
	s.stockByKey[k] = rec.ID
	id := rec.ID
	r.u.record(func() {
		delete(s.stocks, id)
		delete(s.stockByKey, k)
	})
	return nil
}

func (r *stockRepo) Update(_ context.Context, rec *entity.StockRecord) error {
	s := r.u.s
	prev, ok := s.stocks[rec.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if prev.Version != rec.Version {
		return fmt.Errorf("%w: registro %s versión %d, esperada %d", domain.ErrConcurrencyConflict, rec.ID, prev.Version, rec.Version)
	}
	rec.Version++
	s.stocks[rec.ID] = *rec
	r.u.record(func() { s.stocks[prev.ID] = prev })
	return nil
}

func (r *stockRepo) ListByBranch(_ context.Context, branchID string, lowOnly bool, limit, offset int) ([]*entity.StockRecord, error) {
	var out []*entity.StockRecord
	for _, rec := range r.u.s.stocks {
		if rec.BranchID != branchID || (lowOnly && !rec.IsLowStock) {
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return page(out, limit, offset), nil
}

type movementRepo struct{ u *unit }

func (r *movementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	s := r.u.s
	id := m.StockRecordID
	s.movements[id] = append(s.movements[id], *m)
	n := len(s.movements[id]) - 1
	r.u.record(func() { s.movements[id] = s.movements[id][:n] })
	return nil
}

// ListByStockRecord más recientes primero.
func (r *movementRepo) ListByStockRecord(_ context.Context, stockRecordID string, limit, offset int) ([]*entity.StockMovement, error) {
	all := r.u.s.movements[stockRecordID]
	out := make([]*entity.StockMovement, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		out = append(out, &m)
	}
	return page(out, limit, offset), nil
}
