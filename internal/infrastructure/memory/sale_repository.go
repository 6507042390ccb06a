package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.SaleRepository       = (*saleRepo)(nil)
	_ repository.AdjustmentRepository = (*adjustmentRepo)(nil)
)

type saleRepo struct{ u *unit }

func cloneSale(s entity.Sale) entity.Sale {
	s.CartItems = slices.Clone(s.CartItems)
	s.LinkedAdjustmentIDs = slices.Clone(s.LinkedAdjustmentIDs)
	if s.Payment != nil {
		p := *s.Payment
		s.Payment = &p
	}
	return s
}

func (r *saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	s := r.u.s
	if _, ok := s.saleByTxn[sale.TransactionNumber]; ok {
		return fmt.Errorf("%w: venta %s", domain.ErrDuplicate, sale.TransactionNumber)
	}
	s.sales[sale.ID] = cloneSale(*sale)
	s.saleByTxn[sale.TransactionNumber] = sale.ID
	id, txn := sale.ID, sale.TransactionNumber
	r.u.record(func() {
		delete(s.sales, id)
		delete(s.saleByTxn, txn)
	})
	return nil
}

func (r *saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	sale, ok := r.u.s.sales[id]
	if !ok {
		return nil, nil
	}
	out := cloneSale(sale)
	return &out, nil
}

func (r *saleRepo) GetByTransactionNumber(ctx context.Context, txn string) (*entity.Sale, error) {
	id, ok := r.u.s.saleByTxn[txn]
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *saleRepo) Update(_ context.Context, sale *entity.Sale) error {
	s := r.u.s
	prev, ok := s.sales[sale.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneSale(prev)
	next.Status = sale.Status
	next.Payment = sale.Payment
	next.CompletedAt = sale.CompletedAt
	next.UpdatedAt = sale.UpdatedAt
	s.sales[sale.ID] = cloneSale(next)
	r.u.record(func() { s.sales[prev.ID] = prev })
	return nil
}

func (r *saleRepo) LinkAdjustment(_ context.Context, saleID, adjustmentID string) error {
	s := r.u.s
	prev, ok := s.sales[saleID]
	if !ok {
		return domain.ErrNotFound
	}
	if prev.HasAdjustment(adjustmentID) {
		return nil
	}
	next := cloneSale(prev)
	next.LinkedAdjustmentIDs = append(next.LinkedAdjustmentIDs, adjustmentID)
	s.sales[saleID] = next
	r.u.record(func() { s.sales[saleID] = prev })
	return nil
}

type adjustmentRepo struct{ u *unit }

func cloneAdjustment(a entity.AdjustmentRecord) entity.AdjustmentRecord {
	a.Items = slices.Clone(a.Items)
	if a.Payment.AdditionalPayment != nil {
		p := *a.Payment.AdditionalPayment
		a.Payment.AdditionalPayment = &p
	}
	return a
}

func (r *adjustmentRepo) Create(_ context.Context, adj *entity.AdjustmentRecord) error {
	s := r.u.s
	if _, ok := s.adjByTxn[adj.TransactionNumber]; ok {
		return fmt.Errorf("%w: ajuste %s", domain.ErrDuplicate, adj.TransactionNumber)
	}
	s.adjustments[adj.ID] = cloneAdjustment(*adj)
	s.adjByTxn[adj.TransactionNumber] = adj.ID
	id, txn := adj.ID, adj.TransactionNumber
	r.u.record(func() {
		delete(s.adjustments, id)
		delete(s.adjByTxn, txn)
	})
	return nil
}

func (r *adjustmentRepo) GetByTransactionNumber(_ context.Context, txn string) (*entity.AdjustmentRecord, error) {
	id, ok := r.u.s.adjByTxn[txn]
	if !ok {
		return nil, nil
	}
	out := cloneAdjustment(r.u.s.adjustments[id])
	return &out, nil
}

func (r *adjustmentRepo) ListBySale(_ context.Context, saleID string) ([]*entity.AdjustmentRecord, error) {
	var out []*entity.AdjustmentRecord
	for _, a := range r.u.s.adjustments {
		if a.SaleID() != saleID {
			continue
		}
		c := cloneAdjustment(a)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TransactionNumber < out[j].TransactionNumber
	})
	return out, nil
}

func (r *adjustmentRepo) UpdateStatus(_ context.Context, adj *entity.AdjustmentRecord) error {
	s := r.u.s
	prev, ok := s.adjustments[adj.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneAdjustment(prev)
	next.Status = adj.Status
	next.VoidedAt = adj.VoidedAt
	next.VoidedBy = adj.VoidedBy
	s.adjustments[adj.ID] = next
	r.u.record(func() { s.adjustments[prev.ID] = prev })
	return nil
}

type stockAdjustmentRepo struct{ u *unit }

func (r *stockAdjustmentRepo) Create(_ context.Context, adj *entity.StockAdjustment) error {
	s := r.u.s
	c := *adj
	c.Items = slices.Clone(adj.Items)
	s.stockAdjustments = append(s.stockAdjustments, c)
	n := len(s.stockAdjustments) - 1
	r.u.record(func() { s.stockAdjustments = s.stockAdjustments[:n] })
	return nil
}

func (r *stockAdjustmentRepo) ListByBranch(_ context.Context, branchID string, limit, offset int) ([]*entity.StockAdjustment, error) {
	all := r.u.s.stockAdjustments
	var out []*entity.StockAdjustment
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].BranchID == branchID {
			c := all[i]
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

type transferRepo struct{ u *unit }

func (r *transferRepo) Create(_ context.Context, t *entity.StockTransfer) error {
	s := r.u.s
	if _, ok := s.transfers[t.ID]; ok {
		return fmt.Errorf("%w: traslado %s", domain.ErrDuplicate, t.ID)
	}
	c := *t
	c.Items = slices.Clone(t.Items)
	s.transfers[t.ID] = c
	id := t.ID
	r.u.record(func() { delete(s.transfers, id) })
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	t, ok := r.u.s.transfers[id]
	if !ok {
		return nil, nil
	}
	t.Items = slices.Clone(t.Items)
	return &t, nil
}

func (r *transferRepo) Update(_ context.Context, t *entity.StockTransfer) error {
	s := r.u.s
	prev, ok := s.transfers[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := prev
	next.Status = t.Status
	next.ReceivedBy = t.ReceivedBy
	next.CompletedAt = t.CompletedAt
	s.transfers[t.ID] = next
	r.u.record(func() { s.transfers[prev.ID] = prev })
	return nil
}

type alertRepo struct{ u *unit }

func (r *alertRepo) Create(_ context.Context, a *entity.StockAlert) error {
	s := r.u.s
	s.alerts = append(s.alerts, *a)
	n := len(s.alerts) - 1
	r.u.record(func() { s.alerts = s.alerts[:n] })
	return nil
}

func (r *alertRepo) ResolveOpen(_ context.Context, stockRecordID string, at time.Time) error {
	s := r.u.s
	for i := range s.alerts {
		if s.alerts[i].StockRecordID != stockRecordID || !s.alerts[i].IsOpen() {
			continue
		}
		resolved := at
		s.alerts[i].ResolvedAt = &resolved
		idx := i
		r.u.record(func() { s.alerts[idx].ResolvedAt = nil })
	}
	return nil
}

func (r *alertRepo) ListOpenByBranch(_ context.Context, branchID string) ([]*entity.StockAlert, error) {
	var out []*entity.StockAlert
	for _, a := range r.u.s.alerts {
		if a.BranchID == branchID && a.IsOpen() {
			c := a
			out = append(out, &c)
		}
	}
	return out, nil
}
