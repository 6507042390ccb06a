package reconciliation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/reconciliation"
)

var base = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newSale(items ...entity.SaleLineItem) *entity.Sale {
	return &entity.Sale{
		ID:                "sale-1",
		TransactionNumber: "TXN-1",
		Status:            entity.SaleStatusCompleted,
		BranchID:          "B1",
		CartItems:         items,
		Totals:            entity.ComputeSaleTotals(items),
	}
}

func line(product string, qty int, price int64) entity.SaleLineItem {
	return entity.SaleLineItem{ProductID: product, VariantID: product + "-v", Quantity: qty, UnitPrice: dec(price)}
}

func returned(product string, qty int) entity.AdjustmentLine {
	return entity.AdjustmentLine{Kind: entity.LineKindReturned, ProductID: product, Quantity: qty}
}

func issued(product string, qty int, price int64) entity.AdjustmentLine {
	return entity.AdjustmentLine{Kind: entity.LineKindIssued, ProductID: product, Quantity: qty, UnitPrice: dec(price)}
}

func returnRecord(id string, at time.Time, value int64, lines ...entity.AdjustmentLine) entity.AdjustmentRecord {
	saleID := "sale-1"
	return entity.AdjustmentRecord{
		ID:                id,
		TransactionNumber: id,
		Type:              entity.AdjustmentTypeReturn,
		OriginalSaleID:    &saleID,
		Items:             lines,
		Totals:            entity.AdjustmentTotals{GrandTotal: dec(value), ReturnedValue: dec(value)},
		Payment:           entity.AdjustmentPayment{Method: "cash", RefundAmount: dec(value)},
		Status:            entity.AdjustmentStatusCompleted,
		CreatedAt:         at,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario de extremo a extremo: P1 x3 a 100, se devuelve 1.
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile_PartialReturn(t *testing.T) {
	sale := newSale(line("P1", 3, 100))
	require.True(t, sale.Totals.Subtotal.Equal(dec(300)))

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{
		returnRecord("R1", base, 100, returned("P1", 1)),
	})

	require.Len(t, got.SoldItems, 1)
	item := got.SoldItems[0]
	assert.Equal(t, "P1", item.ProductID)
	assert.Equal(t, 3, item.PurchasedQty)
	assert.Equal(t, 1, item.ReturnedQty)
	assert.Equal(t, 2, item.RemainingQty)
	assert.Equal(t, reconciliation.StatusPartiallyReturned, item.Status)

	assert.True(t, got.UpdatedTotals.OriginalGrandTotal.Equal(dec(300)))
	assert.True(t, got.UpdatedTotals.ReturnedValue.Equal(dec(100)))
	assert.True(t, got.UpdatedTotals.RefundTotal.Equal(dec(100)))
	assert.True(t, got.UpdatedTotals.NetAmount.Equal(dec(200)), "net = %s", got.UpdatedTotals.NetAmount)
	assert.Len(t, got.Returns, 1)
	assert.Empty(t, got.Unallocated)
}

func TestReconcile_LowestPriceFirst(t *testing.T) {
	sale := newSale(line("P1", 1, 20), line("P1", 1, 10))

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{
		returnRecord("R1", base, 10, returned("P1", 1)),
	})

	cheap, dear := got.SoldItems[1], got.SoldItems[0]
	assert.Equal(t, "P1#1", cheap.EntryID)
	assert.Equal(t, 0, cheap.RemainingQty, "la línea de precio 10 se consume primero")
	assert.Equal(t, reconciliation.StatusReturned, cheap.Status)
	assert.Equal(t, 1, dear.RemainingQty)
	assert.Equal(t, reconciliation.StatusPurchased, dear.Status)
}

func TestReconcile_ProcessesOldestFirstAndSkipsExhausted(t *testing.T) {
	sale := newSale(line("P1", 1, 10), line("P1", 2, 30))

	// Entregados en desorden; R1 es el más antiguo.
	adjs := []entity.AdjustmentRecord{
		returnRecord("R2", base.Add(time.Hour), 60, returned("P1", 2)),
		returnRecord("R1", base, 10, returned("P1", 1)),
	}
	got := reconciliation.Reconcile(sale, adjs)

	assert.Equal(t, "R1", got.Returns[0].ID)
	assert.Equal(t, 0, got.SoldItems[0].RemainingQty)
	assert.Equal(t, 0, got.SoldItems[1].RemainingQty)
	assert.Equal(t, 2, got.SoldItems[1].ReturnedQty)
	for _, a := range got.Allocations {
		if a.AdjustmentID == "R2" {
			assert.Equal(t, "P1#1", a.EntryID, "una línea agotada no se ofrece a asignaciones posteriores")
		}
	}
}

func TestReconcile_RecordsUnallocatedExcess(t *testing.T) {
	sale := newSale(line("P1", 1, 10))

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{
		returnRecord("R1", base, 30, returned("P1", 3)),
	})

	require.Len(t, got.Unallocated, 1)
	assert.Equal(t, 2, got.Unallocated[0].Quantity)
	assert.Equal(t, 0, got.SoldItems[0].RemainingQty)
}

func TestReconcile_IgnoresVoidedAdjustments(t *testing.T) {
	sale := newSale(line("P1", 2, 50))
	voided := returnRecord("R1", base, 50, returned("P1", 1))
	voided.Status = entity.AdjustmentStatusVoided

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{voided})

	assert.Equal(t, 2, got.SoldItems[0].RemainingQty)
	assert.Empty(t, got.Returns)
	assert.True(t, got.UpdatedTotals.NetAmount.Equal(dec(100)))
}

func TestReconcile_ExchangeWithAdditionalPayment(t *testing.T) {
	sale := newSale(line("P1", 1, 50))
	saleID := "sale-1"
	exchange := entity.AdjustmentRecord{
		ID:             "E1",
		Type:           entity.AdjustmentTypeExchange,
		OriginalSaleID: &saleID,
		Items:          []entity.AdjustmentLine{returned("P1", 1), issued("P2", 1, 80)},
		Totals: entity.AdjustmentTotals{
			GrandTotal: dec(80), ReturnedValue: dec(50), IssuedValue: dec(80), PriceDifference: dec(30),
		},
		Mode: entity.ExchangeModeAdditionalPayment,
		Payment: entity.AdjustmentPayment{
			Method:            "cash",
			AdditionalPayment: &entity.AdditionalPayment{Amount: dec(30), Method: "cash"},
		},
		Status:    entity.AdjustmentStatusCompleted,
		CreatedAt: base,
	}

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{exchange})

	assert.Equal(t, reconciliation.StatusExchanged, got.SoldItems[0].Status)
	assert.Equal(t, 1, got.SoldItems[0].ExchangedQty)
	require.Len(t, got.ExchangeItems, 1)
	assert.Equal(t, "P2", got.ExchangeItems[0].ProductID)
	assert.True(t, got.UpdatedTotals.AdditionalPaymentTotal.Equal(dec(30)))
	assert.True(t, got.UpdatedTotals.ExchangeValue.Equal(dec(80)))
	assert.True(t, got.UpdatedTotals.NetAmount.Equal(dec(80)))
}

func TestReconcile_AdditionalPaymentIgnoredWithoutMode(t *testing.T) {
	sale := newSale(line("P1", 1, 50))
	exchange := entity.AdjustmentRecord{
		ID:      "E1",
		Type:    entity.AdjustmentTypeExchange,
		Items:   []entity.AdjustmentLine{returned("P1", 1), issued("P2", 1, 50)},
		Mode:    entity.ExchangeModeEven,
		Payment: entity.AdjustmentPayment{AdditionalPayment: &entity.AdditionalPayment{Amount: dec(99)}},
		Status:  entity.AdjustmentStatusCompleted,
	}

	got := reconciliation.Reconcile(sale, []entity.AdjustmentRecord{exchange})
	assert.True(t, got.UpdatedTotals.AdditionalPaymentTotal.IsZero())
}

func TestReconcile_IsIdempotent(t *testing.T) {
	sale := newSale(line("P1", 2, 10), line("P2", 1, 40), line("P1", 1, 5))
	adjs := []entity.AdjustmentRecord{
		returnRecord("R1", base, 5, returned("P1", 1)),
		returnRecord("R2", base.Add(time.Minute), 50, returned("P1", 1), returned("P2", 1)),
	}

	first := reconciliation.Reconcile(sale, adjs)
	second := reconciliation.Reconcile(sale, adjs)

	assert.Equal(t, first, second)
	assert.Equal(t, "R1", adjs[0].ID, "la entrada no se reordena")
}

// ──────────────────────────────────────────────────────────────────────────────
// PlanAllocation
// ──────────────────────────────────────────────────────────────────────────────

func TestPlanAllocation_RejectsOverReturn(t *testing.T) {
	sale := newSale(line("P1", 1, 10), line("P1", 1, 20))
	prior := []entity.AdjustmentRecord{returnRecord("R1", base, 10, returned("P1", 1))}

	_, err := reconciliation.PlanAllocation(sale, prior, []entity.AdjustmentLine{returned("P1", 2)}, true)
	assert.ErrorIs(t, err, domain.ErrOverAllocation)
}

func TestPlanAllocation_ValueFromAllocatedLines(t *testing.T) {
	sale := newSale(line("P1", 1, 20), line("P1", 1, 10))

	plan, err := reconciliation.PlanAllocation(sale, nil, []entity.AdjustmentLine{returned("P1", 2)}, true)
	require.NoError(t, err)

	assert.True(t, plan.Value.Equal(dec(30)))
	require.Len(t, plan.Lines, 1)
	assert.Len(t, plan.Lines[0].Allocations, 2)
	assert.Equal(t, "P1#1", plan.Lines[0].Allocations[0].EntryID)
	require.Len(t, plan.Lines[0].Lines, 2)
	assert.True(t, plan.Lines[0].Lines[0].UnitPrice.Equal(dec(10)))
	assert.True(t, plan.Lines[0].Lines[1].UnitPrice.Equal(dec(20)))
	assert.Len(t, plan.ReturnedLines(), 2)
}

func TestPlanAllocation_ReturnedLinesCarrySaleKey(t *testing.T) {
	item := line("P1", 2, 10)
	item.VariantID = "V1"
	item.Color = "Rojo"
	item.Location = "Vitrina"
	sale := newSale(item)

	plan, err := reconciliation.PlanAllocation(sale, nil, []entity.AdjustmentLine{returned("P1", 1)}, true)
	require.NoError(t, err)

	lines := plan.ReturnedLines()
	require.Len(t, lines, 1)
	assert.Equal(t, item.StockKey(sale.BranchID), lines[0].StockKey(sale.BranchID))
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, lines[0].OriginalUnitPrice.Equal(dec(10)))
}

func TestPlanAllocation_AppliesLineDiscount(t *testing.T) {
	item := line("P1", 2, 100)
	item.DiscountPercent = dec(10)
	sale := newSale(item)

	plan, err := reconciliation.PlanAllocation(sale, nil, []entity.AdjustmentLine{returned("P1", 1)}, true)
	require.NoError(t, err)
	assert.True(t, plan.Value.Equal(dec(90)), "valor = %s", plan.Value)
}

func TestPlanAllocation_BestEffortTrims(t *testing.T) {
	sale := newSale(line("P1", 1, 10), line("P2", 1, 10))

	plan, err := reconciliation.PlanAllocation(sale, nil,
		[]entity.AdjustmentLine{returned("P1", 3), returned("P3", 1)}, false)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	assert.Equal(t, 1, plan.ReturnedLines()[0].Quantity)
	assert.Equal(t, 3, plan.Lines[0].RequestedQty)
	assert.Len(t, plan.Warnings, 2)
}

func TestPlanAllocation_NothingAllocatableFails(t *testing.T) {
	sale := newSale(line("P1", 1, 10))

	_, err := reconciliation.PlanAllocation(sale, nil, []entity.AdjustmentLine{returned("P9", 1)}, false)
	assert.ErrorIs(t, err, domain.ErrOverAllocation)

	_, err = reconciliation.PlanAllocation(sale, nil, nil, true)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
