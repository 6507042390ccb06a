// Package reconciliation reconstruye, para una venta completada, qué se devolvió o cambió
// y cuál es su posición financiera neta. Funciones puras: sin E/S ni estado global.
package reconciliation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Estados de una entrada del ledger.
const (
	StatusPurchased          = "purchased"
	StatusReturned           = "returned"
	StatusPartiallyReturned  = "partially_returned"
	StatusExchanged          = "exchanged"
	StatusPartiallyExchanged = "partially_exchanged"
)

// LedgerEntry estado de una línea del carrito original.
type LedgerEntry struct {
	EntryID      string          `json:"entryId"` // productId#cartIndex
	CartIndex    int             `json:"cartIndex"`
	LineID       string          `json:"lineId"`
	ProductID    string          `json:"productId"`
	VariantID    string          `json:"variantId"`
	Name         string          `json:"name"`
	Size         string          `json:"size,omitempty"`
	Color        string          `json:"color,omitempty"`
	Location     string          `json:"location,omitempty"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	NetUnitPrice decimal.Decimal `json:"netUnitPrice"`
	PurchasedQty int             `json:"purchasedQty"`
	ReturnedQty  int             `json:"returnedQty"`
	ExchangedQty int             `json:"exchangedQty"`
	RemainingQty int             `json:"remainingQty"`
	Status       string          `json:"status"`
}

// Allocation unidades de un ajuste asignadas a una entrada del ledger.
type Allocation struct {
	AdjustmentID string          `json:"adjustmentId,omitempty"`
	EntryID      string          `json:"entryId"`
	CartIndex    int             `json:"cartIndex"`
	ProductID    string          `json:"productId"`
	VariantID    string          `json:"variantId,omitempty"`
	Color        string          `json:"color,omitempty"`
	Location     string          `json:"location,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	NetUnitPrice decimal.Decimal `json:"netUnitPrice"`
}

// Value cantidad asignada * precio neto de la línea original.
func (a Allocation) Value() decimal.Decimal {
	return a.NetUnitPrice.Mul(decimal.NewFromInt(int64(a.Quantity))).Round(2)
}

// Unallocated cantidad de un ajuste que no encontró líneas elegibles.
type Unallocated struct {
	AdjustmentID string `json:"adjustmentId,omitempty"`
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
}

// Summary posición financiera consolidada de la venta.
type Summary struct {
	OriginalGrandTotal     decimal.Decimal `json:"originalGrandTotal"`
	ReturnedValue          decimal.Decimal `json:"returnedValue"`
	ExchangeValue          decimal.Decimal `json:"exchangeValue"`
	AdditionalPaymentTotal decimal.Decimal `json:"additionalPaymentTotal"`
	RefundTotal            decimal.Decimal `json:"refundTotal"`
	NetAmount              decimal.Decimal `json:"netAmount"`
}

// SaleReconciliation vista derivada de una venta y sus ajustes.
type SaleReconciliation struct {
	SaleID            string                    `json:"saleId"`
	TransactionNumber string                    `json:"transactionNumber"`
	SoldItems         []LedgerEntry             `json:"soldItems"`
	Returns           []entity.AdjustmentRecord `json:"returns"`
	Exchanges         []entity.AdjustmentRecord `json:"exchanges"`
	ExchangeItems     []entity.AdjustmentLine   `json:"exchangeItems"`
	Allocations       []Allocation              `json:"allocations"`
	Unallocated       []Unallocated             `json:"unallocated"`
	UpdatedTotals     Summary                   `json:"updatedTotals"`
}

// Remaining cantidad retornable por producto.
func (r SaleReconciliation) Remaining() map[string]int {
	out := make(map[string]int)
	for _, e := range r.SoldItems {
		out[e.ProductID] += e.RemainingQty
	}
	return out
}

// Reconcile recorre los ajustes del más antiguo al más reciente (los anulados se ignoran)
// y asigna cada unidad devuelta a la línea elegible de menor precio.
func Reconcile(sale *entity.Sale, adjustments []entity.AdjustmentRecord) SaleReconciliation {
	rec := SaleReconciliation{
		SaleID:            sale.ID,
		TransactionNumber: sale.TransactionNumber,
		SoldItems:         newLedger(sale),
		Returns:           []entity.AdjustmentRecord{},
		Exchanges:         []entity.AdjustmentRecord{},
		ExchangeItems:     []entity.AdjustmentLine{},
		Allocations:       []Allocation{},
		Unallocated:       []Unallocated{},
	}

	returnedValue := decimal.Zero
	exchangeValue := decimal.Zero
	refundTotal := decimal.Zero
	additional := decimal.Zero

	for _, adj := range ordered(adjustments) {
		switch adj.Type {
		case entity.AdjustmentTypeReturn:
			rec.Returns = append(rec.Returns, adj)
			for _, line := range adj.ReturnedLines() {
				rec.allocate(adj.ID, line.ProductID, line.Quantity, false)
			}
			returnedValue = returnedValue.Add(adj.Totals.GrandTotal)
			refundTotal = refundTotal.Add(adj.Payment.RefundAmount)
		case entity.AdjustmentTypeExchange:
			rec.Exchanges = append(rec.Exchanges, adj)
			for _, line := range adj.ReturnedLines() {
				rec.allocate(adj.ID, line.ProductID, line.Quantity, true)
			}
			rec.ExchangeItems = append(rec.ExchangeItems, adj.IssuedLines()...)
			exchangeValue = exchangeValue.Add(adj.Totals.GrandTotal)
			if adj.Mode == entity.ExchangeModeAdditionalPayment && adj.Payment.AdditionalPayment != nil {
				additional = additional.Add(adj.Payment.AdditionalPayment.Amount)
			}
		}
	}

	rec.UpdatedTotals = Summary{
		OriginalGrandTotal:     sale.Totals.Subtotal,
		ReturnedValue:          returnedValue,
		ExchangeValue:          exchangeValue,
		AdditionalPaymentTotal: additional,
		RefundTotal:            refundTotal,
		NetAmount:              sale.Totals.Subtotal.Sub(returnedValue).Add(additional),
	}
	return rec
}

func newLedger(sale *entity.Sale) []LedgerEntry {
	ledger := make([]LedgerEntry, 0, len(sale.CartItems))
	for i, item := range sale.CartItems {
		ledger = append(ledger, LedgerEntry{
			EntryID:      fmt.Sprintf("%s#%d", item.ProductID, i),
			CartIndex:    i,
			LineID:       item.LineID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Name:         item.Name,
			Size:         item.Size,
			Color:        item.Color,
			Location:     item.Location,
			UnitPrice:    item.UnitPrice,
			NetUnitPrice: item.NetUnitPrice(),
			PurchasedQty: item.Quantity,
			RemainingQty: item.Quantity,
			Status:       StatusPurchased,
		})
	}
	return ledger
}

// ordered copia estable por fecha de creación; el número de transacción rompe empates.
func ordered(adjustments []entity.AdjustmentRecord) []entity.AdjustmentRecord {
	out := make([]entity.AdjustmentRecord, 0, len(adjustments))
	for _, a := range adjustments {
		if a.IsVoided() {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TransactionNumber < out[j].TransactionNumber
	})
	return out
}

// eligible índices de entradas del producto con remanente, ordenados por precio ascendente
// (a igual precio, por posición en el carrito).
func eligible(ledger []LedgerEntry, productID string) []int {
	idx := make([]int, 0)
	for i, e := range ledger {
		if e.ProductID == productID && e.RemainingQty > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ledger[idx[a]].UnitPrice.LessThan(ledger[idx[b]].UnitPrice)
	})
	return idx
}

// allocate asigna qty unidades y devuelve las asignaciones; lo que no cabe queda en Unallocated.
func (r *SaleReconciliation) allocate(adjID, productID string, qty int, exchange bool) []Allocation {
	allocs := allocateLedger(r.SoldItems, adjID, productID, qty, exchange)
	r.Allocations = append(r.Allocations, allocs...)
	placed := 0
	for _, a := range allocs {
		placed += a.Quantity
	}
	if placed < qty {
		r.Unallocated = append(r.Unallocated, Unallocated{AdjustmentID: adjID, ProductID: productID, Quantity: qty - placed})
	}
	return allocs
}

func allocateLedger(ledger []LedgerEntry, adjID, productID string, qty int, exchange bool) []Allocation {
	var allocs []Allocation
	left := qty
	for _, i := range eligible(ledger, productID) {
		if left == 0 {
			break
		}
		e := &ledger[i]
		n := min(left, e.RemainingQty)
		e.RemainingQty -= n
		left -= n
		if exchange {
			e.ExchangedQty += n
			e.Status = StatusPartiallyExchanged
			if e.RemainingQty == 0 {
				e.Status = StatusExchanged
			}
		} else {
			e.ReturnedQty += n
			e.Status = StatusPartiallyReturned
			if e.RemainingQty == 0 {
				e.Status = StatusReturned
			}
		}
		allocs = append(allocs, Allocation{
			AdjustmentID: adjID,
			EntryID:      e.EntryID,
			CartIndex:    e.CartIndex,
			ProductID:    e.ProductID,
			VariantID:    e.VariantID,
			Color:        e.Color,
			Location:     e.Location,
			Quantity:     n,
			UnitPrice:    e.UnitPrice,
			NetUnitPrice: e.NetUnitPrice,
		})
	}
	return allocs
}
