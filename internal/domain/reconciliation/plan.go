package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LinePlan asignación de una línea solicitada contra el ledger actual. Lines trae una línea
// devuelta por cada línea de venta consumida, con la variante, color y ubicación de esa venta.
type LinePlan struct {
	Requested    entity.AdjustmentLine   `json:"requested"`
	RequestedQty int                     `json:"requestedQty"`
	Allocations  []Allocation            `json:"allocations"`
	Lines        []entity.AdjustmentLine `json:"lines"`
	Value        decimal.Decimal         `json:"value"`
}

// Plan resultado de validar una devolución o cambio antes de tocar stock.
type Plan struct {
	Lines    []LinePlan      `json:"lines"`
	Value    decimal.Decimal `json:"value"`
	Warnings []string        `json:"warnings,omitempty"`
}

// PlanAllocation reconcilia la venta con los ajustes previos y asigna las líneas devueltas
// sobre el remanente. En modo estricto cualquier exceso devuelve ErrOverAllocation; si no,
// las cantidades se recortan al remanente y se reportan advertencias. Sin nada asignable
// siempre falla.
func PlanAllocation(sale *entity.Sale, prior []entity.AdjustmentRecord, returned []entity.AdjustmentLine, strict bool) (Plan, error) {
	if len(returned) == 0 {
		return Plan{}, fmt.Errorf("%w: no hay líneas devueltas", domain.ErrInvalidInput)
	}
	current := Reconcile(sale, prior)
	remaining := current.Remaining()

	requested := make(map[string]int)
	for _, l := range returned {
		requested[l.ProductID] += l.Quantity
	}
	if strict {
		for _, l := range returned {
			if want, have := requested[l.ProductID], remaining[l.ProductID]; want > have {
				return Plan{}, fmt.Errorf("%w: producto %s solicitado %d, retornable %d",
					domain.ErrOverAllocation, l.ProductID, want, have)
			}
		}
	}

	ledger := append([]LedgerEntry(nil), current.SoldItems...)
	plan := Plan{Value: decimal.Zero}
	for _, l := range returned {
		allocs := allocateLedger(ledger, "", l.ProductID, l.Quantity, false)
		placed := 0
		value := decimal.Zero
		for _, a := range allocs {
			placed += a.Quantity
			value = value.Add(a.Value())
		}
		if placed < l.Quantity {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("producto %s: se solicitaron %d, solo %d retornables", l.ProductID, l.Quantity, placed))
		}
		if placed == 0 {
			continue
		}
		plan.Lines = append(plan.Lines, LinePlan{
			Requested:    l,
			RequestedQty: l.Quantity,
			Allocations:  allocs,
			Lines:        allocatedLines(sale, l, allocs),
			Value:        value,
		})
		plan.Value = plan.Value.Add(value)
	}
	if len(plan.Lines) == 0 {
		return Plan{}, fmt.Errorf("%w: ninguna cantidad es retornable", domain.ErrOverAllocation)
	}
	return plan, nil
}

// allocatedLines una línea por asignación. El stock vuelve a la clave de la línea vendida,
// no a la que trae la solicitud.
func allocatedLines(sale *entity.Sale, req entity.AdjustmentLine, allocs []Allocation) []entity.AdjustmentLine {
	out := make([]entity.AdjustmentLine, 0, len(allocs))
	for _, a := range allocs {
		line := req
		line.ProductID = a.ProductID
		line.VariantID = a.VariantID
		line.Color = a.Color
		line.Location = a.Location
		line.Quantity = a.Quantity
		line.OriginalUnitPrice = a.UnitPrice
		line.UnitPrice = a.NetUnitPrice.Round(2)
		if a.CartIndex < len(sale.CartItems) {
			item := sale.CartItems[a.CartIndex]
			line.Name = item.Name
			line.Size = item.Size
		}
		out = append(out, line)
	}
	return out
}

// ReturnedLines líneas ajustadas por el plan, en el orden solicitado.
func (p Plan) ReturnedLines() []entity.AdjustmentLine {
	var out []entity.AdjustmentLine
	for _, lp := range p.Lines {
		out = append(out, lp.Lines...)
	}
	return out
}

// SaleKeys claves de stock de las líneas de la venta que pueden recibir unidades de los
// productos devueltos. Sirve para bloquear antes de planear.
func SaleKeys(sale *entity.Sale, returned []entity.AdjustmentLine) []entity.StockKey {
	products := make(map[string]struct{}, len(returned))
	for _, l := range returned {
		products[l.ProductID] = struct{}{}
	}
	var keys []entity.StockKey
	for _, item := range sale.CartItems {
		if _, ok := products[item.ProductID]; ok {
			keys = append(keys, item.StockKey(sale.BranchID))
		}
	}
	return keys
}
