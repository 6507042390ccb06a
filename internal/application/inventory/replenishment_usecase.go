package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de una sucursal a partir de los
// registros en stock bajo.
type ReplenishmentUseCase struct {
	ledger *Ledger
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(ledger *Ledger) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{ledger: ledger}
}

// GenerateReplenishmentList sugiere pedir hasta 1.5 veces el punto de reorden.
// Orden: agotados primero, luego mayor déficit bajo el reorden.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, branchID string) ([]dto.ReplenishmentSuggestion, error) {
	var out []dto.ReplenishmentSuggestion
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		low, err := repos.Stocks.ListByBranch(ctx, branchID, true, 0, 0)
		if err != nil {
			return err
		}
		out = make([]dto.ReplenishmentSuggestion, 0, len(low))
		for _, rec := range low {
			reorder := rec.EffectiveReorderPoint(uc.ledger.DefaultReorderPoint())
			ideal := (reorder*3 + 1) / 2
			suggested := ideal - rec.AvailableStock
			if suggested < 0 {
				suggested = 0
			}
			out = append(out, dto.ReplenishmentSuggestion{
				StockRecordID:     rec.ID,
				StockKey:          rec.Key(),
				AvailableStock:    rec.AvailableStock,
				ReorderPoint:      reorder,
				IdealStock:        ideal,
				SuggestedOrderQty: suggested,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.AvailableStock == 0) != (b.AvailableStock == 0) {
			return a.AvailableStock == 0
		}
		defA, defB := a.ReorderPoint-a.AvailableStock, b.ReorderPoint-b.AvailableStock
		if defA != defB {
			return defA > defB
		}
		return a.StockKey.String() < b.StockKey.String()
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}
