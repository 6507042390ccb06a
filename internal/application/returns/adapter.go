package returns

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SplitLines convierte las líneas del request en líneas etiquetadas.
// En cambios sin kind se acepta la convención de signo (negativa = devuelta, positiva = entregada);
// newItems siempre son entregadas.
func SplitLines(in dto.CreateAdjustmentRequest) (returned, issued []entity.AdjustmentLine, err error) {
	for i, item := range in.Items {
		kind := item.Kind
		qty := item.Quantity
		if kind == "" {
			switch {
			case in.Type == entity.AdjustmentTypeReturn:
				kind = entity.LineKindReturned
			case qty < 0:
				kind = entity.LineKindReturned
			default:
				kind = entity.LineKindIssued
			}
			if qty < 0 {
				qty = -qty
			}
		}
		if qty <= 0 {
			return nil, nil, fmt.Errorf("%w: línea %d con cantidad inválida", domain.ErrInvalidInput, i+1)
		}
		line := toLine(item, kind, qty)
		if kind == entity.LineKindReturned {
			returned = append(returned, line)
		} else {
			issued = append(issued, line)
		}
	}
	for i, item := range in.NewItems {
		qty := item.Quantity
		if qty < 0 {
			qty = -qty
		}
		if qty == 0 {
			return nil, nil, fmt.Errorf("%w: nuevo ítem %d con cantidad inválida", domain.ErrInvalidInput, i+1)
		}
		issued = append(issued, toLine(item, entity.LineKindIssued, qty))
	}
	if in.Type == entity.AdjustmentTypeReturn && len(issued) > 0 {
		return nil, nil, fmt.Errorf("%w: una devolución no entrega mercancía", domain.ErrInvalidInput)
	}
	return returned, issued, nil
}

func toLine(item dto.AdjustmentItemRequest, kind string, qty int) entity.AdjustmentLine {
	return entity.AdjustmentLine{
		Kind:              kind,
		ProductID:         item.ProductID,
		VariantID:         item.VariantID,
		Name:              item.Name,
		Size:              item.Size,
		Color:             item.Color,
		Location:          item.Location,
		Quantity:          qty,
		UnitPrice:         item.UnitPrice,
		OriginalUnitPrice: item.OriginalUnitPrice,
		ReturnReason:      item.ReturnReason,
	}
}
