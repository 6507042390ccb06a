package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var hundred = decimal.NewFromInt(100)

// SaleUseCase ciclo de vida de la venta: active → held → completed, o void.
// Completar descuenta stock (Sell por línea, en orden del carrito) en una sola unidad de trabajo.
type SaleUseCase struct {
	ledger *appinv.Ledger
}

// NewSaleUseCase construye el caso de uso.
func NewSaleUseCase(ledger *appinv.Ledger) *SaleUseCase {
	return &SaleUseCase{ledger: ledger}
}

// Create registra la venta. Con status vacío o completed exige pago y descuenta stock.
func (uc *SaleUseCase) Create(ctx context.Context, actorID, branchID string, in dto.CreateSaleRequest) (*entity.Sale, error) {
	if in.BranchID != "" {
		branchID = in.BranchID
	}
	if strings.TrimSpace(branchID) == "" || len(in.CartItems) == 0 {
		return nil, domain.ErrInvalidInput
	}
	status := in.Status
	if status == "" {
		status = entity.SaleStatusCompleted
	}
	lines, err := toLines(in.CartItems)
	if err != nil {
		return nil, err
	}
	txn := strings.TrimSpace(in.TransactionNumber)
	if txn == "" {
		txn = NewTransactionNumber()
	}

	sale := &entity.Sale{
		ID:                  uuid.NewString(),
		TransactionNumber:   txn,
		Status:              entity.SaleStatusActive,
		BranchID:            branchID,
		CreatedBy:           actorID,
		CartItems:           lines,
		Totals:              entity.ComputeSaleTotals(lines),
		Loyalty:             entity.SaleLoyalty{PointsEarned: in.Loyalty.PointsEarned, PointsRedeemed: in.Loyalty.PointsRedeemed},
		LinkedAdjustmentIDs: []string{},
	}

	var keys []entity.StockKey
	var payment *entity.SalePayment
	switch status {
	case entity.SaleStatusCompleted:
		if in.Payment == nil {
			return nil, fmt.Errorf("%w: el pago es obligatorio para completar la venta", domain.ErrInvalidInput)
		}
		if payment, err = toPayment(*in.Payment, sale.Totals.GrandTotal); err != nil {
			return nil, err
		}
		keys = saleKeys(sale)
	case entity.SaleStatusHeld, entity.SaleStatusActive:
		sale.Status = status
	default:
		return nil, fmt.Errorf("%w: estado inicial %q", domain.ErrInvalidInput, status)
	}

	err = uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *appinv.UnitOfWork) error {
		now := uow.Now()
		sale.CreatedAt, sale.UpdatedAt = now, now
		if payment != nil {
			if err := sell(ctx, uow, sale, actorID); err != nil {
				return err
			}
			sale.Status = entity.SaleStatusCompleted
			sale.Payment = payment
			sale.CompletedAt = &now
		}
		return uow.Sales.Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// Hold pausa una venta activa.
func (uc *SaleUseCase) Hold(ctx context.Context, txn string) (*entity.Sale, error) {
	return uc.transition(ctx, txn, entity.SaleStatusHeld)
}

// Void anula una venta que aún no se completó.
func (uc *SaleUseCase) Void(ctx context.Context, txn string) (*entity.Sale, error) {
	return uc.transition(ctx, txn, entity.SaleStatusVoid)
}

func (uc *SaleUseCase) transition(ctx context.Context, txn, to string) (*entity.Sale, error) {
	var out *entity.Sale
	err := uc.ledger.Execute(ctx, nil, func(ctx context.Context, uow *appinv.UnitOfWork) error {
		sale, err := loadSale(ctx, uow.Repos, txn)
		if err != nil {
			return err
		}
		if !sale.CanTransition(to) {
			return fmt.Errorf("%w: venta %s en estado %s no puede pasar a %s", domain.ErrConflict, sale.TransactionNumber, sale.Status, to)
		}
		sale.Status = to
		sale.UpdatedAt = uow.Now()
		if err := uow.Sales.Update(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete adjunta el pago final y descuenta el stock de cada línea. Si una línea falla no
// queda ningún descuento aplicado.
func (uc *SaleUseCase) Complete(ctx context.Context, txn, actorID string, in dto.CompleteSaleRequest) (*entity.Sale, error) {
	current, err := uc.Get(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !current.CanTransition(entity.SaleStatusCompleted) {
		return nil, fmt.Errorf("%w: venta %s en estado %s", domain.ErrConflict, current.TransactionNumber, current.Status)
	}
	payment, err := toPayment(in.Payment, current.Totals.GrandTotal)
	if err != nil {
		return nil, err
	}

	var out *entity.Sale
	err = uc.ledger.Execute(ctx, saleKeys(current), func(ctx context.Context, uow *appinv.UnitOfWork) error {
		sale, err := loadSale(ctx, uow.Repos, txn)
		if err != nil {
			return err
		}
		if !sale.CanTransition(entity.SaleStatusCompleted) {
			return fmt.Errorf("%w: venta %s en estado %s", domain.ErrConflict, sale.TransactionNumber, sale.Status)
		}
		if err := sell(ctx, uow, sale, actorID); err != nil {
			return err
		}
		now := uow.Now()
		sale.Status = entity.SaleStatusCompleted
		sale.Payment = payment
		sale.CompletedAt = &now
		sale.UpdatedAt = now
		if err := uow.Sales.Update(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get busca la venta por número de transacción o id.
func (uc *SaleUseCase) Get(ctx context.Context, ref string) (*entity.Sale, error) {
	var out *entity.Sale
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		out, err = loadSale(ctx, repos, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sell(ctx context.Context, uow *appinv.UnitOfWork, sale *entity.Sale, actorID string) error {
	for i, line := range sale.CartItems {
		if _, err := uow.Apply(ctx, line.StockKey(sale.BranchID), inventory.Command{
			Op:        inventory.OpSell,
			Quantity:  line.Quantity,
			ActorID:   actorID,
			Reference: sale.TransactionNumber,
		}); err != nil {
			return fmt.Errorf("línea %d (%s): %w", i+1, line.ProductID, err)
		}
	}
	return nil
}

func loadSale(ctx context.Context, repos repository.Repos, ref string) (*entity.Sale, error) {
	sale, err := repos.Sales.GetByTransactionNumber(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		if sale, err = repos.Sales.GetByID(ctx, ref); err != nil {
			return nil, err
		}
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, ref)
	}
	return sale, nil
}

func saleKeys(sale *entity.Sale) []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(sale.CartItems))
	for _, l := range sale.CartItems {
		keys = append(keys, l.StockKey(sale.BranchID))
	}
	return keys
}

func toLines(in []dto.SaleLineRequest) ([]entity.SaleLineItem, error) {
	lines := make([]entity.SaleLineItem, 0, len(in))
	for i, l := range in {
		if l.ProductID == "" || l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: línea %d requiere producto y cantidad positiva", domain.ErrInvalidInput, i+1)
		}
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
		if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: línea %d con descuento fuera de 0-100", domain.ErrInvalidInput, i+1)
		}
		id := l.LineID
		if id == "" {
			id = fmt.Sprintf("L%d", i+1)
		}
		lines = append(lines, entity.SaleLineItem{
			LineID:          id,
			ProductID:       l.ProductID,
			VariantID:       l.VariantID,
			Name:            l.Name,
			Size:            l.Size,
			Color:           l.Color,
			Location:        l.Location,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
		})
	}
	return lines, nil
}

// toPayment valida el pago; amountPaid en cero se toma como pago exacto.
func toPayment(in dto.SalePaymentRequest, total decimal.Decimal) (*entity.SalePayment, error) {
	if strings.TrimSpace(in.Method) == "" {
		return nil, fmt.Errorf("%w: método de pago requerido", domain.ErrInvalidInput)
	}
	paid := in.AmountPaid
	if paid.IsZero() {
		paid = total
	}
	if paid.LessThan(total) {
		return nil, fmt.Errorf("%w: pago %s menor al total %s", domain.ErrInvalidInput, paid.StringFixed(2), total.StringFixed(2))
	}
	return &entity.SalePayment{
		Method:     in.Method,
		AmountPaid: paid,
		Change:     paid.Sub(total),
		Reference:  in.Reference,
	}, nil
}

// NewTransactionNumber genera un número de transacción único.
func NewTransactionNumber() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
