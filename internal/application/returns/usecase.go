package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/reconciliation"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Config reglas de devoluciones.
type Config struct {
	// StrictAllocation rechaza con ErrOverAllocation cualquier exceso sobre lo retornable;
	// en false las cantidades se recortan y se devuelven advertencias.
	StrictAllocation bool
}

// ReturnExchangeUseCase creación, anulación y consulta de devoluciones y cambios.
type ReturnExchangeUseCase struct {
	ledger *appinv.Ledger
	cfg    Config
	detail singleflight.Group
}

// NewReturnExchangeUseCase construye el caso de uso.
func NewReturnExchangeUseCase(ledger *appinv.Ledger, cfg Config) *ReturnExchangeUseCase {
	return &ReturnExchangeUseCase{ledger: ledger, cfg: cfg}
}

// ReturnInput devolución de líneas de una venta completada.
type ReturnInput struct {
	SaleRef           string
	TransactionNumber string
	Lines             []entity.AdjustmentLine
	PaymentMethod     string
	Reason            string
	Notes             string
	ActorID           string
}

// ExchangeInput cambio: líneas devueltas y líneas entregadas. SaleRef vacío = cambio sin venta previa.
type ExchangeInput struct {
	SaleRef           string
	BranchID          string
	TransactionNumber string
	Returned          []entity.AdjustmentLine
	Issued            []entity.AdjustmentLine
	Payment           dto.AdjustmentPaymentRequest
	Reason            string
	Notes             string
	ActorID           string
}

// Create adapta el request HTTP a CreateReturn o CreateExchange.
func (uc *ReturnExchangeUseCase) Create(ctx context.Context, actorID, branchID string, in dto.CreateAdjustmentRequest) (*dto.AdjustmentResponse, error) {
	returned, issued, err := SplitLines(in)
	if err != nil {
		return nil, err
	}
	switch in.Type {
	case entity.AdjustmentTypeReturn:
		return uc.CreateReturn(ctx, ReturnInput{
			SaleRef:           in.OriginalTransactionID,
			TransactionNumber: in.TransactionNumber,
			Lines:             returned,
			PaymentMethod:     in.Payment.Method,
			Reason:            in.Reason,
			Notes:             in.Notes,
			ActorID:           actorID,
		})
	case entity.AdjustmentTypeExchange:
		if in.BranchID != "" {
			branchID = in.BranchID
		}
		return uc.CreateExchange(ctx, ExchangeInput{
			SaleRef:           in.OriginalTransactionID,
			BranchID:          branchID,
			TransactionNumber: in.TransactionNumber,
			Returned:          returned,
			Issued:            issued,
			Payment:           in.Payment,
			Reason:            in.Reason,
			Notes:             in.Notes,
			ActorID:           actorID,
		})
	}
	return nil, fmt.Errorf("%w: tipo %q", domain.ErrInvalidInput, in.Type)
}

// CreateReturn valida contra la reconciliación actual de la venta, persiste el ajuste, lo
// vincula a la venta y reingresa cada línea al stock. Todo o nada.
func (uc *ReturnExchangeUseCase) CreateReturn(ctx context.Context, in ReturnInput) (*dto.AdjustmentResponse, error) {
	if strings.TrimSpace(in.SaleRef) == "" {
		return nil, fmt.Errorf("%w: originalTransactionId es obligatorio en una devolución", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: no hay líneas a devolver", domain.ErrInvalidInput)
	}
	sale, err := uc.completedSale(ctx, in.SaleRef)
	if err != nil {
		return nil, err
	}
	txn := transactionNumber(in.TransactionNumber, "RET")

	var resp *dto.AdjustmentResponse
	err = uc.ledger.Execute(ctx, reconciliation.SaleKeys(sale, in.Lines), func(ctx context.Context, uow *appinv.UnitOfWork) error {
		sale, prior, err := loadSaleWithAdjustments(ctx, uow.Repos, sale.ID)
		if err != nil {
			return err
		}
		plan, err := reconciliation.PlanAllocation(sale, prior, in.Lines, uc.cfg.StrictAllocation)
		if err != nil {
			return err
		}
		saleID := sale.ID
		adj := &entity.AdjustmentRecord{
			ID:                uuid.NewString(),
			TransactionNumber: txn,
			Type:              entity.AdjustmentTypeReturn,
			OriginalSaleID:    &saleID,
			BranchID:          sale.BranchID,
			Items:             plan.ReturnedLines(),
			Totals: entity.AdjustmentTotals{
				Subtotal:        plan.Value,
				GrandTotal:      plan.Value,
				ReturnedValue:   plan.Value,
				IssuedValue:     decimal.Zero,
				PriceDifference: plan.Value.Neg(),
			},
			Payment:   entity.AdjustmentPayment{Method: paymentMethod(in.PaymentMethod, sale), RefundAmount: plan.Value},
			Mode:      entity.ExchangeModeRefund,
			Status:    entity.AdjustmentStatusCompleted,
			Reason:    in.Reason,
			Notes:     in.Notes,
			CreatedBy: in.ActorID,
			CreatedAt: uow.Now(),
		}
		if err := persist(ctx, uow, adj); err != nil {
			return err
		}
		for i, line := range adj.Items {
			if _, err := uow.Apply(ctx, line.StockKey(adj.BranchID), inventory.Command{
				Op: inventory.OpReturn, Quantity: line.Quantity, ActorID: in.ActorID,
				Reason: reasonOf(line, in.Reason), Reference: adj.TransactionNumber,
			}); err != nil {
				return fmt.Errorf("línea %d (%s): %w", i+1, line.ProductID, err)
			}
		}
		resp = &dto.AdjustmentResponse{Adjustment: adj, Warnings: plan.Warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateExchange recibe las líneas devueltas (ExchangeIn) y entrega las nuevas (ExchangeOut).
// priceDifference = entregado − devuelto: positivo exige pago adicional, negativo genera reembolso.
func (uc *ReturnExchangeUseCase) CreateExchange(ctx context.Context, in ExchangeInput) (*dto.AdjustmentResponse, error) {
	if len(in.Returned) == 0 || len(in.Issued) == 0 {
		return nil, fmt.Errorf("%w: un cambio requiere líneas devueltas y entregadas", domain.ErrInvalidInput)
	}
	for i, l := range in.Issued {
		if l.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: ítem entregado %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
	}

	var sale *entity.Sale
	branchID := in.BranchID
	if strings.TrimSpace(in.SaleRef) != "" {
		var err error
		if sale, err = uc.completedSale(ctx, in.SaleRef); err != nil {
			return nil, err
		}
		branchID = sale.BranchID
	}
	if strings.TrimSpace(branchID) == "" {
		return nil, fmt.Errorf("%w: sucursal requerida para un cambio sin venta", domain.ErrInvalidInput)
	}
	keys := lineKeys(branchID, in.Issued)
	if sale != nil {
		keys = append(keys, reconciliation.SaleKeys(sale, in.Returned)...)
	} else {
		keys = append(keys, lineKeys(branchID, in.Returned)...)
	}
	txn := transactionNumber(in.TransactionNumber, "EXC")

	var resp *dto.AdjustmentResponse
	err := uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *appinv.UnitOfWork) error {
		returned := in.Returned
		returnedValue := decimal.Zero
		var warnings []string
		var saleID *string

		if sale != nil {
			current, prior, err := loadSaleWithAdjustments(ctx, uow.Repos, sale.ID)
			if err != nil {
				return err
			}
			plan, err := reconciliation.PlanAllocation(current, prior, in.Returned, uc.cfg.StrictAllocation)
			if err != nil {
				return err
			}
			returned, returnedValue, warnings = plan.ReturnedLines(), plan.Value, plan.Warnings
			id := current.ID
			saleID = &id
		} else {
			for i, l := range returned {
				if l.UnitPrice.IsNegative() {
					return fmt.Errorf("%w: ítem devuelto %d con precio negativo", domain.ErrInvalidInput, i+1)
				}
				returnedValue = returnedValue.Add(l.Value())
			}
		}

		issuedValue := decimal.Zero
		for _, l := range in.Issued {
			issuedValue = issuedValue.Add(l.Value())
		}
		diff := issuedValue.Sub(returnedValue)
		mode, payment, err := settle(diff, in.Payment)
		if err != nil {
			return err
		}

		items := make([]entity.AdjustmentLine, 0, len(returned)+len(in.Issued))
		items = append(items, returned...)
		items = append(items, in.Issued...)
		adj := &entity.AdjustmentRecord{
			ID:                uuid.NewString(),
			TransactionNumber: txn,
			Type:              entity.AdjustmentTypeExchange,
			OriginalSaleID:    saleID,
			BranchID:          branchID,
			Items:             items,
			Totals: entity.AdjustmentTotals{
				Subtotal:        issuedValue,
				GrandTotal:      issuedValue,
				ReturnedValue:   returnedValue,
				IssuedValue:     issuedValue,
				PriceDifference: diff,
			},
			Payment:   payment,
			Mode:      mode,
			Status:    entity.AdjustmentStatusCompleted,
			Reason:    in.Reason,
			Notes:     in.Notes,
			CreatedBy: in.ActorID,
			CreatedAt: uow.Now(),
		}
		if err := persist(ctx, uow, adj); err != nil {
			return err
		}
		if err := applyLines(ctx, uow, adj, in.ActorID, in.Reason, inventory.OpExchangeIn, inventory.OpExchangeOut); err != nil {
			return err
		}
		resp = &dto.AdjustmentResponse{Adjustment: adj, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// settle determina el modo del cambio y el bloque de pago a registrar.
func settle(diff decimal.Decimal, in dto.AdjustmentPaymentRequest) (string, entity.AdjustmentPayment, error) {
	payment := entity.AdjustmentPayment{Method: in.Method, RefundAmount: decimal.Zero}
	switch {
	case diff.IsPositive():
		if in.AdditionalPayment == nil || in.AdditionalPayment.Amount.LessThan(diff) {
			return "", payment, fmt.Errorf("%w: se requiere un pago adicional de %s", domain.ErrInvalidInput, diff.StringFixed(2))
		}
		method := in.AdditionalPayment.Method
		if method == "" {
			method = in.Method
		}
		payment.AdditionalPayment = &entity.AdditionalPayment{Amount: diff, Method: method, Reference: in.AdditionalPayment.Reference}
		return entity.ExchangeModeAdditionalPayment, payment, nil
	case diff.IsNegative():
		payment.RefundAmount = diff.Neg()
		return entity.ExchangeModeRefund, payment, nil
	}
	return entity.ExchangeModeEven, payment, nil
}

// Void anula un ajuste completado y revierte sus movimientos de stock en una sola unidad de trabajo.
func (uc *ReturnExchangeUseCase) Void(ctx context.Context, txn, actorID, reason string) (*entity.AdjustmentRecord, error) {
	current, err := uc.Get(ctx, txn)
	if err != nil {
		return nil, err
	}
	keys := lineKeys(current.BranchID, current.Items)

	var out *entity.AdjustmentRecord
	err = uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *appinv.UnitOfWork) error {
		adj, err := uow.Adjustments.GetByTransactionNumber(ctx, txn)
		if err != nil {
			return err
		}
		if adj == nil {
			return fmt.Errorf("%w: ajuste %s", domain.ErrNotFound, txn)
		}
		if adj.IsVoided() {
			return fmt.Errorf("%w: el ajuste %s ya está anulado", domain.ErrConflict, txn)
		}
		if reason == "" {
			reason = "anulación de " + adj.TransactionNumber
		}
		if err := applyLines(ctx, uow, adj, actorID, reason, inventory.OpRevertIncrease, inventory.OpRevertDecrease); err != nil {
			return err
		}
		now := uow.Now()
		adj.Status = entity.AdjustmentStatusVoided
		adj.VoidedAt = &now
		adj.VoidedBy = actorID
		if err := uow.Adjustments.UpdateStatus(ctx, adj); err != nil {
			return err
		}
		out = adj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get consulta un ajuste por número de transacción.
func (uc *ReturnExchangeUseCase) Get(ctx context.Context, txn string) (*entity.AdjustmentRecord, error) {
	var out *entity.AdjustmentRecord
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		out, err = repos.Adjustments.GetByTransactionNumber(ctx, txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: ajuste %s", domain.ErrNotFound, txn)
	}
	return out, nil
}

// Detail reconstruye la venta con sus devoluciones y cambios. La venta y sus ajustes se cargan
// en paralelo; peticiones concurrentes por la misma venta comparten resultado, así que la carga
// no hereda la cancelación de quien la inició.
func (uc *ReturnExchangeUseCase) Detail(ctx context.Context, saleRef string) (*dto.SaleDetailResponse, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := uc.detail.Do(saleRef, func() (any, error) {
		return uc.loadDetail(shared, saleRef)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.SaleDetailResponse), nil
}

func (uc *ReturnExchangeUseCase) loadDetail(ctx context.Context, saleRef string) (*dto.SaleDetailResponse, error) {
	var (
		sale *entity.Sale
		adjs []*entity.AdjustmentRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return uc.ledger.Read(gctx, func(ctx context.Context, repos repository.Repos) error {
			var err error
			sale, err = findSale(ctx, repos, saleRef)
			return err
		})
	})
	g.Go(func() error {
		return uc.ledger.Read(gctx, func(ctx context.Context, repos repository.Repos) error {
			var err error
			adjs, err = repos.Adjustments.ListBySale(ctx, saleRef)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleRef)
	}
	// saleRef era el número de transacción: los ajustes se indexan por id.
	if sale.ID != saleRef {
		err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
			var err error
			adjs, err = repos.Adjustments.ListBySale(ctx, sale.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return &dto.SaleDetailResponse{
		Sale:               sale,
		SaleReconciliation: reconciliation.Reconcile(sale, deref(adjs)),
	}, nil
}

// SaleBranch sucursal de la venta referida por id o número de transacción.
func (uc *ReturnExchangeUseCase) SaleBranch(ctx context.Context, ref string) (string, error) {
	var sale *entity.Sale
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		sale, err = findSale(ctx, repos, ref)
		return err
	})
	if err != nil {
		return "", err
	}
	if sale == nil {
		return "", fmt.Errorf("%w: venta %s", domain.ErrNotFound, ref)
	}
	return sale.BranchID, nil
}

func (uc *ReturnExchangeUseCase) completedSale(ctx context.Context, ref string) (*entity.Sale, error) {
	var sale *entity.Sale
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		sale, err = findSale(ctx, repos, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, ref)
	}
	if sale.Status != entity.SaleStatusCompleted {
		return nil, fmt.Errorf("%w: la venta %s está %s; solo se ajustan ventas completadas", domain.ErrConflict, sale.TransactionNumber, sale.Status)
	}
	return sale, nil
}

func findSale(ctx context.Context, repos repository.Repos, ref string) (*entity.Sale, error) {
	sale, err := repos.Sales.GetByID(ctx, ref)
	if err != nil || sale != nil {
		return sale, err
	}
	return repos.Sales.GetByTransactionNumber(ctx, ref)
}

func loadSaleWithAdjustments(ctx context.Context, repos repository.Repos, saleID string) (*entity.Sale, []entity.AdjustmentRecord, error) {
	sale, err := repos.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if sale == nil {
		return nil, nil, fmt.Errorf("%w: venta %s", domain.ErrNotFound, saleID)
	}
	adjs, err := repos.Adjustments.ListBySale(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	return sale, deref(adjs), nil
}

func persist(ctx context.Context, uow *appinv.UnitOfWork, adj *entity.AdjustmentRecord) error {
	if err := uow.Adjustments.Create(ctx, adj); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return fmt.Errorf("%w: el número de transacción %s ya fue usado", domain.ErrDuplicate, adj.TransactionNumber)
		}
		return err
	}
	if adj.OriginalSaleID != nil {
		return uow.Sales.LinkAdjustment(ctx, *adj.OriginalSaleID, adj.ID)
	}
	return nil
}

// applyLines aplica inOp a las líneas devueltas y outOp a las entregadas, en orden.
func applyLines(ctx context.Context, uow *appinv.UnitOfWork, adj *entity.AdjustmentRecord, actorID, reason string, inOp, outOp inventory.Operation) error {
	for i, line := range adj.Items {
		op := outOp
		if line.Kind == entity.LineKindReturned {
			op = inOp
		}
		if _, err := uow.Apply(ctx, line.StockKey(adj.BranchID), inventory.Command{
			Op: op, Quantity: line.Quantity, ActorID: actorID, Reason: reasonOf(line, reason), Reference: adj.TransactionNumber,
		}); err != nil {
			return fmt.Errorf("línea %d (%s): %w", i+1, line.ProductID, err)
		}
	}
	return nil
}

func lineKeys(branchID string, lines []entity.AdjustmentLine) []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, l.StockKey(branchID))
	}
	return keys
}

func deref(in []*entity.AdjustmentRecord) []entity.AdjustmentRecord {
	out := make([]entity.AdjustmentRecord, 0, len(in))
	for _, a := range in {
		out = append(out, *a)
	}
	return out
}

func reasonOf(line entity.AdjustmentLine, fallback string) string {
	if line.ReturnReason != "" {
		return line.ReturnReason
	}
	return fallback
}

func paymentMethod(method string, sale *entity.Sale) string {
	if method != "" {
		return method
	}
	if sale.Payment != nil {
		return sale.Payment.Method
	}
	return "cash"
}

func transactionNumber(given, prefix string) string {
	if t := strings.TrimSpace(given); t != "" {
		return t
	}
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
