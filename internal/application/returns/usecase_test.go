package returns_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/returns"
	"github.com/jhoicas/stock-ledger/internal/application/sales"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const branch = "B1"

type fixture struct {
	stock   *appinv.StockLedgerUseCase
	sales   *sales.SaleUseCase
	returns *returns.ReturnExchangeUseCase
}

func newFixture(t *testing.T, strict bool) fixture {
	t.Helper()
	store := memory.NewStore(nil)
	ledger := appinv.NewLedger(memory.NewTxRunner(store), appinv.NewLocalKeyLocker(time.Second), nil, nil,
		logger.Nop(), appinv.LedgerConfig{DefaultReorderPoint: 5, ConflictRetries: 2})
	return fixture{
		stock:   appinv.NewStockLedgerUseCase(ledger),
		sales:   sales.NewSaleUseCase(ledger),
		returns: returns.NewReturnExchangeUseCase(ledger, returns.Config{StrictAllocation: strict}),
	}
}

func (f fixture) receive(t *testing.T, items ...dto.StockItemRequest) {
	t.Helper()
	_, err := f.stock.Receive(context.Background(), branch, "u1", dto.ReceiveStockRequest{Items: items})
	require.NoError(t, err)
}

func (f fixture) available(t *testing.T, product string) int {
	t.Helper()
	list, err := f.stock.ListBranch(context.Background(), branch, false, dto.PageRequest{Limit: 100})
	require.NoError(t, err)
	for _, r := range list.Items {
		if r.ProductID == product {
			return r.AvailableStock
		}
	}
	return 0
}

func (f fixture) records(t *testing.T, product string) []*entity.StockRecord {
	t.Helper()
	list, err := f.stock.ListBranch(context.Background(), branch, false, dto.PageRequest{Limit: 100})
	require.NoError(t, err)
	var out []*entity.StockRecord
	for _, r := range list.Items {
		if r.ProductID == product {
			out = append(out, r)
		}
	}
	return out
}

func saleLine(product string, qty int, price int64) dto.SaleLineRequest {
	return dto.SaleLineRequest{ProductID: product, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

// sellP1 vende 3 × P1 a 50 y 2 × P1 a 40 (total 230).
func (f fixture) sellP1(t *testing.T) *entity.Sale {
	t.Helper()
	f.receive(t, dto.StockItemRequest{ProductID: "P1", Quantity: 20})
	sale, err := f.sales.Create(context.Background(), "u1", branch, dto.CreateSaleRequest{
		TransactionNumber: "TXN-1",
		CartItems:         []dto.SaleLineRequest{saleLine("P1", 3, 50), saleLine("P1", 2, 40)},
		Payment:           &dto.SalePaymentRequest{Method: "cash"},
	})
	require.NoError(t, err)
	return sale
}

func returnLine(product string, qty int) entity.AdjustmentLine {
	return entity.AdjustmentLine{Kind: entity.LineKindReturned, ProductID: product, Quantity: qty}
}

// ─── Devoluciones ─────────────────────────────────────────────────────────────

func TestCreateReturn_RestocksAndReconciles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)
	require.Equal(t, 15, f.available(t, "P1"))

	resp, err := f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.TransactionNumber, TransactionNumber: "RET-1", Lines: []entity.AdjustmentLine{returnLine("P1", 1)}, ActorID: "u1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Adjustment.Totals.ReturnedValue.Equal(decimal.NewFromInt(40)), "se devuelve la unidad más barata")
	assert.True(t, resp.Adjustment.Payment.RefundAmount.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 16, f.available(t, "P1"))

	_, err = f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.ID, TransactionNumber: "RET-2", Lines: []entity.AdjustmentLine{returnLine("P1", 2)}, ActorID: "u1",
	})
	require.NoError(t, err)

	detail, err := f.returns.Detail(ctx, sale.TransactionNumber)
	require.NoError(t, err)
	assert.Len(t, detail.Returns, 2)
	assert.True(t, detail.UpdatedTotals.ReturnedValue.Equal(decimal.NewFromInt(130)), "40 + 40 + 50")
	assert.True(t, detail.UpdatedTotals.NetAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, detail.Remaining()["P1"])
	assert.Equal(t, 18, f.available(t, "P1"))
}

func TestCreateReturn_RejectsOverReturnWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)

	_, err := f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.ID, Lines: []entity.AdjustmentLine{returnLine("P1", 6)}, ActorID: "u1",
	})
	require.ErrorIs(t, err, domain.ErrOverAllocation)
	assert.Equal(t, 15, f.available(t, "P1"), "el stock no cambia")

	detail, err := f.returns.Detail(ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Returns)
}

func TestCreateReturn_BestEffortTrimsAndWarns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	sale := f.sellP1(t)

	resp, err := f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.ID, Lines: []entity.AdjustmentLine{returnLine("P1", 7)}, ActorID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, resp.Adjustment.Items, 2, "una línea por línea de venta consumida")
	assert.Equal(t, 2, resp.Adjustment.Items[0].Quantity)
	assert.Equal(t, 3, resp.Adjustment.Items[1].Quantity)
	assert.NotEmpty(t, resp.Warnings)
	assert.Equal(t, 20, f.available(t, "P1"))
}

func TestCreateReturn_RestocksSoldVariantAndColor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.receive(t, dto.StockItemRequest{ProductID: "P1", VariantID: "V1", Color: "Rojo", Quantity: 10})
	line := saleLine("P1", 3, 50)
	line.VariantID, line.Color = "V1", "Rojo"
	sale, err := f.sales.Create(ctx, "u1", branch, dto.CreateSaleRequest{
		TransactionNumber: "TXN-V", CartItems: []dto.SaleLineRequest{line}, Payment: &dto.SalePaymentRequest{Method: "cash"},
	})
	require.NoError(t, err)

	resp, err := f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.ID, TransactionNumber: "RET-V",
		Lines:   []entity.AdjustmentLine{{Kind: entity.LineKindReturned, ProductID: "P1", VariantID: "V1", Quantity: 1}},
		ActorID: "u1",
	})
	require.NoError(t, err)
	require.Len(t, resp.Adjustment.Items, 1)
	assert.Equal(t, "Rojo", resp.Adjustment.Items[0].Color)

	records := f.records(t, "P1")
	require.Len(t, records, 1, "no se crea un registro sin color")
	assert.Equal(t, 8, records[0].AvailableStock)

	_, err = f.returns.Void(ctx, "RET-V", "u1", "error de caja")
	require.NoError(t, err)
	records = f.records(t, "P1")
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].AvailableStock)
}

func TestCreateReturn_DuplicateTransactionNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)
	in := returns.ReturnInput{SaleRef: sale.ID, TransactionNumber: "RET-1", Lines: []entity.AdjustmentLine{returnLine("P1", 1)}, ActorID: "u1"}

	_, err := f.returns.CreateReturn(ctx, in)
	require.NoError(t, err)
	_, err = f.returns.CreateReturn(ctx, in)
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, 16, f.available(t, "P1"), "el duplicado no reingresa stock")
}

func TestCreateReturn_RequiresCompletedSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale, err := f.sales.Create(ctx, "u1", branch, dto.CreateSaleRequest{
		Status: entity.SaleStatusHeld, CartItems: []dto.SaleLineRequest{saleLine("P1", 1, 10)},
	})
	require.NoError(t, err)

	_, err = f.returns.CreateReturn(ctx, returns.ReturnInput{SaleRef: sale.ID, Lines: []entity.AdjustmentLine{returnLine("P1", 1)}})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.returns.CreateReturn(ctx, returns.ReturnInput{SaleRef: "no-existe", Lines: []entity.AdjustmentLine{returnLine("P1", 1)}})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// ─── Cambios ──────────────────────────────────────────────────────────────────

func TestCreateExchange_AdditionalPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.receive(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10}, dto.StockItemRequest{ProductID: "P2", Quantity: 10})
	sale, err := f.sales.Create(ctx, "u1", branch, dto.CreateSaleRequest{
		CartItems: []dto.SaleLineRequest{saleLine("P1", 1, 50)},
		Payment:   &dto.SalePaymentRequest{Method: "cash"},
	})
	require.NoError(t, err)

	issued := entity.AdjustmentLine{Kind: entity.LineKindIssued, ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(80)}
	in := returns.ExchangeInput{
		SaleRef:           sale.ID,
		TransactionNumber: "EXC-1",
		ActorID:           "u1",
		Returned:          []entity.AdjustmentLine{returnLine("P1", 1)},
		Issued:            []entity.AdjustmentLine{issued},
		Payment:           dto.AdjustmentPaymentRequest{Method: "cash"},
	}

	_, err = f.returns.CreateExchange(ctx, in)
	require.ErrorIs(t, err, domain.ErrInvalidInput, "sin pago adicional")

	in.Payment.AdditionalPayment = &dto.AdditionalPaymentRequest{Amount: decimal.NewFromInt(30), Method: "card"}
	resp, err := f.returns.CreateExchange(ctx, in)
	require.NoError(t, err)
	adj := resp.Adjustment
	assert.Equal(t, entity.ExchangeModeAdditionalPayment, adj.Mode)
	assert.True(t, adj.Totals.PriceDifference.Equal(decimal.NewFromInt(30)))
	assert.True(t, adj.Totals.GrandTotal.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, adj.Payment.AdditionalPayment)
	assert.Equal(t, "card", adj.Payment.AdditionalPayment.Method)

	assert.Equal(t, 10, f.available(t, "P1"), "P1 vuelve al stock")
	assert.Equal(t, 9, f.available(t, "P2"), "P2 sale del stock")

	detail, err := f.returns.Detail(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, detail.Exchanges, 1)
	assert.Len(t, detail.ExchangeItems, 1)
	assert.True(t, detail.UpdatedTotals.AdditionalPaymentTotal.Equal(decimal.NewFromInt(30)))
	assert.True(t, detail.UpdatedTotals.NetAmount.Equal(decimal.NewFromInt(80)), "50 - 0 devuelto + 30")
}

func TestCreateExchange_RefundWhenCheaper(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)
	f.receive(t, dto.StockItemRequest{ProductID: "P2", Quantity: 3})

	resp, err := f.returns.CreateExchange(ctx, returns.ExchangeInput{
		SaleRef:  sale.ID,
		ActorID:  "u1",
		Returned: []entity.AdjustmentLine{returnLine("P1", 1)},
		Issued:   []entity.AdjustmentLine{{Kind: entity.LineKindIssued, ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(25)}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ExchangeModeRefund, resp.Adjustment.Mode)
	assert.True(t, resp.Adjustment.Payment.RefundAmount.Equal(decimal.NewFromInt(15)), "40 - 25")
}

func TestCreateExchange_InsufficientIssuedStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)

	_, err := f.returns.CreateExchange(ctx, returns.ExchangeInput{
		SaleRef:  sale.ID,
		ActorID:  "u1",
		Returned: []entity.AdjustmentLine{returnLine("P1", 1)},
		Issued:   []entity.AdjustmentLine{{Kind: entity.LineKindIssued, ProductID: "SIN-STOCK", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 15, f.available(t, "P1"), "el reingreso de P1 se compensa")

	detail, err := f.returns.Detail(ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Exchanges)
}

func TestCreateExchange_WithoutSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.receive(t, dto.StockItemRequest{ProductID: "P2", Quantity: 2})

	resp, err := f.returns.CreateExchange(ctx, returns.ExchangeInput{
		BranchID: branch, ActorID: "u1",
		Returned: []entity.AdjustmentLine{{Kind: entity.LineKindReturned, ProductID: "P9", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
		Issued:   []entity.AdjustmentLine{{Kind: entity.LineKindIssued, ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Adjustment.OriginalSaleID)
	assert.Equal(t, entity.ExchangeModeEven, resp.Adjustment.Mode)
	assert.Equal(t, 1, f.available(t, "P9"), "el registro devuelto se crea")
	assert.Equal(t, 1, f.available(t, "P2"))
}

// ─── Anulación y adaptador HTTP ───────────────────────────────────────────────

func TestVoid_RevertsStockAndFreesQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)

	_, err := f.returns.CreateReturn(ctx, returns.ReturnInput{
		SaleRef: sale.ID, TransactionNumber: "RET-1", Lines: []entity.AdjustmentLine{returnLine("P1", 5)}, ActorID: "u1",
	})
	require.NoError(t, err)
	require.Equal(t, 20, f.available(t, "P1"))

	voided, err := f.returns.Void(ctx, "RET-1", "u2", "error de caja")
	require.NoError(t, err)
	assert.True(t, voided.IsVoided())
	assert.Equal(t, "u2", voided.VoidedBy)
	assert.Equal(t, 15, f.available(t, "P1"))

	_, err = f.returns.Void(ctx, "RET-1", "u2", "")
	require.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.returns.Get(ctx, "RET-1")
	require.NoError(t, err)
	assert.Equal(t, entity.AdjustmentStatusVoided, stored.Status)
	_, err = f.returns.Get(ctx, "RET-404")
	require.ErrorIs(t, err, domain.ErrNotFound)

	detail, err := f.returns.Detail(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.Remaining()["P1"], "la cantidad anulada vuelve a ser retornable")
	assert.Empty(t, detail.Returns)
}

func TestCreate_LegacySignConvention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	sale := f.sellP1(t)
	f.receive(t, dto.StockItemRequest{ProductID: "P2", Quantity: 3})

	resp, err := f.returns.Create(ctx, "u1", branch, dto.CreateAdjustmentRequest{
		Type:                  entity.AdjustmentTypeExchange,
		OriginalTransactionID: sale.TransactionNumber,
		Items: []dto.AdjustmentItemRequest{
			{ProductID: "P1", Quantity: -1},
			{ProductID: "P2", Quantity: 1, UnitPrice: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)
	adj := resp.Adjustment
	require.Len(t, adj.ReturnedLines(), 1)
	require.Len(t, adj.IssuedLines(), 1)
	assert.Equal(t, 1, adj.ReturnedLines()[0].Quantity)
	assert.Equal(t, entity.ExchangeModeEven, adj.Mode)

	_, err = f.returns.Create(ctx, "u1", branch, dto.CreateAdjustmentRequest{Type: "otro"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetail_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, true)
	sale := f.sellP1(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	detail, err := f.returns.Detail(ctx, sale.TransactionNumber)
	require.NoError(t, err, "la carga compartida no depende del contexto del primer llamador")
	assert.Equal(t, sale.ID, detail.Sale.ID)
	assert.Equal(t, 5, detail.Remaining()["P1"])
}

func TestDetail_NotFound(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.returns.Detail(context.Background(), "nada")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

