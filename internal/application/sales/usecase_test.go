package sales_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/sales"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func setup(t *testing.T, stock ...dto.StockItemRequest) (*sales.SaleUseCase, *appinv.StockLedgerUseCase) {
	t.Helper()
	ledger := appinv.NewLedger(memory.NewTxRunner(memory.NewStore(nil)), appinv.NewLocalKeyLocker(time.Second), nil, nil,
		logger.Nop(), appinv.LedgerConfig{})
	stockUC := appinv.NewStockLedgerUseCase(ledger)
	if len(stock) > 0 {
		_, err := stockUC.Receive(context.Background(), "B1", "u1", dto.ReceiveStockRequest{Items: stock})
		require.NoError(t, err)
	}
	return sales.NewSaleUseCase(ledger), stockUC
}

func available(t *testing.T, uc *appinv.StockLedgerUseCase, product string) int {
	t.Helper()
	list, err := uc.ListBranch(context.Background(), "B1", false, dto.PageRequest{Limit: 100})
	require.NoError(t, err)
	for _, r := range list.Items {
		if r.ProductID == product {
			return r.AvailableStock
		}
	}
	return 0
}

func cart(lines ...dto.SaleLineRequest) []dto.SaleLineRequest { return lines }

func line(product string, qty int, price int64) dto.SaleLineRequest {
	return dto.SaleLineRequest{ProductID: product, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func TestCreate_CompletedSellsEveryLine(t *testing.T) {
	uc, stock := setup(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10}, dto.StockItemRequest{ProductID: "P2", Quantity: 10})
	discounted := line("P2", 2, 100)
	discounted.DiscountPercent = decimal.NewFromInt(10)

	sale, err := uc.Create(context.Background(), "u1", "B1", dto.CreateSaleRequest{
		CartItems: cart(line("P1", 3, 50), discounted),
		Payment:   &dto.SalePaymentRequest{Method: "cash", AmountPaid: decimal.NewFromInt(400)},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusCompleted, sale.Status)
	assert.True(t, strings.HasPrefix(sale.TransactionNumber, "TXN-"))
	assert.True(t, sale.Totals.Subtotal.Equal(decimal.NewFromInt(330)), "150 + 180")
	assert.True(t, sale.Totals.TotalDiscount.Equal(decimal.NewFromInt(20)))
	assert.True(t, sale.Payment.Change.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "L1", sale.CartItems[0].LineID)
	assert.NotNil(t, sale.CompletedAt)

	assert.Equal(t, 7, available(t, stock, "P1"))
	assert.Equal(t, 8, available(t, stock, "P2"))
}

func TestCreate_InsufficientStockLeavesNothing(t *testing.T) {
	ctx := context.Background()
	uc, stock := setup(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10}, dto.StockItemRequest{ProductID: "P2", Quantity: 1})

	_, err := uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{
		TransactionNumber: "TXN-X",
		CartItems:         cart(line("P1", 3, 50), line("P2", 2, 10)),
		Payment:           &dto.SalePaymentRequest{Method: "cash"},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 10, available(t, stock, "P1"), "la primera línea se compensa")

	_, err = uc.Get(ctx, "TXN-X")
	require.ErrorIs(t, err, domain.ErrNotFound, "la venta no queda persistida")
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	uc, _ := setup(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10})

	_, err := uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{CartItems: cart(line("P1", 1, 10))})
	require.ErrorIs(t, err, domain.ErrInvalidInput, "completar exige pago")

	_, err = uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{
		CartItems: cart(line("P1", 1, 100)),
		Payment:   &dto.SalePaymentRequest{Method: "cash", AmountPaid: decimal.NewFromInt(50)},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput, "pago insuficiente")

	bad := line("P1", 1, 10)
	bad.DiscountPercent = decimal.NewFromInt(120)
	_, err = uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{Status: entity.SaleStatusHeld, CartItems: cart(bad)})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, "u1", "", dto.CreateSaleRequest{Status: entity.SaleStatusHeld, CartItems: cart(line("P1", 1, 10))})
	require.ErrorIs(t, err, domain.ErrInvalidInput, "sin sucursal")
}

func TestCreate_DuplicateTransactionNumber(t *testing.T) {
	ctx := context.Background()
	uc, stock := setup(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10})
	req := dto.CreateSaleRequest{
		TransactionNumber: "TXN-1",
		CartItems:         cart(line("P1", 1, 10)),
		Payment:           &dto.SalePaymentRequest{Method: "cash"},
	}
	_, err := uc.Create(ctx, "u1", "B1", req)
	require.NoError(t, err)
	_, err = uc.Create(ctx, "u1", "B1", req)
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, 9, available(t, stock, "P1"), "el duplicado no descuenta")
}

func TestLifecycle_HoldThenComplete(t *testing.T) {
	ctx := context.Background()
	uc, stock := setup(t, dto.StockItemRequest{ProductID: "P1", Quantity: 10})

	sale, err := uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{
		TransactionNumber: "TXN-H", Status: entity.SaleStatusActive, CartItems: cart(line("P1", 2, 10)),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusActive, sale.Status)
	assert.Equal(t, 10, available(t, stock, "P1"), "una venta activa no toca stock")

	held, err := uc.Hold(ctx, "TXN-H")
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusHeld, held.Status)

	done, err := uc.Complete(ctx, "TXN-H", "u1", dto.CompleteSaleRequest{Payment: dto.SalePaymentRequest{Method: "card"}})
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusCompleted, done.Status)
	assert.Equal(t, "card", done.Payment.Method)
	assert.Equal(t, 8, available(t, stock, "P1"))

	_, err = uc.Complete(ctx, "TXN-H", "u1", dto.CompleteSaleRequest{Payment: dto.SalePaymentRequest{Method: "card"}})
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = uc.Void(ctx, "TXN-H")
	require.ErrorIs(t, err, domain.ErrConflict, "una venta completada no se anula")
}

func TestVoid_HeldSale(t *testing.T) {
	ctx := context.Background()
	uc, _ := setup(t)

	sale, err := uc.Create(ctx, "u1", "B1", dto.CreateSaleRequest{Status: entity.SaleStatusHeld, CartItems: cart(line("P1", 1, 10))})
	require.NoError(t, err)
	voided, err := uc.Void(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SaleStatusVoid, voided.Status)

	_, err = uc.Hold(ctx, sale.TransactionNumber)
	require.ErrorIs(t, err, domain.ErrConflict)
}
