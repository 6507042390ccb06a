package inventory_test

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newRecord(current int) entity.StockRecord {
	rec := entity.NewStockRecord("rec-1", entity.StockKey{ProductID: "P1", VariantID: "V1", BranchID: "B1"}, testNow)
	rec.CurrentStock = current
	rec.AvailableStock = current
	return rec
}

func apply(t *testing.T, rec entity.StockRecord, op inventory.Operation, qty int) entity.StockRecord {
	t.Helper()
	res, err := inventory.Apply(rec, inventory.Command{Op: op, Quantity: qty, ActorID: "u1"}, testNow, entity.DefaultReorderPoint)
	require.NoError(t, err, "la operación %s no debe fallar", op)
	return res.Record
}

// ──────────────────────────────────────────────────────────────────────────────
// Operaciones individuales
// ──────────────────────────────────────────────────────────────────────────────

func TestApply_ReceiveSetsRestockDate(t *testing.T) {
	res, err := inventory.Apply(newRecord(0), inventory.Command{Op: inventory.OpReceive, Quantity: 10, ActorID: "u1", Reference: "PO-1"}, testNow, 5)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Record.CurrentStock)
	assert.Equal(t, 10, res.Record.AvailableStock)
	require.NotNil(t, res.Record.LastRestockDate)
	assert.Equal(t, testNow, *res.Record.LastRestockDate)
	assert.False(t, res.Record.IsLowStock)

	assert.Equal(t, entity.MovementActionPurchase, res.Movement.Action)
	assert.Equal(t, 10, res.Movement.QuantityDelta)
	assert.Equal(t, 10, res.Movement.BalanceAfter)
	assert.Equal(t, "PO-1", res.Movement.Reference)
	assert.Equal(t, "rec-1", res.Movement.StockRecordID)
}

func TestApply_SellAppendsNegativeDeltaAndFlagsLowStock(t *testing.T) {
	res, err := inventory.Apply(newRecord(8), inventory.Command{Op: inventory.OpSell, Quantity: 3}, testNow, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Record.CurrentStock)
	assert.Equal(t, 5, res.Record.AvailableStock)
	assert.Equal(t, -3, res.Movement.QuantityDelta)
	assert.Equal(t, entity.MovementActionSale, res.Movement.Action)
	assert.True(t, res.Record.IsLowStock, "disponible 5 <= punto de reorden 5")
	assert.True(t, res.LowStockRaised())
}

func TestApply_SellInsufficientLeavesRecordUnchanged(t *testing.T) {
	rec := newRecord(2)
	res, err := inventory.Apply(rec, inventory.Command{Op: inventory.OpSell, Quantity: 3}, testNow, 5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, inventory.Result{}, res)
	assert.Equal(t, 2, rec.CurrentStock)
	assert.Equal(t, 2, rec.AvailableStock)
}

func TestApply_DamageMovesUnitsOutOfCurrent(t *testing.T) {
	rec := apply(t, newRecord(10), inventory.OpAdjustDamage, 4)

	assert.Equal(t, 6, rec.CurrentStock)
	assert.Equal(t, 6, rec.AvailableStock)
	assert.Equal(t, 4, rec.DamagedStock)
}

func TestApply_DamageRequiresAvailable(t *testing.T) {
	rec := apply(t, newRecord(10), inventory.OpReserve, 8)

	_, err := inventory.Apply(rec, inventory.Command{Op: inventory.OpAdjustDamage, Quantity: 3}, testNow, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestApply_ReserveAndRelease(t *testing.T) {
	rec := apply(t, newRecord(10), inventory.OpReserve, 4)
	assert.Equal(t, 10, rec.CurrentStock)
	assert.Equal(t, 4, rec.ReservedStock)
	assert.Equal(t, 6, rec.AvailableStock)

	_, err := inventory.Apply(rec, inventory.Command{Op: inventory.OpRelease, Quantity: 5}, testNow, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	rec = apply(t, rec, inventory.OpRelease, 4)
	assert.Equal(t, 0, rec.ReservedStock)
	assert.Equal(t, 10, rec.AvailableStock)
}

func TestApply_TransferLifecycle(t *testing.T) {
	src := apply(t, newRecord(10), inventory.OpTransferOut, 4)
	assert.Equal(t, 10, src.CurrentStock, "el origen conserva currentStock mientras está en tránsito")
	assert.Equal(t, 6, src.AvailableStock)
	assert.Equal(t, 4, src.InTransitStock)

	settled := apply(t, src, inventory.OpTransferSettle, 4)
	assert.Equal(t, 6, settled.CurrentStock)
	assert.Equal(t, 0, settled.InTransitStock)
	assert.Equal(t, 6, settled.AvailableStock)

	cancelled := apply(t, src, inventory.OpTransferCancel, 4)
	assert.Equal(t, 10, cancelled.CurrentStock)
	assert.Equal(t, 10, cancelled.AvailableStock)
	assert.Equal(t, 0, cancelled.InTransitStock)

	dst := apply(t, newRecord(0), inventory.OpTransferIn, 4)
	assert.Equal(t, 4, dst.CurrentStock)
	assert.Equal(t, 4, dst.AvailableStock)
}

func TestApply_RejectsNonPositiveQuantity(t *testing.T) {
	for _, q := range []int{0, -1} {
		_, err := inventory.Apply(newRecord(5), inventory.Command{Op: inventory.OpReceive, Quantity: q}, testNow, 5)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestApply_RejectsCorruptRecord(t *testing.T) {
	rec := newRecord(5)
	rec.AvailableStock = 9

	_, err := inventory.Apply(rec, inventory.Command{Op: inventory.OpReceive, Quantity: 1}, testNow, 5)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApply_OwnReorderPointWins(t *testing.T) {
	rec := newRecord(30)
	rec.ReorderPoint = 20

	res, err := inventory.Apply(rec, inventory.Command{Op: inventory.OpSell, Quantity: 10}, testNow, 5)
	require.NoError(t, err)
	assert.True(t, res.Record.IsLowStock)

	res, err = inventory.Apply(res.Record, inventory.Command{Op: inventory.OpReceive, Quantity: 5}, testNow, 5)
	require.NoError(t, err)
	assert.False(t, res.Record.IsLowStock)
	assert.True(t, res.LowStockCleared())
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades: conservación y ausencia de stock negativo en secuencias aleatorias.
// ──────────────────────────────────────────────────────────────────────────────

func TestApply_RandomSequencesPreserveInvariants(t *testing.T) {
	ops := []inventory.Operation{
		inventory.OpReceive, inventory.OpSell, inventory.OpReturn,
		inventory.OpAdjustAdd, inventory.OpAdjustRemove, inventory.OpAdjustDamage,
		inventory.OpReserve, inventory.OpRelease,
		inventory.OpTransferOut, inventory.OpTransferSettle, inventory.OpTransferCancel, inventory.OpTransferIn,
		inventory.OpExchangeIn, inventory.OpExchangeOut,
	}
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 200; run++ {
		rec := newRecord(rng.IntN(20))
		for step := 0; step < 50; step++ {
			op := ops[rng.IntN(len(ops))]
			qty := 1 + rng.IntN(8)

			res, err := inventory.Apply(rec, inventory.Command{Op: op, Quantity: qty}, testNow, 5)
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientStock, "run %d paso %d op %s", run, step, op)
				continue
			}
			rec = res.Record

			require.NoError(t, rec.CheckInvariants(), "run %d paso %d op %s", run, step, op)
			assert.Equal(t, rec.CurrentStock, rec.AvailableStock+rec.ReservedStock+rec.InTransitStock)
			assert.GreaterOrEqual(t, rec.CurrentStock, 0)
			assert.GreaterOrEqual(t, rec.AvailableStock, 0)
			assert.GreaterOrEqual(t, rec.DamagedStock, 0)
			assert.Equal(t, rec.AvailableStock <= 5, rec.IsLowStock)
		}
	}
}
