package inventory

import (
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Operation transición atómica sobre un StockRecord.
type Operation string

const (
	OpReceive        Operation = "receive"
	OpSell           Operation = "sell"
	OpReturn         Operation = "return"
	OpAdjustAdd      Operation = "adjust_add"
	OpAdjustRemove   Operation = "adjust_remove"
	OpAdjustDamage   Operation = "adjust_damage"
	OpReserve        Operation = "reserve"
	OpRelease        Operation = "release"
	OpTransferOut    Operation = "transfer_out"
	OpTransferSettle Operation = "transfer_settle"
	OpTransferCancel Operation = "transfer_cancel"
	OpTransferIn     Operation = "transfer_in"
	OpExchangeIn     Operation = "exchange_in"
	OpExchangeOut    Operation = "exchange_out"
	// Reversiones usadas al anular una devolución o cambio.
	OpRevertIncrease Operation = "revert_increase"
	OpRevertDecrease Operation = "revert_decrease"
)

// Command parámetros de una operación.
type Command struct {
	Op        Operation
	Quantity  int
	ActorID   string
	Reason    string
	Reference string
}

// Result registro resultante, entrada de historial y el valor persistido de IsLowStock antes de operar.
type Result struct {
	Record   entity.StockRecord
	Movement entity.StockMovement
	WasLow   bool
}

// LowStockRaised indica que el registro acaba de cruzar su punto de reorden.
func (r Result) LowStockRaised() bool { return !r.WasLow && r.Record.IsLowStock }

// LowStockCleared indica que el registro salió del estado de stock bajo.
func (r Result) LowStockCleared() bool { return r.WasLow && !r.Record.IsLowStock }

// CreatesRecord indica si la operación puede crear el registro cuando no existe
// (solo las que incrementan stock).
func (op Operation) CreatesRecord() bool {
	switch op {
	case OpReceive, OpAdjustAdd, OpTransferIn, OpReturn, OpExchangeIn, OpRevertDecrease:
		return true
	}
	return false
}

// Action acción de historial asociada a la operación.
func (op Operation) Action() string {
	switch op {
	case OpReceive:
		return entity.MovementActionPurchase
	case OpSell:
		return entity.MovementActionSale
	case OpReturn:
		return entity.MovementActionReturn
	case OpExchangeIn, OpExchangeOut:
		return entity.MovementActionExchange
	case OpReserve, OpRelease:
		return entity.MovementActionReservation
	case OpTransferOut, OpTransferSettle, OpTransferCancel, OpTransferIn:
		return entity.MovementActionTransfer
	default:
		return entity.MovementActionAdjustment
	}
}

// Valid indica si la operación es conocida.
func (op Operation) Valid() bool {
	switch op {
	case OpReceive, OpSell, OpReturn, OpAdjustAdd, OpAdjustRemove, OpAdjustDamage,
		OpReserve, OpRelease, OpTransferOut, OpTransferSettle, OpTransferCancel, OpTransferIn,
		OpExchangeIn, OpExchangeOut, OpRevertIncrease, OpRevertDecrease:
		return true
	}
	return false
}

// Apply aplica la operación sobre una copia del registro. Si falla, el registro original no cambia.
// defaultReorder se usa cuando el registro no tiene punto de reorden propio.
func Apply(rec entity.StockRecord, cmd Command, now time.Time, defaultReorder int) (Result, error) {
	if !cmd.Op.Valid() {
		return Result{}, fmt.Errorf("%w: operación desconocida %q", domain.ErrInvalidInput, cmd.Op)
	}
	if cmd.Quantity <= 0 {
		return Result{}, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if err := rec.CheckInvariants(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
	}

	q := cmd.Quantity
	next := rec
	wasLow := rec.IsLowStock
	var delta int

	switch cmd.Op {
	case OpReceive, OpAdjustAdd, OpTransferIn:
		next.CurrentStock += q
		next.AvailableStock += q
		restock := now
		next.LastRestockDate = &restock
		delta = q
	case OpReturn, OpExchangeIn, OpRevertDecrease:
		next.CurrentStock += q
		next.AvailableStock += q
		delta = q
	case OpSell, OpExchangeOut, OpAdjustRemove, OpRevertIncrease:
		if rec.AvailableStock < q {
			return Result{}, insufficient(rec, "disponible", rec.AvailableStock, q)
		}
		next.CurrentStock -= q
		next.AvailableStock -= q
		delta = -q
	case OpAdjustDamage:
		if rec.CurrentStock < q {
			return Result{}, insufficient(rec, "actual", rec.CurrentStock, q)
		}
		if rec.AvailableStock < q {
			return Result{}, insufficient(rec, "disponible", rec.AvailableStock, q)
		}
		next.CurrentStock -= q
		next.AvailableStock -= q
		next.DamagedStock += q
		delta = -q
	case OpReserve:
		if rec.AvailableStock < q {
			return Result{}, insufficient(rec, "disponible", rec.AvailableStock, q)
		}
		next.ReservedStock += q
		next.AvailableStock -= q
		delta = -q
	case OpRelease:
		if rec.ReservedStock < q {
			return Result{}, insufficient(rec, "reservado", rec.ReservedStock, q)
		}
		next.ReservedStock -= q
		next.AvailableStock += q
		delta = q
	case OpTransferOut:
		if rec.AvailableStock < q {
			return Result{}, insufficient(rec, "disponible", rec.AvailableStock, q)
		}
		next.AvailableStock -= q
		next.InTransitStock += q
		delta = -q
	case OpTransferSettle:
		if rec.InTransitStock < q {
			return Result{}, insufficient(rec, "en tránsito", rec.InTransitStock, q)
		}
		next.CurrentStock -= q
		next.InTransitStock -= q
		delta = -q
	case OpTransferCancel:
		if rec.InTransitStock < q {
			return Result{}, insufficient(rec, "en tránsito", rec.InTransitStock, q)
		}
		next.InTransitStock -= q
		next.AvailableStock += q
		delta = q
	}

	if err := next.CheckInvariants(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrInvariantViolation, err)
	}
	next.IsLowStock = IsLow(next, defaultReorder)
	next.UpdatedAt = now

	mov := entity.StockMovement{
		StockRecordID:  next.ID,
		StockKey:       next.Key(),
		Operation:      string(cmd.Op),
		Action:         cmd.Op.Action(),
		QuantityDelta:  delta,
		BalanceAfter:   next.CurrentStock,
		AvailableAfter: next.AvailableStock,
		Reference:      cmd.Reference,
		Reason:         cmd.Reason,
		ActorID:        cmd.ActorID,
		CreatedAt:      now,
	}
	return Result{Record: next, Movement: mov, WasLow: wasLow}, nil
}

func insufficient(rec entity.StockRecord, counter string, have, want int) error {
	return fmt.Errorf("%w: %s (stock %s %d, solicitado %d)", domain.ErrInsufficientStock, rec.StockKey.String(), counter, have, want)
}
