package entity

import "time"

// Acciones del historial de stock.
const (
	MovementActionSale        = "sale"
	MovementActionPurchase    = "purchase"
	MovementActionReturn      = "return"
	MovementActionExchange    = "exchange"
	MovementActionAdjustment  = "adjustment"
	MovementActionTransfer    = "transfer"
	MovementActionReservation = "reservation"
)

// StockMovement entrada inmutable del historial de un StockRecord (log append-only, referenciado por StockRecordID).
type StockMovement struct {
	ID            string `json:"id"`
	StockRecordID string `json:"stockRecordId"`
	StockKey
	Operation      string    `json:"operation"` // operación concreta (sell, receive, adjust_damage, ...)
	Action         string    `json:"action"`
	QuantityDelta  int       `json:"quantityDelta"` // con signo, sobre currentStock o el contador afectado
	BalanceAfter   int       `json:"balanceAfter"`  // currentStock después del movimiento
	AvailableAfter int       `json:"availableAfter"`
	Reference      string    `json:"reference,omitempty"` // número de transacción de venta/ajuste/traslado
	Reason         string    `json:"reason,omitempty"`
	ActorID        string    `json:"actorId"`
	CreatedAt      time.Time `json:"timestamp"`
}
