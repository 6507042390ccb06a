package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una unidad de trabajo, pasando repositorios atados a ella.
// Si fn devuelve error no queda ningún cambio aplicado (rollback o compensación).
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error
}

// KeyLocker serializa las mutaciones por llave de stock. Lock adquiere todas las llaves
// en orden y devuelve la función de liberación; al vencer la espera devuelve
// domain.ErrConcurrencyConflict.
type KeyLocker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// AlertNotifier entrega alertas de stock bajo fuera de la transacción (cola de trabajos).
type AlertNotifier interface {
	NotifyLowStock(ctx context.Context, alert entity.StockAlert) error
}

// Tipos de evento publicados tras el commit.
const (
	EventStockMovement = "stock.movement"
	EventStockAlert    = "stock.alert"
)

// Event evento de dominio publicado tras el commit.
type Event struct {
	Type       string
	Key        string
	Payload    any
	OccurredAt time.Time
}

// EventPublisher publica eventos de dominio (broker de mensajes).
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyLowStock(context.Context, entity.StockAlert) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...Event) error { return nil }
