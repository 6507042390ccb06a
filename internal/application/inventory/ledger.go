package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerConfig parámetros del libro de stock.
type LedgerConfig struct {
	DefaultReorderPoint int
	ConflictRetries     int
}

// Ledger coordina las mutaciones de stock: bloqueo por llave, unidad de trabajo con
// reintentos ante conflictos de versión y efectos posteriores al commit.
type Ledger struct {
	tx        TxRunner
	locker    KeyLocker
	notifier  AlertNotifier
	publisher EventPublisher
	log       *logger.Logger
	cfg       LedgerConfig
	now       func() time.Time
}

// NewLedger construye el coordinador. notifier y publisher pueden ser nil.
func NewLedger(tx TxRunner, locker KeyLocker, notifier AlertNotifier, publisher EventPublisher, log *logger.Logger, cfg LedgerConfig) *Ledger {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if cfg.DefaultReorderPoint <= 0 {
		cfg.DefaultReorderPoint = entity.DefaultReorderPoint
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	return &Ledger{
		tx:        tx,
		locker:    locker,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DefaultReorderPoint umbral aplicado a registros sin punto de reorden propio.
func (l *Ledger) DefaultReorderPoint() int { return l.cfg.DefaultReorderPoint }

// Read ejecuta fn en una unidad de trabajo sin bloqueos por llave (consultas).
func (l *Ledger) Read(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return l.tx.Run(ctx, fn)
}

// Execute bloquea las llaves, ejecuta fn en una unidad de trabajo y, tras el commit, publica
// movimientos y alertas. Ante ErrConcurrencyConflict repite fn hasta ConflictRetries veces.
func (l *Ledger) Execute(ctx context.Context, keys []entity.StockKey, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}
	unlock, err := l.locker.Lock(ctx, names...)
	if err != nil {
		return err
	}
	defer unlock()

	var uow *UnitOfWork
	for attempt := 0; ; attempt++ {
		err = l.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
			uow = &UnitOfWork{Repos: repos, ledger: l, now: l.now()}
			return fn(ctx, uow)
		})
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrInvariantViolation) {
			l.log.Error().Err(err).Strs("keys", names).Msg("violación de invariante en libro de stock")
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= l.cfg.ConflictRetries {
			return err
		}
		l.log.Warn().Err(err).Int("attempt", attempt+1).Msg("conflicto de versión, reintentando")
	}

	l.dispatch(ctx, uow)
	return nil
}

// dispatch efectos posteriores al commit; los errores se registran y no se propagan.
func (l *Ledger) dispatch(ctx context.Context, uow *UnitOfWork) {
	if len(uow.movements) == 0 && len(uow.alerts) == 0 {
		return
	}
	events := make([]Event, 0, len(uow.movements)+len(uow.alerts))
	for _, m := range uow.movements {
		events = append(events, Event{Type: EventStockMovement, Key: m.StockRecordID, Payload: m, OccurredAt: m.CreatedAt})
	}
	for _, a := range uow.alerts {
		events = append(events, Event{Type: EventStockAlert, Key: a.StockRecordID, Payload: a, OccurredAt: a.CreatedAt})
		if err := l.notifier.NotifyLowStock(ctx, a); err != nil {
			l.log.Error().Err(err).Str("alert_id", a.ID).Msg("no se pudo encolar alerta de stock bajo")
		}
	}
	if err := l.publisher.Publish(ctx, events...); err != nil {
		l.log.Error().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos de stock")
	}
}

// UnitOfWork repositorios de una transacción más los efectos acumulados para después del commit.
type UnitOfWork struct {
	repository.Repos
	ledger    *Ledger
	now       time.Time
	movements []entity.StockMovement
	alerts    []entity.StockAlert
}

// Now instante común a todas las mutaciones de la unidad de trabajo.
func (u *UnitOfWork) Now() time.Time { return u.now }

// Apply lee el registro con bloqueo, aplica la operación, persiste registro y movimiento y
// abre o resuelve la alerta de stock bajo si el indicador cambió.
func (u *UnitOfWork) Apply(ctx context.Context, key entity.StockKey, cmd inventory.Command) (*entity.StockRecord, error) {
	key = key.Normalize()
	if !key.Valid() {
		return nil, fmt.Errorf("%w: llave de stock incompleta", domain.ErrInvalidInput)
	}
	rec, err := u.Stocks.GetByKeyForUpdate(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if !cmd.Op.CreatesRecord() {
			return nil, fmt.Errorf("%w: sin registro de stock para %s", domain.ErrInsufficientStock, key.String())
		}
		fresh := entity.NewStockRecord(uuid.NewString(), key, u.now)
		if err := u.Stocks.Create(ctx, &fresh); err != nil {
			return nil, err
		}
		rec = &fresh
	}

	res, err := inventory.Apply(*rec, cmd, u.now, u.ledger.cfg.DefaultReorderPoint)
	if err != nil {
		return nil, err
	}
	next := res.Record
	if err := u.Stocks.Update(ctx, &next); err != nil {
		return nil, err
	}
	mov := res.Movement
	mov.ID = uuid.NewString()
	if err := u.Movements.Create(ctx, &mov); err != nil {
		return nil, err
	}
	u.movements = append(u.movements, mov)

	if err := u.project(ctx, next, res.WasLow); err != nil {
		return nil, err
	}
	return &next, nil
}

// SetReorderPoint cambia el punto de reorden y recalcula IsLowStock.
func (u *UnitOfWork) SetReorderPoint(ctx context.Context, id string, point int) (*entity.StockRecord, error) {
	if point < 0 {
		return nil, fmt.Errorf("%w: punto de reorden negativo", domain.ErrInvalidInput)
	}
	current, err := u.Stocks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	rec, err := u.Stocks.GetByKeyForUpdate(ctx, current.Key())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	wasLow := rec.IsLowStock
	next := *rec
	next.ReorderPoint = point
	next = inventory.Project(next, u.ledger.cfg.DefaultReorderPoint)
	next.UpdatedAt = u.now
	if err := u.Stocks.Update(ctx, &next); err != nil {
		return nil, err
	}
	if err := u.project(ctx, next, wasLow); err != nil {
		return nil, err
	}
	return &next, nil
}

func (u *UnitOfWork) project(ctx context.Context, rec entity.StockRecord, wasLow bool) error {
	switch {
	case !wasLow && rec.IsLowStock:
		alert := inventory.NewAlert(uuid.NewString(), rec, u.ledger.cfg.DefaultReorderPoint, u.now)
		if err := u.Alerts.Create(ctx, &alert); err != nil {
			return err
		}
		u.alerts = append(u.alerts, alert)
	case wasLow && !rec.IsLowStock:
		if err := u.Alerts.ResolveOpen(ctx, rec.ID, u.now); err != nil {
			return err
		}
	}
	return nil
}
