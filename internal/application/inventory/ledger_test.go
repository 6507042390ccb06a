package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ─── Dobles de prueba ─────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []entity.StockAlert
	err    error
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, a entity.StockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []appinv.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...appinv.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// flakyRunner falla con conflicto de versión las primeras n ejecuciones.
type flakyRunner struct {
	inner    appinv.TxRunner
	failures int
	calls    int
}

func (r *flakyRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	r.calls++
	return r.inner.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := fn(ctx, repos); err != nil {
			return err
		}
		if r.calls <= r.failures {
			return fmt.Errorf("%w: simulado", domain.ErrConcurrencyConflict)
		}
		return nil
	})
}

type env struct {
	ledger    *appinv.Ledger
	stock     *appinv.StockLedgerUseCase
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newEnv(t *testing.T, runner appinv.TxRunner, retries int) env {
	t.Helper()
	if runner == nil {
		runner = memory.NewTxRunner(memory.NewStore(nil))
	}
	n, p := &recordingNotifier{}, &recordingPublisher{}
	ledger := appinv.NewLedger(runner, appinv.NewLocalKeyLocker(time.Second), n, p, logger.Nop(),
		appinv.LedgerConfig{DefaultReorderPoint: 5, ConflictRetries: retries})
	return env{ledger: ledger, stock: appinv.NewStockLedgerUseCase(ledger), notifier: n, publisher: p}
}

var keyP1 = entity.StockKey{ProductID: "P1", BranchID: "B1"}

func apply(t *testing.T, e env, op inventory.Operation, qty int) error {
	t.Helper()
	return e.ledger.Execute(context.Background(), []entity.StockKey{keyP1}, func(ctx context.Context, uow *appinv.UnitOfWork) error {
		_, err := uow.Apply(ctx, keyP1, inventory.Command{Op: op, Quantity: qty, ActorID: "u1"})
		return err
	})
}

// ─── Ledger.Execute ───────────────────────────────────────────────────────────

func TestUnitOfWork_ApplyAppendsMovementLog(t *testing.T) {
	e := newEnv(t, nil, 0)
	require.NoError(t, apply(t, e, inventory.OpReceive, 4))
	require.NoError(t, apply(t, e, inventory.OpSell, 1))

	var movs []*entity.StockMovement
	err := e.ledger.Read(context.Background(), func(ctx context.Context, repos repository.Repos) error {
		rec, err := repos.Stocks.GetByKey(ctx, keyP1)
		if err != nil {
			return err
		}
		require.NotNil(t, rec)
		movs, err = repos.Movements.ListByStockRecord(ctx, rec.ID, 10, 0)
		return err
	})
	require.NoError(t, err)
	require.Len(t, movs, 2, "cada Apply deja una entrada en el historial")
	assert.Equal(t, -1, movs[0].QuantityDelta, "más reciente primero")
	assert.Equal(t, 3, movs[0].BalanceAfter)
	assert.Equal(t, 2, e.publisher.count(appinv.EventStockMovement))
}

func TestLedger_RetriesOnVersionConflict(t *testing.T) {
	runner := &flakyRunner{inner: memory.NewTxRunner(memory.NewStore(nil)), failures: 2}
	e := newEnv(t, runner, 3)

	require.NoError(t, apply(t, e, inventory.OpReceive, 10))
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 1, e.publisher.count(appinv.EventStockMovement), "solo el intento confirmado publica")
}

func TestLedger_GivesUpAfterRetries(t *testing.T) {
	runner := &flakyRunner{inner: memory.NewTxRunner(memory.NewStore(nil)), failures: 10}
	e := newEnv(t, runner, 1)

	err := apply(t, e, inventory.OpReceive, 10)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 2, runner.calls)
	assert.Zero(t, e.publisher.count(appinv.EventStockMovement))
}

func TestLedger_DoesNotRetryOtherErrors(t *testing.T) {
	runner := &flakyRunner{inner: memory.NewTxRunner(memory.NewStore(nil))}
	e := newEnv(t, runner, 3)

	err := apply(t, e, inventory.OpSell, 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, runner.calls)
}

func TestLedger_AlertLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil, 0)

	require.NoError(t, apply(t, e, inventory.OpReceive, 3))
	require.Len(t, e.notifier.alerts, 1, "un registro nuevo bajo el umbral abre alerta")
	assert.Equal(t, entity.AlertTypeLowStock, e.notifier.alerts[0].Type)

	require.NoError(t, apply(t, e, inventory.OpSell, 1))
	assert.Len(t, e.notifier.alerts, 1, "seguir bajo no repite la alerta")

	require.NoError(t, apply(t, e, inventory.OpReceive, 10))
	alerts, err := e.stock.Alerts(ctx, "B1")
	require.NoError(t, err)
	assert.Empty(t, alerts.Alerts, "la alerta se resuelve al recuperar stock")
	assert.Empty(t, alerts.LowStock)

	require.NoError(t, apply(t, e, inventory.OpSell, 12))
	require.Len(t, e.notifier.alerts, 2)
	assert.Equal(t, entity.AlertTypeOutOfStock, e.notifier.alerts[1].Type)
	assert.Equal(t, 2, e.publisher.count(appinv.EventStockAlert))
}

func TestLedger_NotifierErrorDoesNotFailCommit(t *testing.T) {
	e := newEnv(t, nil, 0)
	e.notifier.err = errors.New("cola caída")

	require.NoError(t, apply(t, e, inventory.OpReceive, 1))
	list, err := e.stock.ListBranch(context.Background(), "B1", false, dtoPage())
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].CurrentStock)
}

func TestLedger_ConcurrentSellsNeverOversell(t *testing.T) {
	e := newEnv(t, nil, 3)
	require.NoError(t, apply(t, e, inventory.OpReceive, 10))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := apply(t, e, inventory.OpSell, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, short)

	list, err := e.stock.ListBranch(context.Background(), "B1", false, dtoPage())
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Zero(t, list.Items[0].AvailableStock)
	require.NoError(t, list.Items[0].CheckInvariants())
}
