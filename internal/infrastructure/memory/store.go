// Package memory implementa los repositorios en memoria del proceso. Cada unidad de trabajo
// toma el candado global y registra el inverso de cada cambio; si la función falla los
// inversos se aplican en orden inverso antes de devolver el error.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu  sync.Mutex
	log *logger.Logger

	stocks     map[string]entity.StockRecord // por id
	stockByKey map[string]string             // StockKey.String() -> id
	movements  map[string][]entity.StockMovement

	sales     map[string]entity.Sale
	saleByTxn map[string]string

	adjustments map[string]entity.AdjustmentRecord
	adjByTxn    map[string]string

	stockAdjustments []entity.StockAdjustment
	transfers        map[string]entity.StockTransfer
	alerts           []entity.StockAlert
}

// NewStore crea un almacén vacío. log puede ser nil.
func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:         log,
		stocks:      make(map[string]entity.StockRecord),
		stockByKey:  make(map[string]string),
		movements:   make(map[string][]entity.StockMovement),
		sales:       make(map[string]entity.Sale),
		saleByTxn:   make(map[string]string),
		adjustments: make(map[string]entity.AdjustmentRecord),
		adjByTxn:    make(map[string]string),
		transfers:   make(map[string]entity.StockTransfer),
	}
}

// TxRunner unidad de trabajo sobre el Store.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run serializa fn contra el Store y compensa sus cambios si falla.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u := &unit{s: r.store}
	if err := fn(ctx, u.repos()); err != nil {
		u.rollback()
		if r.store.log != nil && len(u.undo) > 0 {
			r.store.log.Warn().Err(err).Int("changes", len(u.undo)).Msg("unidad de trabajo compensada")
		}
		return err
	}
	return nil
}

// unit una unidad de trabajo en curso; el candado del Store ya está tomado.
type unit struct {
	s    *Store
	undo []func()
}

func (u *unit) record(fn func()) {
	u.undo = append(u.undo, fn)
}

func (u *unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func (u *unit) repos() repository.Repos {
	return repository.Repos{
		Stocks:           &stockRepo{u: u},
		Movements:        &movementRepo{u: u},
		Sales:            &saleRepo{u: u},
		Adjustments:      &adjustmentRepo{u: u},
		StockAdjustments: &stockAdjustmentRepo{u: u},
		Transfers:        &transferRepo{u: u},
		Alerts:           &alertRepo{u: u},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
