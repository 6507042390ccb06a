package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.AlertNotifier = (*Notifier)(nil)

// Enqueuer lo que el notificador usa de *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier encola las alertas de stock bajo para el worker.
type Notifier struct {
	client Enqueuer
}

// NewNotifier construye el notificador.
func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client}
}

// NotifyLowStock encola la alerta. Una alerta ya encolada no es un error.
func (n *Notifier) NotifyLowStock(ctx context.Context, alert entity.StockAlert) error {
	task, err := NewLowStockTask(alert)
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("encolar alerta %s: %w", alert.ID, err)
	}
	return nil
}
