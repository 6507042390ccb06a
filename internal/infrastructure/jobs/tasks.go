package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const (
	// QueueAlerts cola de alertas de stock.
	QueueAlerts = "alerts"
	// TaskStockLowAlert se encola cuando un registro cruza su punto de reorden.
	TaskStockLowAlert = "stock:low_alert"
)

// NewLowStockTask construye la tarea; el id de la alerta se usa como TaskID para no duplicarla.
func NewLowStockTask(alert entity.StockAlert) (*asynq.Task, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("serializar alerta: %w", err)
	}
	return asynq.NewTask(TaskStockLowAlert, body,
		asynq.Queue(QueueAlerts),
		asynq.TaskID(alert.ID),
		asynq.MaxRetry(5),
	), nil
}
