package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// StockReader consulta el estado actual de un registro.
type StockReader interface {
	GetStockRecord(ctx context.Context, id string) (*entity.StockRecord, error)
}

// AlertSink destino final de una alerta confirmada (correo, webhook, chat).
type AlertSink interface {
	Deliver(ctx context.Context, alert entity.StockAlert, current *entity.StockRecord) error
}

// LogSink registra la alerta en el log estructurado.
type LogSink struct {
	Log *logger.Logger
}

// Deliver escribe la alerta como warning.
func (s LogSink) Deliver(_ context.Context, alert entity.StockAlert, current *entity.StockRecord) error {
	s.Log.Warn().
		Str("alert_id", alert.ID).
		Str("type", alert.Type).
		Str("stock_key", current.Key().String()).
		Int("available", current.AvailableStock).
		Int("reorder_point", alert.ReorderPoint).
		Msg("stock bajo")
	return nil
}

// LowStockHandler procesa TaskStockLowAlert. Si el registro ya se repuso la alerta se descarta.
type LowStockHandler struct {
	stocks StockReader
	sink   AlertSink
	log    *logger.Logger
}

// NewLowStockHandler construye el handler.
func NewLowStockHandler(stocks StockReader, sink AlertSink, log *logger.Logger) *LowStockHandler {
	return &LowStockHandler{stocks: stocks, sink: sink, log: log}
}

// Handle implementa asynq.HandlerFunc.
func (h *LowStockHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var alert entity.StockAlert
	if err := json.Unmarshal(t.Payload(), &alert); err != nil {
		return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}
	current, err := h.stocks.GetStockRecord(ctx, alert.StockRecordID)
	if err != nil {
		return err
	}
	if current == nil || !current.IsLowStock {
		h.log.Debug().Str("alert_id", alert.ID).Msg("alerta obsoleta descartada")
		return nil
	}
	return h.sink.Deliver(ctx, alert, current)
}
