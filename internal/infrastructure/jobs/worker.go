package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Worker servidor asynq con los handlers del libro de stock.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker construye el worker.
func NewWorker(redis asynq.RedisClientOpt, concurrency int, alerts *LowStockHandler, log *logger.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueAlerts: 1},
		Logger:      asynqLogger{log: log},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskStockLowAlert, alerts.Handle)
	return &Worker{server: srv, mux: mux, log: log}
}

// Run procesa tareas hasta que ctx termine y luego espera a las tareas en curso.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("iniciar worker: %w", err)
	}
	w.log.Info().Str("queue", QueueAlerts).Msg("worker iniciado")
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info().Msg("worker detenido")
	return nil
}

// asynqLogger adapta zerolog a asynq.Logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
