package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Worker de alertas de stock bajo: consume la cola "alerts" y entrega cada alerta que siga vigente.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-worker"})

	if cfg.Redis.Addr == "" {
		log.Fatal().Msg("REDIS_ADDR requerido para el worker")
	}
	if cfg.Store.Driver != config.StoreDriverPostgres {
		log.Fatal().Str("store", cfg.Store.Driver).Msg("el worker necesita el almacenamiento compartido postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	rdb := infraredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer rdb.Close()
	locker := infraredis.NewKeyLocker(rdb, cfg.Stock.LockTTL(), cfg.Stock.LockTimeout(), log.Named("locker"))

	ledger := inventory.NewLedger(postgres.NewTxRunner(pool), locker, nil, nil, log.Named("ledger"), inventory.LedgerConfig{
		DefaultReorderPoint: cfg.Stock.DefaultReorderPoint,
		ConflictRetries:     cfg.Stock.ConflictRetries,
	})
	stockUC := inventory.NewStockLedgerUseCase(ledger)

	handler := jobs.NewLowStockHandler(stockUC, jobs.LogSink{Log: log.Named("alerts")}, log.Named("jobs"))
	worker := jobs.NewWorker(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
		cfg.Jobs.Concurrency, handler, log,
	)
	if err := worker.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker")
	}
}
