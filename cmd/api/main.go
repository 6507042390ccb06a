package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/returns"
	"github.com/jhoicas/stock-ledger/internal/application/sales"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/broker"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/jobs"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// @title                       Stock Ledger API
// @version                     1.0
// @description                 Libro de stock por sucursal, ventas y reconciliación de devoluciones y cambios.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Token JWT con el prefijo Bearer.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Persistencia
	var txRunner inventory.TxRunner
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		txRunner = memory.NewTxRunner(memory.NewStore(log.Named("memory")))
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner = postgres.NewTxRunner(pool)
	}

	// Bloqueo por llave: Redis si está configurado (varias instancias), local si no.
	var locker inventory.KeyLocker = inventory.NewLocalKeyLocker(cfg.Stock.LockTimeout())
	if cfg.Redis.Addr != "" {
		rdb := infraredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		locker = infraredis.NewKeyLocker(rdb, cfg.Stock.LockTTL(), cfg.Stock.LockTimeout(), log.Named("locker"))
	}

	// Efectos posteriores al commit
	var notifier inventory.AlertNotifier
	if cfg.Jobs.Enabled {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		notifier = jobs.NewNotifier(client)
	}
	var publisher inventory.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub := broker.NewPublisher(broker.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer func() {
			if err := pub.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador kafka")
			}
		}()
		publisher = pub
	}

	ledger := inventory.NewLedger(txRunner, locker, notifier, publisher, log.Named("ledger"), inventory.LedgerConfig{
		DefaultReorderPoint: cfg.Stock.DefaultReorderPoint,
		ConflictRetries:     cfg.Stock.ConflictRetries,
	})

	stockUC := inventory.NewStockLedgerUseCase(ledger)
	replenishmentUC := inventory.NewReplenishmentUseCase(ledger)
	saleUC := sales.NewSaleUseCase(ledger)
	returnsUC := returns.NewReturnExchangeUseCase(ledger, returns.Config{StrictAllocation: cfg.Returns.StrictAllocation})

	httpLog := log.Named("http")
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(httpLog),
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(httpLog))

	// Swagger UI: http://localhost:<port>/docs (regenerar con swag init -g cmd/api/main.go)
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		StockUC:         stockUC,
		ReplenishmentUC: replenishmentUC,
		SaleUC:          saleUC,
		ReturnsUC:       returnsUC,
		JWTSecret:       cfg.JWT.Secret,
		Log:             httpLog,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
