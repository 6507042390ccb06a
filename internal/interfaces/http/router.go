package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/returns"
	"github.com/jhoicas/stock-ledger/internal/application/sales"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StockUC         *inventory.StockLedgerUseCase
	ReplenishmentUC *inventory.ReplenishmentUseCase
	SaleUC          *sales.SaleUseCase
	ReturnsUC       *returns.ReturnExchangeUseCase
	JWTSecret       string
	Log             *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	staff := RequireRole(jwt.RoleAdmin, jwt.RoleManager)
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleManager, jwt.RoleCashier)

	// Stock. Las rutas de traslados y registros van antes de /:branch.
	stockHandler := NewStockHandler(deps.StockUC, deps.ReplenishmentUC, deps.Log)
	stocks := api.Group("/stocks")
	stocks.Post("/transfer", staff, stockHandler.Transfer)
	stocks.Get("/transfer/:id", anyRole, stockHandler.GetTransfer)
	stocks.Post("/transfer/:id/receive", staff, stockHandler.ReceiveTransfer)
	stocks.Post("/transfer/:id/cancel", staff, stockHandler.CancelTransfer)
	stocks.Get("/records/:id/history", anyRole, stockHandler.History)
	stocks.Put("/records/:id/reorder-point", staff, stockHandler.SetReorderPoint)
	stocks.Post("/:branch/receive", staff, stockHandler.Receive)
	stocks.Post("/:branch/adjust", staff, stockHandler.Adjust)
	stocks.Get("/:branch/alerts", anyRole, stockHandler.Alerts)
	stocks.Get("/:branch/replenishment", staff, stockHandler.Replenishment)
	stocks.Get("/:branch", anyRole, stockHandler.List)

	// Ventas
	saleHandler := NewSaleHandler(deps.SaleUC, deps.Log)
	salesGroup := api.Group("/sales", anyRole)
	salesGroup.Post("/", saleHandler.Create)
	salesGroup.Get("/:txn", saleHandler.Get)
	salesGroup.Post("/:txn/hold", saleHandler.Hold)
	salesGroup.Post("/:txn/complete", saleHandler.Complete)
	salesGroup.Post("/:txn/void", saleHandler.Void)

	// Devoluciones y cambios
	retHandler := NewReturnExchangeHandler(deps.ReturnsUC, deps.Log)
	ret := api.Group("/returnExchange")
	ret.Post("/create", anyRole, retHandler.Create)
	ret.Get("/detail/:saleId", anyRole, retHandler.Detail)
	ret.Get("/:txn", anyRole, retHandler.Get)
	ret.Post("/:txn/void", staff, retHandler.Void)
}
