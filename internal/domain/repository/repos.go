package repository

// Repos agrupa los repositorios atados a una misma unidad de trabajo (transacción).
type Repos struct {
	Stocks           StockRepository
	Movements        StockMovementRepository
	Sales            SaleRepository
	Adjustments      AdjustmentRepository
	StockAdjustments StockAdjustmentRepository
	Transfers        TransferRepository
	Alerts           AlertRepository
}
