package dto

import "github.com/shopspring/decimal"

// SaleLineRequest línea del carrito.
type SaleLineRequest struct {
	LineID          string          `json:"lineId"`
	ProductID       string          `json:"productId" validate:"required"`
	VariantID       string          `json:"variantId"`
	Name            string          `json:"name"`
	Size            string          `json:"size"`
	Color           string          `json:"color"`
	Location        string          `json:"location"`
	Quantity        int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// SalePaymentRequest pago de la venta.
type SalePaymentRequest struct {
	Method     string          `json:"method" validate:"required"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Reference  string          `json:"reference"`
}

// LoyaltyRequest puntos de fidelización.
type LoyaltyRequest struct {
	PointsEarned   int `json:"pointsEarned" validate:"min=0"`
	PointsRedeemed int `json:"pointsRedeemed" validate:"min=0"`
}

// CreateSaleRequest body para POST /api/sales. Status vacío equivale a completed.
type CreateSaleRequest struct {
	TransactionNumber string              `json:"transactionNumber" validate:"max=64"`
	Status            string              `json:"status" validate:"omitempty,oneof=active held completed"`
	BranchID          string              `json:"branchId"`
	CartItems         []SaleLineRequest   `json:"cartItems" validate:"required,min=1,dive"`
	Payment           *SalePaymentRequest `json:"payment"`
	Loyalty           LoyaltyRequest      `json:"loyalty"`
}

// CompleteSaleRequest body para POST /api/sales/:txn/complete.
type CompleteSaleRequest struct {
	Payment SalePaymentRequest `json:"payment"`
}
