package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta.
const (
	SaleStatusActive    = "active"
	SaleStatusHeld      = "held"
	SaleStatusVoid      = "void"
	SaleStatusCompleted = "completed"
)

var hundred = decimal.NewFromInt(100)

// SaleLineItem línea del carrito; cada línea se identifica por separado aunque repita producto.
type SaleLineItem struct {
	LineID          string          `json:"lineId"`
	ProductID       string          `json:"productId"`
	VariantID       string          `json:"variantId"`
	Name            string          `json:"name"`
	Size            string          `json:"size,omitempty"`
	Color           string          `json:"color,omitempty"`
	Location        string          `json:"location,omitempty"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// NetUnitPrice precio unitario luego del descuento de línea.
func (l SaleLineItem) NetUnitPrice() decimal.Decimal {
	if l.DiscountPercent.IsZero() {
		return l.UnitPrice
	}
	return l.UnitPrice.Mul(hundred.Sub(l.DiscountPercent)).Div(hundred)
}

// GrossTotal cantidad * precio unitario, sin descuento.
func (l SaleLineItem) GrossTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NetTotal total de la línea luego del descuento.
func (l SaleLineItem) NetTotal() decimal.Decimal {
	return l.NetUnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// StockKey llave de stock que afecta la línea en la sucursal indicada.
func (l SaleLineItem) StockKey(branchID string) StockKey {
	return StockKey{
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		BranchID:  branchID,
		Location:  l.Location,
		Color:     l.Color,
	}.Normalize()
}

// SaleTotals totales de la venta (sin motor de impuestos: GrandTotal = Subtotal).
type SaleTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

// SalePayment pago adjuntado al completar la venta.
type SalePayment struct {
	Method     string          `json:"method"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Change     decimal.Decimal `json:"change"`
	Reference  string          `json:"reference,omitempty"`
}

// SaleLoyalty puntos de fidelización ganados y redimidos.
type SaleLoyalty struct {
	PointsEarned   int `json:"pointsEarned"`
	PointsRedeemed int `json:"pointsRedeemed"`
}

// Sale transacción de caja. CartItems y Totals son inmutables una vez completada;
// solo LinkedAdjustmentIDs crece.
type Sale struct {
	ID                  string         `json:"id"`
	TransactionNumber   string         `json:"transactionNumber"`
	Status              string         `json:"status"`
	BranchID            string         `json:"branchId"`
	CreatedBy           string         `json:"createdBy"`
	CartItems           []SaleLineItem `json:"cartItems"`
	Totals              SaleTotals     `json:"totals"`
	Payment             *SalePayment   `json:"payment,omitempty"`
	Loyalty             SaleLoyalty    `json:"loyalty"`
	LinkedAdjustmentIDs []string       `json:"linkedAdjustmentIds"`
	CreatedAt           time.Time      `json:"createdAt"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// ComputeSaleTotals calcula subtotal neto, descuento total y gran total de las líneas.
func ComputeSaleTotals(lines []SaleLineItem) SaleTotals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, l := range lines {
		net := l.NetTotal()
		subtotal = subtotal.Add(net)
		discount = discount.Add(l.GrossTotal().Sub(net))
	}
	return SaleTotals{Subtotal: subtotal, TotalDiscount: discount, GrandTotal: subtotal}
}

// IsTerminal indica si la venta ya no admite transiciones.
func (s *Sale) IsTerminal() bool {
	return s.Status == SaleStatusCompleted || s.Status == SaleStatusVoid
}

// CanTransition valida el ciclo de vida:
// active → held | completed | void; held → completed | void.
func (s *Sale) CanTransition(to string) bool {
	switch s.Status {
	case SaleStatusActive:
		return to == SaleStatusHeld || to == SaleStatusCompleted || to == SaleStatusVoid
	case SaleStatusHeld:
		return to == SaleStatusCompleted || to == SaleStatusVoid
	}
	return false
}

// HasAdjustment indica si el ajuste ya está vinculado.
func (s *Sale) HasAdjustment(id string) bool {
	for _, linked := range s.LinkedAdjustmentIDs {
		if linked == id {
			return true
		}
	}
	return false
}
