package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de registro de ajuste de venta.
const (
	AdjustmentTypeReturn   = "return"
	AdjustmentTypeExchange = "exchange"
)

// Estados de un registro de ajuste.
const (
	AdjustmentStatusCompleted = "completed"
	AdjustmentStatusVoided    = "voided"
)

// Clases de línea de un ajuste.
const (
	LineKindReturned = "returned" // mercancía que vuelve a la tienda
	LineKindIssued   = "issued"   // mercancía nueva entregada en un cambio
)

// Modos de liquidación de un cambio.
const (
	ExchangeModeAdditionalPayment = "additional_payment"
	ExchangeModeRefund            = "refund"
	ExchangeModeEven              = "even"
)

// AdjustmentLine línea etiquetada de una devolución o cambio. Quantity siempre es positiva;
// Kind indica la dirección.
type AdjustmentLine struct {
	Kind              string          `json:"kind"`
	ProductID         string          `json:"productId"`
	VariantID         string          `json:"variantId"`
	Name              string          `json:"name,omitempty"`
	Size              string          `json:"size,omitempty"`
	Color             string          `json:"color,omitempty"`
	Location          string          `json:"location,omitempty"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice decimal.Decimal `json:"originalUnitPrice"`
	ReturnReason      string          `json:"returnReason,omitempty"`
}

// Value cantidad * precio unitario.
func (l AdjustmentLine) Value() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// StockKey llave de stock afectada en la sucursal indicada.
func (l AdjustmentLine) StockKey(branchID string) StockKey {
	return StockKey{
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		BranchID:  branchID,
		Location:  l.Location,
		Color:     l.Color,
	}.Normalize()
}

// AdjustmentTotals totales del ajuste. Para devoluciones GrandTotal = ReturnedValue;
// para cambios GrandTotal = IssuedValue.
type AdjustmentTotals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	ReturnedValue   decimal.Decimal `json:"returnedValue"`
	IssuedValue     decimal.Decimal `json:"issuedValue"`
	PriceDifference decimal.Decimal `json:"priceDifference"`
}

// AdditionalPayment pago suplementario cobrado en un cambio.
type AdditionalPayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

// AdjustmentPayment bloque de pago/reembolso del ajuste.
type AdjustmentPayment struct {
	Method            string             `json:"method"`
	RefundAmount      decimal.Decimal    `json:"refundAmount"`
	AdditionalPayment *AdditionalPayment `json:"additionalPayment,omitempty"`
}

// AdjustmentRecord devolución o cambio que referencia una venta completada.
// Items y Totals son inmutables; Status puede pasar de completed a voided.
type AdjustmentRecord struct {
	ID                string            `json:"id"`
	TransactionNumber string            `json:"transactionNumber"`
	Type              string            `json:"type"`
	OriginalSaleID    *string           `json:"originalSaleId"` // nil en cambios sin venta previa
	BranchID          string            `json:"branchId"`
	Items             []AdjustmentLine  `json:"items"`
	Totals            AdjustmentTotals  `json:"totals"`
	Payment           AdjustmentPayment `json:"payment"`
	Mode              string            `json:"mode,omitempty"`
	Status            string            `json:"status"`
	Reason            string            `json:"reason,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedBy         string            `json:"createdBy"`
	CreatedAt         time.Time         `json:"createdAt"`
	VoidedAt          *time.Time        `json:"voidedAt,omitempty"`
	VoidedBy          string            `json:"voidedBy,omitempty"`
}

// ReturnedLines líneas que vuelven a la tienda.
func (a *AdjustmentRecord) ReturnedLines() []AdjustmentLine {
	return a.linesOf(LineKindReturned)
}

// IssuedLines líneas entregadas en un cambio.
func (a *AdjustmentRecord) IssuedLines() []AdjustmentLine {
	return a.linesOf(LineKindIssued)
}

func (a *AdjustmentRecord) linesOf(kind string) []AdjustmentLine {
	out := make([]AdjustmentLine, 0, len(a.Items))
	for _, l := range a.Items {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// SaleID id de la venta original o cadena vacía.
func (a *AdjustmentRecord) SaleID() string {
	if a.OriginalSaleID == nil {
		return ""
	}
	return *a.OriginalSaleID
}

// IsVoided indica si el ajuste fue anulado.
func (a *AdjustmentRecord) IsVoided() bool {
	return a.Status == AdjustmentStatusVoided
}
