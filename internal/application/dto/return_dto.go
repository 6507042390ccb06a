package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/reconciliation"
)

// AdjustmentItemRequest línea de una devolución o cambio. Kind vacío en un cambio usa la
// convención de signo: cantidad negativa = devuelto, positiva = entregado.
type AdjustmentItemRequest struct {
	Kind              string          `json:"kind" validate:"omitempty,oneof=returned issued"`
	ProductID         string          `json:"productId" validate:"required"`
	VariantID         string          `json:"variantId"`
	Name              string          `json:"name"`
	Size              string          `json:"size"`
	Color             string          `json:"color"`
	Location          string          `json:"location"`
	Quantity          int             `json:"quantity" validate:"ne=0"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	OriginalUnitPrice decimal.Decimal `json:"originalUnitPrice"`
	ReturnReason      string          `json:"returnReason"`
}

// AdditionalPaymentRequest pago suplementario en un cambio.
type AdditionalPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

// AdjustmentPaymentRequest bloque de pago/reembolso.
type AdjustmentPaymentRequest struct {
	Method            string                    `json:"method"`
	RefundAmount      decimal.Decimal           `json:"refundAmount"`
	AdditionalPayment *AdditionalPaymentRequest `json:"additionalPayment"`
}

// CreateAdjustmentRequest body para POST /api/returnExchange/create. Los totales enviados
// por el cliente se ignoran; se recalculan a partir de la asignación.
type CreateAdjustmentRequest struct {
	Type                  string                   `json:"type" validate:"required,oneof=return exchange"`
	TransactionNumber     string                   `json:"transactionNumber" validate:"max=64"`
	OriginalTransactionID string                   `json:"originalTransactionId"`
	BranchID              string                   `json:"branchId"`
	Items                 []AdjustmentItemRequest  `json:"items" validate:"dive"`
	NewItems              []AdjustmentItemRequest  `json:"newItems" validate:"dive"`
	Totals                map[string]any           `json:"totals"`
	Payment               AdjustmentPaymentRequest `json:"payment"`
	Reason                string                   `json:"reason" validate:"max=500"`
	Notes                 string                   `json:"notes" validate:"max=1000"`
}

// VoidAdjustmentRequest body para POST /api/returnExchange/:txn/void.
type VoidAdjustmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AdjustmentResponse ajuste creado y advertencias de asignación best-effort.
type AdjustmentResponse struct {
	Adjustment *entity.AdjustmentRecord `json:"adjustment"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// SaleDetailResponse venta original más su reconciliación.
type SaleDetailResponse struct {
	Sale *entity.Sale `json:"sale"`
	reconciliation.SaleReconciliation
}
