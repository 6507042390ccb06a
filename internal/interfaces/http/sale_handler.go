package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/sales"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// SaleHandler maneja el ciclo de vida de las ventas de caja (protegido).
type SaleHandler struct {
	uc  *sales.SaleUseCase
	log *logger.Logger
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *sales.SaleUseCase, log *logger.Logger) *SaleHandler {
	return &SaleHandler{uc: uc, log: log}
}

// ownSale carga la venta del path y verifica que el token pueda operar su sucursal.
func (h *SaleHandler) ownSale(c *fiber.Ctx) (*entity.Sale, error) {
	sale, err := h.uc.Get(c.Context(), c.Params("txn"))
	if err != nil {
		return nil, err
	}
	if !canOperateBranch(c, sale.BranchID) {
		return nil, fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, sale.BranchID)
	}
	return sale, nil
}

// Create godoc
// @Summary      Registrar venta
// @Description  La sucursal sale del body o, si falta, del token. Si la venta se crea completada descuenta stock.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateSaleRequest  true  "Venta"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	branch := in.BranchID
	if branch == "" {
		branch = GetBranchID(c)
	}
	if !canOperateBranch(c, branch) {
		return writeError(c, h.log, fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, branch))
	}
	sale, err := h.uc.Create(c.Context(), GetUserID(c), branch, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(sale))
}

// Get godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        txn  path      string  true  "ID o número de transacción"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{txn} [get]
func (h *SaleHandler) Get(c *fiber.Ctx) error {
	sale, err := h.ownSale(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(sale))
}

// Hold godoc
// @Summary      Poner venta en espera
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        txn  path      string  true  "ID o número de transacción"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales/{txn}/hold [post]
func (h *SaleHandler) Hold(c *fiber.Ctx) error {
	if _, err := h.ownSale(c); err != nil {
		return writeError(c, h.log, err)
	}
	sale, err := h.uc.Hold(c.Context(), c.Params("txn"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(sale))
}

// Void godoc
// @Summary      Anular venta
// @Description  Una venta completada con devoluciones o cambios vigentes no se puede anular.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        txn  path      string  true  "ID o número de transacción"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales/{txn}/void [post]
func (h *SaleHandler) Void(c *fiber.Ctx) error {
	if _, err := h.ownSale(c); err != nil {
		return writeError(c, h.log, err)
	}
	sale, err := h.uc.Void(c.Context(), c.Params("txn"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(sale))
}

// Complete godoc
// @Summary      Completar venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        txn   path      string                   true  "ID o número de transacción"
// @Param        body  body      dto.CompleteSaleRequest  true  "Pago"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{txn}/complete [post]
func (h *SaleHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteSaleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	if _, err := h.ownSale(c); err != nil {
		return writeError(c, h.log, err)
	}
	sale, err := h.uc.Complete(c.Context(), c.Params("txn"), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(sale))
}
