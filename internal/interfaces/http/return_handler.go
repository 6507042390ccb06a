package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/returns"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ReturnExchangeHandler devoluciones, cambios y detalle de reconciliación de ventas (protegido).
type ReturnExchangeHandler struct {
	uc  *returns.ReturnExchangeUseCase
	log *logger.Logger
}

// NewReturnExchangeHandler construye el handler.
func NewReturnExchangeHandler(uc *returns.ReturnExchangeUseCase, log *logger.Logger) *ReturnExchangeHandler {
	return &ReturnExchangeHandler{uc: uc, log: log}
}

func forbiddenBranch(branch string) error {
	return fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, branch)
}

// Create godoc
// @Summary      Registrar devolución o cambio
// @Description  Con originalTransactionId la sucursal es la de la venta; un cambio sin venta usa branchId o la del token.
// @Tags         returnExchange
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateAdjustmentRequest  true  "Ajuste"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/returnExchange/create [post]
func (h *ReturnExchangeHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateAdjustmentRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	branch := in.BranchID
	if branch == "" {
		branch = GetBranchID(c)
	}
	if in.OriginalTransactionID != "" {
		saleBranch, err := h.uc.SaleBranch(c.Context(), in.OriginalTransactionID)
		if err != nil {
			return writeError(c, h.log, err)
		}
		branch = saleBranch
	}
	if !canOperateBranch(c, branch) {
		return writeError(c, h.log, forbiddenBranch(branch))
	}
	out, err := h.uc.Create(c.Context(), GetUserID(c), GetBranchID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(out))
}

// Detail godoc
// @Summary      Detalle de venta con devoluciones y cambios
// @Tags         returnExchange
// @Security     Bearer
// @Produce      json
// @Param        saleId  path      string  true  "ID o número de transacción de la venta"
// @Success      200     {object}  dto.SuccessResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/returnExchange/detail/{saleId} [get]
func (h *ReturnExchangeHandler) Detail(c *fiber.Ctx) error {
	out, err := h.uc.Detail(c.Context(), c.Params("saleId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, out.Sale.BranchID) {
		return writeError(c, h.log, forbiddenBranch(out.Sale.BranchID))
	}
	return c.JSON(dto.OK(out))
}

// Get godoc
// @Summary      Obtener devolución o cambio
// @Tags         returnExchange
// @Security     Bearer
// @Produce      json
// @Param        txn  path      string  true  "Número de transacción del ajuste"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/returnExchange/{txn} [get]
func (h *ReturnExchangeHandler) Get(c *fiber.Ctx) error {
	adj, err := h.uc.Get(c.Context(), c.Params("txn"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, adj.BranchID) {
		return writeError(c, h.log, forbiddenBranch(adj.BranchID))
	}
	return c.JSON(dto.OK(adj))
}

// Void godoc
// @Summary      Anular devolución o cambio
// @Description  Revierte los movimientos de stock del ajuste.
// @Tags         returnExchange
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        txn   path      string                     true   "Número de transacción del ajuste"
// @Param        body  body      dto.VoidAdjustmentRequest  false  "Motivo"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returnExchange/{txn}/void [post]
func (h *ReturnExchangeHandler) Void(c *fiber.Ctx) error {
	var in dto.VoidAdjustmentRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return writeError(c, h.log, err)
		}
	}
	adj, err := h.uc.Get(c.Context(), c.Params("txn"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, adj.BranchID) {
		return writeError(c, h.log, forbiddenBranch(adj.BranchID))
	}
	adj, err = h.uc.Void(c.Context(), c.Params("txn"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(adj))
}
