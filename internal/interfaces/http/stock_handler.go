package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// StockHandler maneja recepciones, ajustes, traslados, alertas e historial de stock (protegido).
type StockHandler struct {
	uc            *inventory.StockLedgerUseCase
	replenishment *inventory.ReplenishmentUseCase
	log           *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *inventory.StockLedgerUseCase, replenishment *inventory.ReplenishmentUseCase, log *logger.Logger) *StockHandler {
	return &StockHandler{uc: uc, replenishment: replenishment, log: log}
}

// branchParam lee :branch y verifica que el operador pueda operar sobre ella.
func (h *StockHandler) branchParam(c *fiber.Ctx) (string, error) {
	branch := c.Params("branch")
	if branch == "" {
		return "", fmt.Errorf("%w: sucursal requerida", domain.ErrInvalidInput)
	}
	if !canOperateBranch(c, branch) {
		return "", fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, branch)
	}
	return branch, nil
}

// Receive godoc
// @Summary      Recibir mercancía
// @Tags         stocks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        branch  path      string                   true  "Sucursal"
// @Param        body    body      dto.ReceiveStockRequest  true  "Ítems recibidos"
// @Success      201     {object}  dto.SuccessResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /api/stocks/{branch}/receive [post]
func (h *StockHandler) Receive(c *fiber.Ctx) error {
	branch, err := h.branchParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.ReceiveStockRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	records, err := h.uc.Receive(c.Context(), branch, GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(dto.ReceiveStockResponse{Records: records}))
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Tags         stocks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        branch  path      string                  true  "Sucursal"
// @Param        body    body      dto.AdjustStockRequest  true  "Ajuste"
// @Success      201     {object}  dto.SuccessResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      422     {object}  dto.ErrorResponse
// @Router       /api/stocks/{branch}/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	branch, err := h.branchParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.AdjustStockRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	adj, err := h.uc.Adjust(c.Context(), branch, GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(adj))
}

// List godoc
// @Summary      Listar stock de la sucursal
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        branch   path      string  true   "Sucursal"
// @Param        lowOnly  query     bool    false  "Solo stock bajo"
// @Param        limit    query     int     false  "Límite"
// @Param        offset   query     int     false  "Desplazamiento"
// @Success      200      {object}  dto.SuccessResponse
// @Failure      403      {object}  dto.ErrorResponse
// @Router       /api/stocks/{branch} [get]
func (h *StockHandler) List(c *fiber.Ctx) error {
	branch, err := h.branchParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	out, err := h.uc.ListBranch(c.Context(), branch, c.QueryBool("lowOnly", false), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Alerts godoc
// @Summary      Alertas de stock bajo
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        branch  path      string  true  "Sucursal"
// @Success      200     {object}  dto.SuccessResponse
// @Router       /api/stocks/{branch}/alerts [get]
func (h *StockHandler) Alerts(c *fiber.Ctx) error {
	branch, err := h.branchParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.Alerts(c.Context(), branch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// Replenishment godoc
// @Summary      Lista de reposición sugerida
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        branch  path      string  true  "Sucursal"
// @Success      200     {object}  dto.SuccessResponse
// @Router       /api/stocks/{branch}/replenishment [get]
func (h *StockHandler) Replenishment(c *fiber.Ctx) error {
	branch, err := h.branchParam(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.replenishment.GenerateReplenishmentList(c.Context(), branch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	}))
}

// Transfer godoc
// @Summary      Iniciar traslado entre sucursales
// @Tags         stocks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TransferStockRequest  true  "Traslado"
// @Success      201   {object}  dto.SuccessResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stocks/transfer [post]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferStockRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, in.FromBranch) {
		return writeError(c, h.log, fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, in.FromBranch))
	}
	t, err := h.uc.Transfer(c.Context(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(t))
}

// GetTransfer godoc
// @Summary      Obtener traslado
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del traslado"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocks/transfer/{id} [get]
func (h *StockHandler) GetTransfer(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, t.FromBranch) && !canOperateBranch(c, t.ToBranch) {
		return writeError(c, h.log, fmt.Errorf("%w: traslado %s", domain.ErrForbidden, t.ID))
	}
	return c.JSON(dto.OK(t))
}

// ReceiveTransfer godoc
// @Summary      Recibir traslado en destino
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del traslado"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocks/transfer/{id}/receive [post]
func (h *StockHandler) ReceiveTransfer(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, t.ToBranch) {
		return writeError(c, h.log, fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, t.ToBranch))
	}
	t, err = h.uc.ReceiveTransfer(c.Context(), t.ID, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(t))
}

// CancelTransfer godoc
// @Summary      Cancelar traslado en tránsito
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del traslado"
// @Success      200  {object}  dto.SuccessResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocks/transfer/{id}/cancel [post]
func (h *StockHandler) CancelTransfer(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !canOperateBranch(c, t.FromBranch) {
		return writeError(c, h.log, fmt.Errorf("%w: sucursal %s", domain.ErrForbidden, t.FromBranch))
	}
	t, err = h.uc.CancelTransfer(c.Context(), t.ID, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(t))
}

// History godoc
// @Summary      Historial de movimientos de un registro
// @Tags         stocks
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true   "ID del registro"
// @Param        limit   query     int     false  "Límite"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  dto.SuccessResponse
// @Router       /api/stocks/records/{id}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	out, err := h.uc.History(c.Context(), c.Params("id"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(out))
}

// SetReorderPoint godoc
// @Summary      Definir punto de reorden
// @Tags         stocks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "ID del registro"
// @Param        body  body      dto.ReorderPointRequest  true  "Punto de reorden"
// @Success      200   {object}  dto.SuccessResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stocks/records/{id}/reorder-point [put]
func (h *StockHandler) SetReorderPoint(c *fiber.Ctx) error {
	var in dto.ReorderPointRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, h.log, err)
	}
	rec, err := h.uc.SetReorderPoint(c.Context(), c.Params("id"), in.ReorderPoint)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OK(rec))
}
