package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// StockLedgerUseCase recepciones, ajustes manuales, traslados y consultas de stock.
type StockLedgerUseCase struct {
	ledger *Ledger
}

// NewStockLedgerUseCase construye el caso de uso.
func NewStockLedgerUseCase(ledger *Ledger) *StockLedgerUseCase {
	return &StockLedgerUseCase{ledger: ledger}
}

// Receive aplica Receive por cada línea (entrada por compra) en una sola unidad de trabajo.
func (uc *StockLedgerUseCase) Receive(ctx context.Context, branchID, actorID string, in dto.ReceiveStockRequest) ([]*entity.StockRecord, error) {
	if strings.TrimSpace(branchID) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	keys := itemKeys(branchID, in.Items)
	ref := in.PurchaseOrderID
	reason := "recepción de mercancía"
	if in.SupplierID != "" {
		reason = "recepción de proveedor " + in.SupplierID
	}

	var out []*entity.StockRecord
	err := uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *UnitOfWork) error {
		out = make([]*entity.StockRecord, 0, len(in.Items))
		for i, item := range in.Items {
			rec, err := uow.Apply(ctx, keys[i], inventory.Command{
				Op: inventory.OpReceive, Quantity: item.Quantity, ActorID: actorID, Reason: reason, Reference: ref,
			})
			if err != nil {
				return fmt.Errorf("línea %d: %w", i+1, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Adjust aplica un ajuste manual (add, remove, damage) y persiste el documento StockAdjustment.
func (uc *StockLedgerUseCase) Adjust(ctx context.Context, branchID, actorID string, in dto.AdjustStockRequest) (*entity.StockAdjustment, error) {
	if strings.TrimSpace(branchID) == "" || len(in.Items) == 0 || !entity.IsValidStockAdjustmentType(in.AdjustmentType) {
		return nil, domain.ErrInvalidInput
	}
	op := adjustOperation(in.AdjustmentType)
	keys := itemKeys(branchID, in.Items)
	adjID := uuid.NewString()

	var out *entity.StockAdjustment
	err := uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *UnitOfWork) error {
		doc := &entity.StockAdjustment{
			ID:             adjID,
			BranchID:       branchID,
			AdjustmentType: in.AdjustmentType,
			Reason:         in.Reason,
			CreatedBy:      actorID,
			CreatedAt:      uow.Now(),
		}
		for i, item := range in.Items {
			rec, err := uow.Apply(ctx, keys[i], inventory.Command{
				Op: op, Quantity: item.Quantity, ActorID: actorID, Reason: in.Reason, Reference: adjID,
			})
			if err != nil {
				return fmt.Errorf("línea %d: %w", i+1, err)
			}
			doc.Items = append(doc.Items, entity.StockAdjustmentItem{
				StockKey: rec.Key(), Quantity: item.Quantity, StockRecordID: rec.ID, BalanceAfter: rec.CurrentStock,
			})
		}
		if err := uow.StockAdjustments.Create(ctx, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func adjustOperation(t string) inventory.Operation {
	switch t {
	case entity.StockAdjustmentRemove:
		return inventory.OpAdjustRemove
	case entity.StockAdjustmentDamage:
		return inventory.OpAdjustDamage
	default:
		return inventory.OpAdjustAdd
	}
}

// Transfer crea un traslado pendiente: mueve las unidades del disponible a en-tránsito en el
// origen y registra un StockAdjustment de tipo transfer.
func (uc *StockLedgerUseCase) Transfer(ctx context.Context, actorID string, in dto.TransferStockRequest) (*entity.StockTransfer, error) {
	if in.FromBranch == "" || in.ToBranch == "" || in.FromBranch == in.ToBranch || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	keys := itemKeys(in.FromBranch, in.Items)
	transferID := uuid.NewString()

	var out *entity.StockTransfer
	err := uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *UnitOfWork) error {
		t := &entity.StockTransfer{
			ID:         transferID,
			FromBranch: in.FromBranch,
			ToBranch:   in.ToBranch,
			Status:     entity.TransferStatusPending,
			Notes:      in.Notes,
			CreatedBy:  actorID,
			CreatedAt:  uow.Now(),
		}
		doc := &entity.StockAdjustment{
			ID:             uuid.NewString(),
			BranchID:       in.FromBranch,
			AdjustmentType: entity.StockAdjustmentTransfer,
			Reason:         "traslado a " + in.ToBranch,
			Reference:      transferID,
			CreatedBy:      actorID,
			CreatedAt:      uow.Now(),
		}
		for i, item := range in.Items {
			rec, err := uow.Apply(ctx, keys[i], inventory.Command{
				Op: inventory.OpTransferOut, Quantity: item.Quantity, ActorID: actorID, Reason: doc.Reason, Reference: transferID,
			})
			if err != nil {
				return fmt.Errorf("línea %d: %w", i+1, err)
			}
			t.Items = append(t.Items, entity.TransferItem{
				ProductID: item.ProductID, VariantID: item.VariantID, Location: rec.Location, Color: item.Color, Quantity: item.Quantity,
			})
			doc.Items = append(doc.Items, entity.StockAdjustmentItem{
				StockKey: rec.Key(), Quantity: item.Quantity, StockRecordID: rec.ID, BalanceAfter: rec.CurrentStock,
			})
		}
		if err := uow.Transfers.Create(ctx, t); err != nil {
			return err
		}
		if err := uow.StockAdjustments.Create(ctx, doc); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReceiveTransfer completa un traslado: liquida el en-tránsito del origen e ingresa al destino.
func (uc *StockLedgerUseCase) ReceiveTransfer(ctx context.Context, transferID, actorID string) (*entity.StockTransfer, error) {
	return uc.closeTransfer(ctx, transferID, actorID, true)
}

// CancelTransfer devuelve las unidades en tránsito al disponible del origen.
func (uc *StockLedgerUseCase) CancelTransfer(ctx context.Context, transferID, actorID string) (*entity.StockTransfer, error) {
	return uc.closeTransfer(ctx, transferID, actorID, false)
}

func (uc *StockLedgerUseCase) closeTransfer(ctx context.Context, transferID, actorID string, complete bool) (*entity.StockTransfer, error) {
	pending, err := uc.loadTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	keys := make([]entity.StockKey, 0, 2*len(pending.Items))
	for _, item := range pending.Items {
		keys = append(keys, item.SourceKey(pending.FromBranch))
		if complete {
			keys = append(keys, item.DestinationKey(pending.ToBranch))
		}
	}

	var out *entity.StockTransfer
	err = uc.ledger.Execute(ctx, keys, func(ctx context.Context, uow *UnitOfWork) error {
		t, err := uow.Transfers.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		if !t.IsPending() {
			return fmt.Errorf("%w: el traslado está %s", domain.ErrConflict, t.Status)
		}
		for _, item := range t.Items {
			if complete {
				if _, err := uow.Apply(ctx, item.SourceKey(t.FromBranch), inventory.Command{
					Op: inventory.OpTransferSettle, Quantity: item.Quantity, ActorID: actorID, Reference: t.ID,
				}); err != nil {
					return err
				}
				if _, err := uow.Apply(ctx, item.DestinationKey(t.ToBranch), inventory.Command{
					Op: inventory.OpTransferIn, Quantity: item.Quantity, ActorID: actorID, Reference: t.ID,
					Reason: "traslado desde " + t.FromBranch,
				}); err != nil {
					return err
				}
				continue
			}
			if _, err := uow.Apply(ctx, item.SourceKey(t.FromBranch), inventory.Command{
				Op: inventory.OpTransferCancel, Quantity: item.Quantity, ActorID: actorID, Reference: t.ID,
			}); err != nil {
				return err
			}
		}
		now := uow.Now()
		t.CompletedAt = &now
		t.ReceivedBy = actorID
		t.Status = entity.TransferStatusCancelled
		if complete {
			t.Status = entity.TransferStatusCompleted
		}
		if err := uow.Transfers.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *StockLedgerUseCase) loadTransfer(ctx context.Context, id string) (*entity.StockTransfer, error) {
	var t *entity.StockTransfer
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		t, err = repos.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// GetStockRecord consulta un registro por id; (nil, nil) si no existe.
func (uc *StockLedgerUseCase) GetStockRecord(ctx context.Context, id string) (*entity.StockRecord, error) {
	var rec *entity.StockRecord
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		rec, err = repos.Stocks.GetByID(ctx, id)
		return err
	})
	return rec, err
}

// GetTransfer consulta un traslado.
func (uc *StockLedgerUseCase) GetTransfer(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return uc.loadTransfer(ctx, id)
}

// ListBranch registros de stock de una sucursal.
func (uc *StockLedgerUseCase) ListBranch(ctx context.Context, branchID string, lowOnly bool, page dto.PageRequest) (*dto.StockListResponse, error) {
	page.DefaultPage()
	var items []*entity.StockRecord
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		items, err = repos.Stocks.ListByBranch(ctx, branchID, lowOnly, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*entity.StockRecord{}
	}
	return &dto.StockListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// Alerts registros en stock bajo (disponible <= punto de reorden) y alertas abiertas.
func (uc *StockLedgerUseCase) Alerts(ctx context.Context, branchID string) (*dto.StockAlertsResponse, error) {
	out := &dto.StockAlertsResponse{}
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		low, err := repos.Stocks.ListByBranch(ctx, branchID, true, 0, 0)
		if err != nil {
			return err
		}
		alerts, err := repos.Alerts.ListOpenByBranch(ctx, branchID)
		if err != nil {
			return err
		}
		out.LowStock, out.Alerts = low, alerts
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.LowStock == nil {
		out.LowStock = []*entity.StockRecord{}
	}
	if out.Alerts == nil {
		out.Alerts = []*entity.StockAlert{}
	}
	return out, nil
}

// History movimientos de un registro, más recientes primero.
func (uc *StockLedgerUseCase) History(ctx context.Context, recordID string, page dto.PageRequest) (*dto.StockHistoryResponse, error) {
	page.DefaultPage()
	var movs []*entity.StockMovement
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		rec, err := repos.Stocks.GetByID(ctx, recordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		movs, err = repos.Movements.ListByStockRecord(ctx, recordID, page.Limit, page.Offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	if movs == nil {
		movs = []*entity.StockMovement{}
	}
	return &dto.StockHistoryResponse{
		StockRecordID: recordID,
		Movements:     movs,
		Page:          dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// SetReorderPoint fija el punto de reorden del registro.
func (uc *StockLedgerUseCase) SetReorderPoint(ctx context.Context, recordID string, point int) (*entity.StockRecord, error) {
	var key entity.StockKey
	err := uc.ledger.Read(ctx, func(ctx context.Context, repos repository.Repos) error {
		rec, err := repos.Stocks.GetByID(ctx, recordID)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		key = rec.Key()
		return nil
	})
	if err != nil {
		return nil, err
	}
	var out *entity.StockRecord
	err = uc.ledger.Execute(ctx, []entity.StockKey{key}, func(ctx context.Context, uow *UnitOfWork) error {
		rec, err := uow.SetReorderPoint(ctx, recordID, point)
		out = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func itemKeys(branchID string, items []dto.StockItemRequest) []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(items))
	for _, it := range items {
		keys = append(keys, entity.StockKey{
			ProductID: it.ProductID, VariantID: it.VariantID, BranchID: branchID, Location: it.Location, Color: it.Color,
		}.Normalize())
	}
	return keys
}
