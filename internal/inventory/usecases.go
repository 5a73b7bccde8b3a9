package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"

	"github.com/frank-furt/pos-backend/internal/activitylog"
	"github.com/frank-furt/pos-backend/internal/apperr"
)

// UseCase contains the business logic of the stock ledger. Order-driven
// exits run inside the order workflow's transaction; this use case covers
// manual restocks, ledger reads and record management.
type UseCase struct {
	repository Repository
	activity   activitylog.Writer
}

func NewUseCase(repository Repository, activity activitylog.Writer) *UseCase {
	return &UseCase{repository: repository, activity: activity}
}

// RecordMovement applies a manual entry or exit: the stock record is locked,
// the quantity adjusted (an exit can never take it below zero), and the
// movement appended, all in one transaction.
func (uc *UseCase) RecordMovement(ctx context.Context, inventoryID int, req MovementRequest) (*StockMovement, error) {
	if inventoryID <= 0 {
		return nil, apperr.Validation("ID de inventario inválido")
	}
	if !ValidMovementType(req.Type) {
		return nil, apperr.Validation(`Tipo de movimiento inválido. Debe ser "entrada" o "salida"`)
	}
	if req.Quantity <= 0 {
		return nil, apperr.Validation("La cantidad debe ser mayor a 0")
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al iniciar la transacción", err)
	}
	defer tx.Rollback()

	rec, err := uc.repository.GetRecordForUpdate(ctx, tx, inventoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Producto de inventario no encontrado")
	}
	if err != nil {
		return nil, apperr.Storage("Error al consultar el inventario", err)
	}

	switch req.Type {
	case MovementEntry:
		if err := uc.repository.IncrementStock(ctx, tx, inventoryID, req.Quantity); err != nil {
			return nil, apperr.Storage("Error al actualizar el inventario", err)
		}
	case MovementExit:
		affected, err := uc.repository.DecrementStock(ctx, tx, inventoryID, req.Quantity)
		if err != nil {
			return nil, apperr.Storage("Error al actualizar el inventario", err)
		}
		if affected == 0 {
			return nil, apperr.Conflict(fmt.Sprintf("Stock insuficiente para el producto %s", rec.ProductName))
		}
	}

	movementID, err := uc.repository.InsertMovement(ctx, tx, inventoryID, req.Type, req.Quantity, req.Description)
	if err != nil {
		return nil, apperr.Storage("Error al registrar el movimiento", err)
	}

	description := fmt.Sprintf("Movimiento de %s registrado para %s - Cantidad: %d",
		req.Type, rec.ProductName, req.Quantity)
	if err := uc.activity.AppendTx(ctx, tx, activitylog.TypeStockMovement, description, movementID); err != nil {
		return nil, apperr.Storage("Error al registrar la actividad", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("Error al confirmar la transacción", err)
	}

	log.Printf("✅ [STOCK MOVEMENT] InventoryID: %d | Tipo: %s | Cantidad: %d", inventoryID, req.Type, req.Quantity)
	return &StockMovement{
		ID:          movementID,
		InventoryID: inventoryID,
		ProductID:   rec.ProductID,
		ProductName: rec.ProductName,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Description: req.Description,
	}, nil
}

func (uc *UseCase) ListRecords(ctx context.Context) ([]StockRecord, error) {
	records, err := uc.repository.ListRecords(ctx)
	if err != nil {
		return nil, apperr.Storage("Error del servidor al obtener el inventario", err)
	}
	return records, nil
}

func (uc *UseCase) CreateRecord(ctx context.Context, req CreateStockRequest) (*StockRecord, error) {
	if req.ProductID <= 0 {
		return nil, apperr.Validation("ID de producto inválido")
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, apperr.Validation("El stock disponible debe ser mayor o igual a 0")
	}

	rec := &StockRecord{
		ProductID:   req.ProductID,
		Quantity:    *req.Quantity,
		MinQuantity: req.MinQuantity,
		MaxQuantity: req.MaxQuantity,
	}
	id, err := uc.repository.CreateRecord(ctx, rec)
	if err != nil {
		return nil, apperr.Storage("Error del servidor al crear el producto en inventario", err)
	}
	rec.ID = id
	return rec, nil
}

func (uc *UseCase) UpdateThresholds(ctx context.Context, inventoryID int, req UpdateStockRequest) error {
	if inventoryID <= 0 {
		return apperr.Validation("ID de inventario inválido")
	}
	if req.MinQuantity == nil || req.MaxQuantity == nil || *req.MinQuantity < 0 || *req.MaxQuantity < *req.MinQuantity {
		return apperr.Validation("Los umbrales de stock son inválidos")
	}

	affected, err := uc.repository.UpdateThresholds(ctx, inventoryID, *req.MinQuantity, *req.MaxQuantity)
	if err != nil {
		return apperr.Storage("Error del servidor al actualizar el producto de inventario", err)
	}
	if affected == 0 {
		return apperr.NotFound("Producto de inventario no encontrado")
	}
	return nil
}

func (uc *UseCase) ListMovements(ctx context.Context) ([]StockMovement, error) {
	movements, err := uc.repository.ListMovements(ctx)
	if err != nil {
		return nil, apperr.Storage("Error interno del servidor al obtener el historial", err)
	}
	return movements, nil
}

func (uc *UseCase) ListMovementsByProduct(ctx context.Context, productID int) ([]StockMovement, error) {
	if productID <= 0 {
		return nil, apperr.Validation("ID de producto inválido")
	}
	movements, err := uc.repository.ListMovementsByProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Storage("Error interno del servidor al obtener el historial del producto", err)
	}
	if len(movements) == 0 {
		return nil, apperr.NotFound("No se encontraron movimientos para este producto")
	}
	return movements, nil
}

func (uc *UseCase) ListMovementsByType(ctx context.Context, movementType string) ([]StockMovement, error) {
	if !ValidMovementType(movementType) {
		return nil, apperr.Validation(`Tipo de movimiento inválido. Debe ser "entrada" o "salida"`)
	}
	movements, err := uc.repository.ListMovementsByType(ctx, movementType)
	if err != nil {
		return nil, apperr.Storage("Error interno del servidor al obtener el historial", err)
	}
	return movements, nil
}

func (uc *UseCase) Summary(ctx context.Context) (*MovementsSummary, error) {
	summary, err := uc.repository.Summary(ctx, 10)
	if err != nil {
		return nil, apperr.Storage("Error interno del servidor al obtener el resumen", err)
	}
	return summary, nil
}
