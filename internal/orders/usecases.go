package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/frank-furt/pos-backend/internal/activitylog"
	"github.com/frank-furt/pos-backend/internal/apperr"
)

// CreateOrderRequest is the payload for creating a manual sale.
type CreateOrderRequest struct {
	TableID  int              `json:"idMesa" binding:"required"`
	Products []OrderItemInput `json:"productos" binding:"required,min=1,dive"`
}

// OrderItemInput is one requested product line.
type OrderItemInput struct {
	ProductID int `json:"idProducto" binding:"required,gt=0"`
	Quantity  int `json:"cantidad" binding:"required,gt=0"`
}

// PayRequest is the payload for marking an order paid.
type PayRequest struct {
	PaymentMethod string `json:"metodoPago" binding:"required"`
	Tip           int64  `json:"propina"`
}

// CancelRequest is the payload for cancelling an order.
type CancelRequest struct {
	Reason string `json:"motivo"`
}

// StatusRequest is the payload for a kitchen status transition.
type StatusRequest struct {
	NewStatus string `json:"nuevoEstado" binding:"required"`
}

// EventPublisher notifies downstream consumers (kitchen displays,
// notification senders) after a workflow operation commits. Publishing is
// best effort and never affects the transaction outcome.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID int, status string) error
}

// UseCase is the order workflow engine. Every state-changing operation runs
// as a single database transaction: validation, pricing, persistence, stock
// mutation, table state and audit entry commit together or not at all.
type UseCase struct {
	repository Repository
	activity   activitylog.Writer
	events     EventPublisher
	tracer     trace.Tracer
}

func NewUseCase(repository Repository, activity activitylog.Writer, events EventPublisher, tracer trace.Tracer) *UseCase {
	return &UseCase{
		repository: repository,
		activity:   activity,
		events:     events,
		tracer:     tracer,
	}
}

// pricedLine pairs a validated order line with the stock record that backs
// it, so the decrement after the order insert hits the same locked row.
type pricedLine struct {
	item        OrderItem
	inventoryID int
}

// CreateManualOrder validates and persists a manual sale atomically.
//
// Sequence: table lock and availability, per-item product and stock
// validation with price snapshot, order insert, line-item inserts, stock
// decrements with exit movements, table occupation, audit entry, commit.
// Any failure rolls back every effect accumulated so far.
func (uc *UseCase) CreateManualOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "create_manual_order")
	defer span.End()

	if req.TableID <= 0 || len(req.Products) == 0 {
		return nil, apperr.Validation("Se requiere ID de mesa y al menos un producto")
	}
	for _, in := range req.Products {
		if in.ProductID <= 0 || in.Quantity <= 0 {
			return nil, apperr.Validation("Todos los productos deben tener ID y cantidad válidos")
		}
	}

	span.SetAttributes(
		attribute.Int("table_id", req.TableID),
		attribute.Int("item_count", len(req.Products)),
	)

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al iniciar la transacción", err)
	}
	defer tx.Rollback()

	table, err := uc.repository.GetTableForUpdate(ctx, tx, req.TableID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("La mesa seleccionada no existe")
	}
	if err != nil {
		return nil, apperr.Storage("Error al consultar la mesa", err)
	}
	if table.Status != TableAvailable {
		return nil, apperr.Conflict("La mesa no está disponible")
	}

	var total int64
	lines := make([]pricedLine, 0, len(req.Products))
	for _, in := range req.Products {
		product, err := uc.repository.GetAvailableProduct(ctx, tx, in.ProductID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("El producto con ID %d no existe o no está disponible", in.ProductID))
		}
		if err != nil {
			return nil, apperr.Storage("Error al consultar el producto", err)
		}

		inventoryID, available, err := uc.repository.GetStockForUpdate(ctx, tx, in.ProductID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("El producto %s no tiene registro de inventario", product.Name))
		}
		if err != nil {
			return nil, apperr.Storage("Error al consultar el inventario", err)
		}
		if available < in.Quantity {
			return nil, apperr.Conflict(fmt.Sprintf("Stock insuficiente para el producto %s", product.Name))
		}

		subtotal := product.Price * int64(in.Quantity)
		total += subtotal
		lines = append(lines, pricedLine{
			item: OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Category:    product.Category,
				Quantity:    in.Quantity,
				UnitPrice:   product.Price,
				Subtotal:    subtotal,
			},
			inventoryID: inventoryID,
		})
	}

	order := &Order{
		TableID:     req.TableID,
		TableNumber: table.Number,
		OrderType:   OrderTypeManual,
		Status:      StatusPending,
		Total:       total,
		CreatedAt:   time.Now(),
	}

	orderID, err := uc.repository.InsertOrder(ctx, tx, order)
	if err != nil {
		return nil, apperr.Storage("Error al registrar el pedido", err)
	}
	order.ID = orderID

	for i := range lines {
		lines[i].item.OrderID = orderID
		if err := uc.repository.InsertOrderItem(ctx, tx, &lines[i].item); err != nil {
			return nil, apperr.Storage("Error al registrar los detalles del pedido", err)
		}
	}

	for _, line := range lines {
		affected, err := uc.repository.DecrementStock(ctx, tx, line.inventoryID, line.item.Quantity)
		if err != nil {
			return nil, apperr.Storage("Error al actualizar el inventario", err)
		}
		if affected == 0 {
			return nil, apperr.Conflict(fmt.Sprintf("Stock insuficiente para el producto %s", line.item.ProductName))
		}
		desc := fmt.Sprintf("Pedido manual #%d", orderID)
		if err := uc.repository.InsertStockExit(ctx, tx, line.inventoryID, line.item.Quantity, desc); err != nil {
			return nil, apperr.Storage("Error al registrar el movimiento de inventario", err)
		}
	}

	if err := uc.repository.UpdateTableStatus(ctx, tx, req.TableID, TableOccupied); err != nil {
		return nil, apperr.Storage("Error al ocupar la mesa", err)
	}

	description := fmt.Sprintf("Pedido manual creado para Mesa %d - Total: $%d", req.TableID, total)
	if err := uc.activity.AppendTx(ctx, tx, activitylog.TypeManualOrder, description, orderID); err != nil {
		return nil, apperr.Storage("Error al registrar la actividad", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("Error al confirmar la transacción", err)
	}

	for i := range lines {
		order.Items = append(order.Items, lines[i].item)
	}
	span.SetAttributes(attribute.Int("order_id", orderID), attribute.Int64("total", total))
	log.Printf("✅ [CREATE ORDER] OrderID: %d | Mesa: %d | Total: %d", orderID, req.TableID, total)

	uc.publish(func() error { return uc.events.PublishOrderCreated(ctx, order) })
	return order, nil
}

// MarkPaid settles an order. Payment is reachable from any non-terminal
// status and releases the table.
func (uc *UseCase) MarkPaid(ctx context.Context, orderID int, req PayRequest) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "mark_order_paid")
	defer span.End()

	if orderID <= 0 {
		return nil, apperr.Validation("ID de pedido inválido")
	}
	if !ValidPaymentMethod(req.PaymentMethod) {
		return nil, apperr.Validation(fmt.Sprintf(
			"Método de pago inválido. Los métodos válidos son: %s, %s, %s, %s",
			PaymentCash, PaymentCard, PaymentTransfer, PaymentQR))
	}
	if req.Tip < 0 {
		return nil, apperr.Validation("La propina debe ser un número válido mayor o igual a 0")
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al iniciar la transacción", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("El pedido no existe")
	}
	if err != nil {
		return nil, apperr.Storage("Error al consultar el pedido", err)
	}
	if !order.Payable() {
		return nil, apperr.Conflict("El pedido ya fue procesado")
	}

	if err := uc.repository.MarkOrderPaid(ctx, tx, orderID, req.PaymentMethod, req.Tip); err != nil {
		return nil, apperr.Storage("Error al registrar el pago", err)
	}
	if err := uc.repository.ReleaseTable(ctx, tx, order.TableID); err != nil {
		return nil, apperr.Storage("Error al liberar la mesa", err)
	}

	description := fmt.Sprintf("Pedido %d pagado - Método: %s - Total: $%d - Propina: $%d",
		orderID, req.PaymentMethod, order.Total, req.Tip)
	if err := uc.activity.AppendTx(ctx, tx, activitylog.TypeOrderPaid, description, orderID); err != nil {
		return nil, apperr.Storage("Error al registrar la actividad", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("Error al confirmar la transacción", err)
	}

	order.Status = StatusPaid
	order.PaymentMethod = req.PaymentMethod
	order.Tip = req.Tip
	log.Printf("✅ [PAY ORDER] OrderID: %d | Método: %s | Propina: %d", orderID, req.PaymentMethod, req.Tip)

	uc.publish(func() error { return uc.events.PublishOrderStatusChanged(ctx, orderID, StatusPaid) })
	return order, nil
}

// CancelOrder cancels a Pendiente or Preparando order, appends the reason to
// the observations and releases the table if this order occupied it.
func (uc *UseCase) CancelOrder(ctx context.Context, orderID int, reason string) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "cancel_order")
	defer span.End()

	if orderID <= 0 {
		return nil, apperr.Validation("ID de pedido inválido")
	}
	if reason == "" {
		reason = DefaultCancelReason
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al iniciar la transacción", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("El pedido no existe")
	}
	if err != nil {
		return nil, apperr.Storage("Error al consultar el pedido", err)
	}
	if !order.Cancelable() {
		return nil, apperr.Conflict("El pedido no puede ser cancelado en su estado actual")
	}

	if err := uc.repository.MarkOrderCancelled(ctx, tx, orderID, reason); err != nil {
		return nil, apperr.Storage("Error al cancelar el pedido", err)
	}
	if err := uc.repository.ReleaseTable(ctx, tx, order.TableID); err != nil {
		return nil, apperr.Storage("Error al liberar la mesa", err)
	}

	description := fmt.Sprintf("Pedido %d cancelado - Motivo: %s - Total perdido: $%d",
		orderID, reason, order.Total)
	if err := uc.activity.AppendTx(ctx, tx, activitylog.TypeOrderCancel, description, orderID); err != nil {
		return nil, apperr.Storage("Error al registrar la actividad", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("Error al confirmar la transacción", err)
	}

	order.Status = StatusCancelled
	log.Printf("↩️ [CANCEL ORDER] OrderID: %d | Motivo: %s", orderID, reason)

	uc.publish(func() error { return uc.events.PublishOrderStatusChanged(ctx, orderID, StatusCancelled) })
	return order, nil
}

// UpdateStatus advances an order one step through the kitchen flow
// (Pendiente → Preparando → Listo → Entregado).
func (uc *UseCase) UpdateStatus(ctx context.Context, orderID int, newStatus string) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "update_order_status")
	defer span.End()

	if orderID <= 0 {
		return nil, apperr.Validation("ID de pedido inválido")
	}
	if !ValidKitchenStatus(newStatus) {
		return nil, apperr.Validation(fmt.Sprintf(
			"Estado inválido. Los estados válidos son: %s, %s, %s, %s",
			StatusPending, StatusPreparing, StatusReady, StatusDelivered))
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al iniciar la transacción", err)
	}
	defer tx.Rollback()

	order, err := uc.repository.GetOrderForUpdate(ctx, tx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("El pedido no existe")
	}
	if err != nil {
		return nil, apperr.Storage("Error al consultar el pedido", err)
	}
	if IsTerminal(order.Status) {
		return nil, apperr.Conflict("El pedido ya fue finalizado")
	}
	if !order.CanTransitionTo(newStatus) {
		return nil, apperr.Conflict(fmt.Sprintf(
			"No se puede cambiar el estado de %s a %s", order.Status, newStatus))
	}

	if err := uc.repository.UpdateOrderStatus(ctx, tx, orderID, newStatus); err != nil {
		return nil, apperr.Storage("Error al actualizar el estado", err)
	}

	description := fmt.Sprintf("Estado del pedido %d actualizado a: %s", orderID, newStatus)
	if err := uc.activity.AppendTx(ctx, tx, activitylog.TypeStatusUpdate, description, orderID); err != nil {
		return nil, apperr.Storage("Error al registrar la actividad", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("Error al confirmar la transacción", err)
	}

	order.Status = newStatus
	uc.publish(func() error { return uc.events.PublishOrderStatusChanged(ctx, orderID, newStatus) })
	return order, nil
}

// ListPending returns today's open manual orders with item summaries.
func (uc *UseCase) ListPending(ctx context.Context) ([]PendingOrder, error) {
	pending, err := uc.repository.ListPending(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al obtener los pedidos pendientes", err)
	}
	return pending, nil
}

// GetDetail returns an order with its line items.
func (uc *UseCase) GetDetail(ctx context.Context, orderID int) (*Order, error) {
	if orderID <= 0 {
		return nil, apperr.Validation("ID de pedido inválido")
	}

	order, err := uc.repository.GetOrder(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Pedido no encontrado")
	}
	if err != nil {
		return nil, apperr.Storage("Error al obtener el pedido", err)
	}

	items, err := uc.repository.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, apperr.Storage("Error al obtener los detalles del pedido", err)
	}
	order.Items = items
	return order, nil
}

// ListAvailableTables returns the tables a new manual sale may target.
func (uc *UseCase) ListAvailableTables(ctx context.Context) ([]Table, error) {
	tables, err := uc.repository.ListAvailableTables(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al obtener las mesas disponibles", err)
	}
	return tables, nil
}

// DailySummary aggregates today's manual sales.
func (uc *UseCase) DailySummary(ctx context.Context) (*DailySummary, error) {
	summary, err := uc.repository.DailySummary(ctx, time.Now())
	if err != nil {
		return nil, apperr.Storage("Error al obtener el resumen de ventas", err)
	}
	return summary, nil
}

// publish runs a post-commit notification. Failures are logged and dropped:
// the transaction already committed and must stay committed.
func (uc *UseCase) publish(fn func() error) {
	if uc.events == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("❌ [PUBLISH] Failed to publish order event: %v", err)
	}
}
