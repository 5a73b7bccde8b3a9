package orders

import "time"

// Order statuses. The wire values are the Spanish labels the dashboard and
// the ordering site already speak.
const (
	StatusPending   = "Pendiente"
	StatusPreparing = "Preparando"
	StatusReady     = "Listo"
	StatusDelivered = "Entregado"
	StatusPaid      = "Pagado"
	StatusCancelled = "Cancelado"
)

// OrderTypeManual marks orders entered by staff for a physical table.
const OrderTypeManual = "Manual"

// Table states.
const (
	TableAvailable       = "disponible"
	TableOccupied        = "ocupada"
	TableAwaitingPayment = "esperando_pago"
)

// Accepted payment methods.
const (
	PaymentCash     = "Efectivo"
	PaymentCard     = "Tarjeta"
	PaymentTransfer = "Transferencia"
	PaymentQR       = "QR_Pago"
)

// DefaultCancelReason is recorded when a cancellation arrives without one.
const DefaultCancelReason = "No especificado"

// Order is a manual sale against a table. Total and the item subtotals are
// fixed at creation time; money is integer currency units.
type Order struct {
	ID            int         `json:"idPedido"`
	TableID       int         `json:"idMesa"`
	TableNumber   string      `json:"numeroMesa,omitempty"`
	OrderType     string      `json:"tipoOrden"`
	Status        string      `json:"estado"`
	Total         int64       `json:"total"`
	PaymentMethod string      `json:"metodoPago,omitempty"`
	Tip           int64       `json:"propina"`
	Observations  string      `json:"observaciones,omitempty"`
	CreatedAt     time.Time   `json:"fechaPedido"`
	PaidAt        *time.Time  `json:"fechaPago,omitempty"`
	Items         []OrderItem `json:"productos,omitempty"`
}

// OrderItem is one product line with its snapshotted unit price.
type OrderItem struct {
	ID          int    `json:"idDetalle,omitempty"`
	OrderID     int    `json:"idPedido,omitempty"`
	ProductID   int    `json:"idProducto"`
	ProductName string `json:"nombre,omitempty"`
	Category    string `json:"categoria,omitempty"`
	Quantity    int    `json:"cantidad"`
	UnitPrice   int64  `json:"precioUnitario"`
	Subtotal    int64  `json:"subtotal"`
}

// Table is a seating unit.
type Table struct {
	ID       int    `json:"id"`
	Number   string `json:"numero"`
	Capacity int    `json:"capacidad"`
	Location string `json:"ubicacion"`
	Status   string `json:"estado"`
}

// PendingOrder is the summary row of the pending-orders listing.
type PendingOrder struct {
	ID           int       `json:"idPedido"`
	TableID      int       `json:"idMesa"`
	TableNumber  string    `json:"numeroMesa"`
	CreatedAt    time.Time `json:"fechaPedido"`
	Total        int64     `json:"total"`
	Status       string    `json:"estado"`
	Observations string    `json:"observaciones,omitempty"`
	ItemCount    int       `json:"cantidadItems"`
	Products     string    `json:"productos"`
}

// DailySummary aggregates today's manual sales by status.
type DailySummary struct {
	Date            string  `json:"fecha"`
	TotalOrders     int     `json:"totalPedidos"`
	PaidOrders      int     `json:"pedidosPagados"`
	PendingOrders   int     `json:"pedidosPendientes"`
	CancelledOrders int     `json:"pedidosCancelados"`
	TotalSales      int64   `json:"ventasTotales"`
	TotalTips       int64   `json:"propinasTotal"`
	AverageTicket   float64 `json:"ticketPromedio"`
}

// kitchen transition table: each status maps to the statuses reachable from
// it through the kitchen flow. Payment and cancellation are separate
// operations with their own reachability rules.
var kitchenTransitions = map[string]string{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
}

// ValidKitchenStatus reports whether s is a status the kitchen flow may
// target. Pagado and Cancelado are only reachable through the pay and
// cancel operations.
func ValidKitchenStatus(s string) bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentQR:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func IsTerminal(s string) bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransitionTo reports whether the kitchen flow allows moving the order
// to next. Only the forward step of the sequence
// Pendiente → Preparando → Listo → Entregado is permitted.
func (o *Order) CanTransitionTo(next string) bool {
	return kitchenTransitions[o.Status] == next
}

// Payable reports whether the pay operation may run on the order. Payment
// is reachable from any non-terminal status.
func (o *Order) Payable() bool {
	return !IsTerminal(o.Status)
}

// Cancelable reports whether the order may still be cancelled.
func (o *Order) Cancelable() bool {
	return o.Status == StatusPending || o.Status == StatusPreparing
}
