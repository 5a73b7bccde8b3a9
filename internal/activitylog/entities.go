package activitylog

import "time"

// Type tags written to the activity log. The values match the audit trail of
// the administration dashboard.
const (
	TypeManualOrder   = "PEDIDO_MANUAL"
	TypeOrderPaid     = "PAGO_PEDIDO"
	TypeOrderCancel   = "CANCELAR_PEDIDO"
	TypeStatusUpdate  = "ACTUALIZAR_ESTADO"
	TypeStockMovement = "MOVIMIENTO_STOCK"
)

// Entry is one append-only audit record.
type Entry struct {
	ID          int       `json:"id"`
	Type        string    `json:"tipo"`
	Description string    `json:"descripcion"`
	RelatedID   int       `json:"idRelacionado"`
	CreatedAt   time.Time `json:"fecha"`
}
