package inventory

import "time"

// Movement types. Quantity is always positive; the sign of the stock change
// is carried by the type.
const (
	MovementEntry = "entrada"
	MovementExit  = "salida"
)

// ValidMovementType reports whether t is a recognized movement type.
func ValidMovementType(t string) bool {
	return t == MovementEntry || t == MovementExit
}

// StockRecord tracks the current, minimum and maximum quantity of a product.
type StockRecord struct {
	ID          int       `json:"idInventario"`
	ProductID   int       `json:"idProducto"`
	ProductName string    `json:"nombreProducto,omitempty"`
	Quantity    int       `json:"stockDisponible"`
	MinQuantity int       `json:"stockMinimo"`
	MaxQuantity int       `json:"stockMaximo"`
	UpdatedAt   time.Time `json:"actualizado"`
}

// StockMovement is one append-only entry of the stock ledger.
type StockMovement struct {
	ID          int       `json:"idMovimiento"`
	InventoryID int       `json:"idInventario"`
	ProductID   int       `json:"idProducto"`
	ProductName string    `json:"nombreProducto"`
	Type        string    `json:"tipo"`
	Quantity    int       `json:"cantidad"`
	Description string    `json:"descripcion,omitempty"`
	CreatedAt   time.Time `json:"fecha"`
}

// MovementsSummary aggregates the ledger by movement type.
type MovementsSummary struct {
	TotalMovements int             `json:"totalMovimientos"`
	TotalEntries   int             `json:"totalEntradas"`
	TotalExits     int             `json:"totalSalidas"`
	QuantityIn     int             `json:"cantidadEntradas"`
	QuantityOut    int             `json:"cantidadSalidas"`
	Recent         []StockMovement `json:"movimientosRecientes"`
}

// CreateStockRequest is the payload for putting a product into inventory.
type CreateStockRequest struct {
	ProductID   int  `json:"idProducto" binding:"required,gt=0"`
	Quantity    *int `json:"stockDisponible" binding:"required"`
	MinQuantity int  `json:"stockMinimo"`
	MaxQuantity int  `json:"stockMaximo"`
}

// UpdateStockRequest adjusts the thresholds of a stock record. Quantity
// itself only moves through movements.
type UpdateStockRequest struct {
	MinQuantity *int `json:"stockMinimo" binding:"required"`
	MaxQuantity *int `json:"stockMaximo" binding:"required"`
}

// MovementRequest is the payload for a manual restock or exit.
type MovementRequest struct {
	Type        string `json:"tipo" binding:"required"`
	Quantity    int    `json:"cantidad" binding:"required,gt=0"`
	Description string `json:"descripcion"`
}
