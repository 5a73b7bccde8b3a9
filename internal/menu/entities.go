package menu

// Product is a menu item. Price is integer currency units and is
// snapshotted into order lines at order-creation time, so later edits here
// never touch existing orders.
type Product struct {
	ID        int    `json:"idProducto"`
	Name      string `json:"nombre"`
	Price     int64  `json:"precio"`
	Category  string `json:"categoria"`
	Available bool   `json:"disponible"`
}

// CreateProductRequest is the payload for creating or updating a product.
type CreateProductRequest struct {
	Name      string `json:"nombre" binding:"required"`
	Price     *int64 `json:"precio" binding:"required"`
	Category  string `json:"categoria"`
	Available *bool  `json:"disponible"`
}
