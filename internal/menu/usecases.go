package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/frank-furt/pos-backend/internal/apperr"
)

// UseCase contains the business logic of the menu catalogue.
type UseCase struct {
	repository Repository
}

func NewUseCase(repository Repository) *UseCase {
	return &UseCase{repository: repository}
}

func (uc *UseCase) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := uc.repository.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Storage("Error al obtener el menú", err)
	}
	return products, nil
}

func (uc *UseCase) GetProduct(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return nil, apperr.Validation("ID de producto inválido")
	}
	p, err := uc.repository.GetProduct(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Producto no encontrado")
	}
	if err != nil {
		return nil, apperr.Storage("Error al obtener el producto", err)
	}
	return p, nil
}

func (uc *UseCase) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, apperr.Validation("El nombre del producto es requerido")
	}
	if req.Price == nil || *req.Price < 0 {
		return nil, apperr.Validation("El precio debe ser un número mayor o igual a 0")
	}

	p := &Product{
		Name:      req.Name,
		Price:     *req.Price,
		Category:  req.Category,
		Available: true,
	}
	if req.Available != nil {
		p.Available = *req.Available
	}

	id, err := uc.repository.CreateProduct(ctx, p)
	if err != nil {
		return nil, apperr.Storage("Error al crear el producto", err)
	}
	p.ID = id
	return p, nil
}

func (uc *UseCase) UpdateProduct(ctx context.Context, id int, req CreateProductRequest) (*Product, error) {
	if id <= 0 {
		return nil, apperr.Validation("ID de producto inválido")
	}
	if req.Name == "" {
		return nil, apperr.Validation("El nombre del producto es requerido")
	}
	if req.Price == nil || *req.Price < 0 {
		return nil, apperr.Validation("El precio debe ser un número mayor o igual a 0")
	}

	p := &Product{ID: id, Name: req.Name, Price: *req.Price, Category: req.Category, Available: true}
	if req.Available != nil {
		p.Available = *req.Available
	}

	affected, err := uc.repository.UpdateProduct(ctx, p)
	if err != nil {
		return nil, apperr.Storage("Error al actualizar el producto", err)
	}
	if affected == 0 {
		return nil, apperr.NotFound("Producto no encontrado")
	}
	return p, nil
}

func (uc *UseCase) DeleteProduct(ctx context.Context, id int) error {
	if id <= 0 {
		return apperr.Validation("ID de producto inválido")
	}

	referenced, err := uc.repository.ProductReferenced(ctx, id)
	if err != nil {
		return apperr.Storage("Error al eliminar el producto", err)
	}
	if referenced {
		return apperr.Conflict("El producto está referenciado por pedidos o inventario y no puede eliminarse")
	}

	affected, err := uc.repository.DeleteProduct(ctx, id)
	if err != nil {
		return apperr.Storage("Error al eliminar el producto", err)
	}
	if affected == 0 {
		return apperr.NotFound("Producto no encontrado")
	}
	return nil
}
