package inventory

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frank-furt/pos-backend/internal/apperr"
)

// Handler contains the HTTP handlers of the inventory and its ledger.
type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

// RegisterRoutes mounts the inventory endpoints on the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListRecords)
	rg.POST("", h.CreateRecord)
	rg.PUT("/:id", h.UpdateThresholds)
	rg.POST("/:id/movimientos", h.RecordMovement)
	rg.GET("/historial", h.ListMovements)
	rg.GET("/historial/:id", h.ListMovementsByProduct)
	rg.GET("/historial/tipo/:tipo", h.ListMovementsByType)
	rg.GET("/resumen", h.Summary)
}

func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.useCase.ListRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": records, "count": len(records)})
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var req CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	record, err := h.useCase.CreateRecord(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": record})
}

func (h *Handler) UpdateThresholds(c *gin.Context) {
	id, ok := idParam(c, "id", "ID de inventario inválido")
	if !ok {
		return
	}

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if err := h.useCase.UpdateThresholds(c.Request.Context(), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Producto de inventario actualizado con éxito"})
}

func (h *Handler) RecordMovement(c *gin.Context) {
	id, ok := idParam(c, "id", "ID de inventario inválido")
	if !ok {
		return
	}

	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	movement, err := h.useCase.RecordMovement(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Movimiento registrado exitosamente",
		"data":    movement,
	})
}

func (h *Handler) ListMovements(c *gin.Context) {
	movements, err := h.useCase.ListMovements(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Historial de movimientos obtenido exitosamente",
		"data":    movements,
		"total":   len(movements),
	})
}

func (h *Handler) ListMovementsByProduct(c *gin.Context) {
	id, ok := idParam(c, "id", "ID de producto inválido")
	if !ok {
		return
	}

	movements, err := h.useCase.ListMovementsByProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Historial del producto obtenido exitosamente",
		"data":    movements,
		"total":   len(movements),
	})
}

func (h *Handler) ListMovementsByType(c *gin.Context) {
	movementType := strings.ToLower(c.Param("tipo"))

	movements, err := h.useCase.ListMovementsByType(c.Request.Context(), movementType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": `Movimientos de tipo "` + movementType + `" obtenidos exitosamente`,
		"data":    movements,
		"total":   len(movements),
	})
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.useCase.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Resumen de movimientos obtenido exitosamente",
		"data":    summary,
	})
}

func idParam(c *gin.Context, name, message string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": apperr.Message(err)})
}
