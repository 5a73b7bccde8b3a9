package orders

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/frank-furt/pos-backend/internal/apperr"
)

// Handler contains the HTTP handlers of the manual sale workflow.
type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

// RegisterRoutes mounts the manual sale endpoints on the router group.
// Static segments go first so they are not swallowed by the :idPedido param.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/manual", h.CreateManualOrder)
	rg.GET("/pendientes", h.ListPending)
	rg.GET("/mesas/disponibles", h.ListAvailableTables)
	rg.GET("/reportes/resumen", h.DailySummary)
	rg.GET("/:idPedido", h.GetDetail)
	rg.PUT("/:idPedido/pagar", h.MarkPaid)
	rg.PUT("/:idPedido/estado", h.UpdateStatus)
	rg.DELETE("/:idPedido", h.CancelOrder)
}

func (h *Handler) CreateManualOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Datos incompletos. Se requiere idMesa y al menos un producto.",
		})
		return
	}

	order, err := h.useCase.CreateManualOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Pedido registrado exitosamente",
		"data": gin.H{
			"idPedido":    order.ID,
			"idMesa":      order.TableID,
			"total":       order.Total,
			"productos":   order.Items,
			"estado":      order.Status,
			"fechaPedido": order.CreatedAt,
		},
	})
}

func (h *Handler) ListPending(c *gin.Context) {
	pending, err := h.useCase.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": pending, "count": len(pending)})
}

func (h *Handler) MarkPaid(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "El método de pago es requerido"})
		return
	}

	order, err := h.useCase.MarkPaid(c.Request.Context(), orderID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pedido marcado como pagado exitosamente",
		"data": gin.H{
			"idPedido":        order.ID,
			"estado":          order.Status,
			"metodoPago":      order.PaymentMethod,
			"propina":         order.Tip,
			"totalConPropina": order.Total + order.Tip,
		},
	})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	// The body is optional: a cancel without a reason records the default.
	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.useCase.CancelOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = DefaultCancelReason
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pedido cancelado exitosamente",
		"data": gin.H{
			"idPedido": order.ID,
			"estado":   order.Status,
			"motivo":   reason,
		},
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Estado no válido"})
		return
	}

	order, err := h.useCase.UpdateStatus(c.Request.Context(), orderID, req.NewStatus)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Estado del pedido actualizado exitosamente",
		"data": gin.H{
			"idPedido":    order.ID,
			"nuevoEstado": order.Status,
		},
	})
}

func (h *Handler) GetDetail(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.useCase.GetDetail(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"pedido":   order,
			"detalles": order.Items,
		},
	})
}

func (h *Handler) ListAvailableTables(c *gin.Context) {
	tables, err := h.useCase.ListAvailableTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tables, "count": len(tables)})
}

func (h *Handler) DailySummary(c *gin.Context) {
	summary, err := h.useCase.DailySummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"fecha":   summary.Date,
			"resumen": summary,
		},
	})
}

func orderIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("idPedido"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ID de pedido inválido"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": apperr.Message(err)})
}
