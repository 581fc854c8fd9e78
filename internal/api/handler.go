// Package api JSON API консоли поверх console.Service.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/domain/bom"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/labor"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/infra/backend"
	"github.com/Spok95/bom-console/internal/report"
	"github.com/gin-gonic/gin"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *console.Service
}

func NewHandler(svc *console.Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/materials", h.listMaterials)
	r.GET("/materials/low-stock", h.lowStock)
	r.POST("/materials", h.createMaterial)
	r.POST("/materials/:id/reset-notified", h.resetNotified)
	r.POST("/restock", h.restock)
	r.POST("/bom/quote", h.quote)
	r.GET("/products", h.listProducts)
	r.POST("/products", h.createProduct)
	r.POST("/low-stock/scan", h.scan)
	r.GET("/catalog", h.catalog)
	r.GET("/export/materials.xlsx", h.exportMaterials)
	r.GET("/export/products.xlsx", h.exportProducts)
}

func (h *Handler) success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *Handler) error(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// fail переводит доменную ошибку в HTTP-код.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *materials.ValidationError
	var se *backend.StatusError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, bom.ErrInvalidQuantity),
		errors.Is(err, bom.ErrUnresolvedMaterial),
		errors.Is(err, bom.ErrLineIndex),
		errors.Is(err, labor.ErrInvalidHours):
		h.error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, materials.ErrRejected),
		errors.Is(err, inventory.ErrRestockRejected):
		h.error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, labor.ErrCalculationFailed),
		errors.As(err, &se):
		h.error(c, http.StatusBadGateway, err.Error())
	default:
		h.error(c, http.StatusInternalServerError, err.Error())
	}
}

type materialView struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Category       string  `json:"category"`
	Unit           string  `json:"unit"`
	Quantity       string  `json:"quantity"`
	ReorderLevel   string  `json:"reorder_level"`
	CostPerUnit    string  `json:"cost"`
	SupplierID     *int64  `json:"supplier_id,omitempty"`
	SupplierName   string  `json:"supplier_name,omitempty"`
	Status         string  `json:"status"`
	NotifyState    string  `json:"notify_state"`
	RecommendedQty *string `json:"recommended_order,omitempty"`
}

func (h *Handler) view(m materials.Material) materialView {
	v := materialView{
		ID:           m.ID,
		Name:         m.Name,
		SKU:          m.SKU,
		Category:     string(m.Category),
		Unit:         m.Unit,
		Quantity:     m.QuantityOnHand.String(),
		ReorderLevel: m.ReorderLevel.String(),
		CostPerUnit:  m.CostPerUnit.String(),
		SupplierID:   m.SupplierID,
		SupplierName: m.SupplierName,
		Status:       string(m.Status()),
		NotifyState:  h.svc.StateOf(m).String(),
	}
	if m.IsLow() {
		q := h.svc.RecommendedOrder(m).String()
		v.RecommendedQty = &q
	}
	return v
}

func (h *Handler) views(list []materials.Material) []materialView {
	out := make([]materialView, 0, len(list))
	for _, m := range list {
		out = append(out, h.view(m))
	}
	return out
}

func (h *Handler) listMaterials(c *gin.Context) {
	if c.Query("refresh") == "1" {
		h.svc.Refresh(c.Request.Context())
	}
	h.success(c, h.views(h.svc.Materials()))
}

func (h *Handler) lowStock(c *gin.Context) {
	h.success(c, h.views(h.svc.LowStock()))
}

func (h *Handler) createMaterial(c *gin.Context) {
	var req materials.NewMaterial
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.svc.AddMaterial(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	h.success(c, gin.H{"count": len(h.svc.Materials())})
}

func (h *Handler) resetNotified(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.error(c, http.StatusBadRequest, "invalid material id")
		return
	}
	if err := h.svc.ResetNotified(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.success(c, gin.H{"material_id": id})
}

func (h *Handler) restock(c *gin.Context) {
	var req inventory.Restock
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.svc.Restock(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	m, _ := h.svc.Material(req.MaterialID)
	h.success(c, h.view(m))
}

func (h *Handler) quote(c *gin.Context) {
	var req console.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	q, err := h.svc.Quote(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.success(c, q)
}

func (h *Handler) listProducts(c *gin.Context) {
	h.success(c, h.svc.Products(c.Request.Context()))
}

func (h *Handler) createProduct(c *gin.Context) {
	var req console.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id, err := h.svc.SaveProduct(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.success(c, gin.H{"id": id})
}

func (h *Handler) scan(c *gin.Context) {
	rep := h.svc.ScanLowStock(c.Request.Context())
	h.success(c, gin.H{
		"scanned":   rep.Scanned,
		"low":       rep.Low,
		"delivered": len(rep.Delivered()),
		"entries":   rep.Entries,
	})
}

// catalog справочники для форм: поставщики, склады, навыки.
func (h *Handler) catalog(c *gin.Context) {
	ctx := c.Request.Context()
	h.success(c, gin.H{
		"suppliers":  h.svc.Suppliers(ctx),
		"warehouses": h.svc.Warehouses(ctx),
		"skills":     h.svc.Skills(ctx),
	})
}

func (h *Handler) exportMaterials(c *gin.Context) {
	data, err := report.Materials(h.svc.Materials(), h.svc.StateOf)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.attachment(c, "materials.xlsx", data)
}

func (h *Handler) exportProducts(c *gin.Context) {
	data, err := report.Products(h.svc.Products(c.Request.Context()))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.attachment(c, "products.xlsx", data)
}

func (h *Handler) attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxMIME, data)
}
