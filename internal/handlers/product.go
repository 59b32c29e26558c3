package handlers

import (
	"net/http"

	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,lt=10000000000000000"`
	Unit        string          `json:"unit" validate:"max=50"`
	Description string          `json:"description" validate:"max=2000"`
}

type productPatchRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lt=10000000000000000"`
	Unit        *string          `json:"unit" validate:"omitempty,max=50"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
}

type ProductHandler struct {
	responder
	products *services.ProductService
	activity *services.ActivityService
}

func NewProductHandler(products *services.ProductService, activity *services.ActivityService, log logrus.FieldLogger, dev bool) *ProductHandler {
	return &ProductHandler{responder: responder{log: log, dev: dev}, products: products, activity: activity}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, "handlers.product", "List", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.product", "Get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Stats lists every product with how much of it was invoiced.
func (h *ProductHandler) Stats(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.WithStats(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.product", "Stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": list})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.products.Create(r.Context(), services.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Unit:        req.Unit,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, "handlers.product", "Create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productPatchRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.products.Update(r.Context(), id, services.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Unit:        req.Unit,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, "handlers.product", "Update", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.products.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.product", "Delete", err)
		return
	}
	h.activity.Record(r.Context(), activityFor(r, models.ActionProductDeleted, map[string]any{
		"product_id": p.ID,
		"name":       p.Name,
	}))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Produit supprimé avec succès",
		"product": p,
	})
}
