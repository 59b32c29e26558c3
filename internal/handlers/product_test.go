package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCRUD(t *testing.T) {
	api := newTestAPI(t)

	rec, p := call(t, api.products.Create, http.MethodPost, "/products", "", map[string]any{
		"name":  "Rouleau",
		"price": "350.5",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 350.5, p["price"])
	assert.Equal(t, "unité", p["unit"])
	id := idOf(p)

	rec, body := call(t, api.products.Create, http.MethodPost, "/products", "", map[string]any{"name": "Gratuit?", "price": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"price": "must_not_be_negative"}, body["details"])

	rec, body = call(t, api.products.Create, http.MethodPost, "/products", "", map[string]any{"name": "Cuve", "price": "10000000000000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"price": "too_large"}, body["details"])

	rec, p = call(t, api.products.Update, http.MethodPut, "/products/"+id, id, map[string]any{"price": 400})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(400), p["price"])
	assert.Equal(t, "Rouleau", p["name"])

	rec, body = call(t, api.products.List, http.MethodGet, "/products?search=roul", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["products"], 1)

	rec, body = call(t, api.products.Delete, http.MethodDelete, "/products/"+id, id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Produit supprimé avec succès", body["message"])
}

func TestDeleteUsedProductConflicts(t *testing.T) {
	api := newTestAPI(t)
	inv := createInvoice(t, api, map[string]any{
		"client_id": api.client.ID,
		"items":     []map[string]any{{"product_id": api.brush.ID, "quantity": 2}},
	})
	id := fmt.Sprint(api.brush.ID)

	rec, body := call(t, api.products.Delete, http.MethodDelete, "/products/"+id, id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	details := body["details"].(map[string]any)
	assert.Equal(t, float64(1), details["invoice_count"])
	assert.Equal(t, inv["invoice_number"], details["invoices"].([]any)[0].(map[string]any)["invoice_number"])

	rec, body = call(t, api.products.Stats, http.MethodGet, "/products/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, raw := range body["products"].([]any) {
		p := raw.(map[string]any)
		if p["name"] != "Pinceau" {
			continue
		}
		stats := p["statistics"].(map[string]any)
		assert.Equal(t, float64(2), stats["total_quantity_sold"])
		assert.Equal(t, float64(5), stats["total_revenue"])
		assert.Equal(t, float64(1), stats["times_used"])
	}
}
