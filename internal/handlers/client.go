package handlers

import (
	"net/http"

	"github.com/diewo77/paintms/internal/httpx"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/services"
	"github.com/sirupsen/logrus"
)

type clientRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
}

type clientPatchRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

type ClientHandler struct {
	responder
	clients  *services.ClientService
	activity *services.ActivityService
}

func NewClientHandler(clients *services.ClientService, activity *services.ActivityService, log logrus.FieldLogger, dev bool) *ClientHandler {
	return &ClientHandler{responder: responder{log: log, dev: dev}, clients: clients, activity: activity}
}

// List supports search, page, limit, sort_by and sort_order.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.clients.List(r.Context(), services.ClientQuery{
		Search:    q.Get("search"),
		Page:      httpx.QueryInt(r, "page", 1, 0),
		Limit:     httpx.QueryInt(r, "limit", 50, 200),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		h.fail(w, r, "handlers.client", "List", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.client", "Get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Stats lists every client with its invoice summary.
func (h *ClientHandler) Stats(w http.ResponseWriter, r *http.Request) {
	list, err := h.clients.WithStats(r.Context())
	if err != nil {
		h.fail(w, r, "handlers.client", "Stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clients": list})
}

// Top lists the clients with the largest invoiced amount.
func (h *ClientHandler) Top(w http.ResponseWriter, r *http.Request) {
	list, err := h.clients.Top(r.Context(), httpx.QueryInt(r, "limit", 5, 100))
	if err != nil {
		h.fail(w, r, "handlers.client", "Top", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clients": list})
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.clients.Create(r.Context(), services.ClientInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.fail(w, r, "handlers.client", "Create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Update changes only the fields present in the body.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req clientPatchRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.clients.Update(r.Context(), id, services.ClientPatch{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.fail(w, r, "handlers.client", "Update", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete answers 409 with the blocking invoices when the client still has some.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.clients.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handlers.client", "Delete", err)
		return
	}
	h.activity.Record(r.Context(), activityFor(r, models.ActionClientDeleted, map[string]any{
		"client_id": c.ID,
		"name":      c.Name,
	}))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Client supprimé avec succès",
		"client":  c,
	})
}
