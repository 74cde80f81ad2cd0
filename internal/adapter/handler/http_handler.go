package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"sweetshop/internal/core/domain"
	"sweetshop/internal/core/service"
)

type HTTPHandler struct {
	catalog *service.CatalogService
	auth    *service.AuthService
}

func NewHTTPHandler(catalog *service.CatalogService, auth *service.AuthService) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, auth: auth}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)

	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("GET /api/items/search", h.SearchItems)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("POST /api/items", h.Authenticated(h.AdminOnly(h.CreateItem)))
	mux.HandleFunc("PUT /api/items/{id}", h.Authenticated(h.AdminOnly(h.UpdateItem)))
	mux.HandleFunc("DELETE /api/items/{id}", h.Authenticated(h.AdminOnly(h.DeleteItem)))
	mux.HandleFunc("POST /api/items/{id}/purchase", h.Authenticated(h.PurchaseItem))
	mux.HandleFunc("POST /api/items/{id}/restock", h.Authenticated(h.AdminOnly(h.RestockItem)))
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// itemRequest covers both create and partial update; absent fields stay nil.
type itemRequest struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type itemResponse struct {
	Message string       `json:"message"`
	Item    *domain.Item `json:"item"`
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ItemFilter{
		NamePart:     q.Get("name"),
		CategoryPart: q.Get("category"),
	}

	if raw := q.Get("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid minPrice")
			return
		}
		filter.MinPrice = &v
	}
	if raw := q.Get("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid maxPrice")
			return
		}
		filter.MaxPrice = &v
	}

	items, err := h.catalog.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := service.CreateItemInput{}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Category != nil {
		in.Category = *req.Category
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}

	item, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := domain.ItemPatch{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	}

	item, err := h.catalog.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Item deleted successfully")
}

func (h *HTTPHandler) PurchaseItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// quantity defaults to 1 when the body omits it
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.catalog.Purchase(r.Context(), r.PathValue("id"), qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Message: "Purchase successful", Item: item})
}

func (h *HTTPHandler) RestockItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	qty := 0
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.catalog.Restock(r.Context(), r.PathValue("id"), qty)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Message: "Restock successful", Item: item})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var validation *service.ValidationError

	switch {
	case errors.As(err, &validation):
		writeMessage(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, service.ErrInsufficientStock):
		writeMessage(w, http.StatusBadRequest, "Insufficient quantity")
	case errors.Is(err, service.ErrItemNotFound):
		writeMessage(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
