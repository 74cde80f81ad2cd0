package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sweetshop/internal/core/domain"
	"sweetshop/internal/core/service"
	"sweetshop/internal/port"
)

// In-memory DatabaseRepository for handler tests.
type memoryRepo struct {
	mu    sync.Mutex
	items map[string]domain.Item
	users map[string]domain.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items: make(map[string]domain.Item),
		users: make(map[string]domain.User),
	}
}

func (m *memoryRepo) ListItems(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.Item{}
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *memoryRepo) FindItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.Item{}
	for _, item := range m.items {
		if filter.NamePart != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(filter.NamePart)) {
			continue
		}
		if filter.CategoryPart != "" && !strings.Contains(strings.ToLower(item.Category), strings.ToLower(filter.CategoryPart)) {
			continue
		}
		if filter.MinPrice != nil && item.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && item.Price > *filter.MaxPrice {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *memoryRepo) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *memoryRepo) CreateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Name == item.Name {
			return port.ErrDuplicateName
		}
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) UpdateItem(ctx context.Context, item domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[item.ID]
	if !ok || current.Version != item.Version {
		return port.ErrVersionConflict
	}
	item.Version++
	item.UpdatedAt = time.Now()
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) DecrementQuantity(ctx context.Context, id string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Quantity < quantity {
		return false, nil
	}
	item.Quantity -= quantity
	item.Version++
	m.items[id] = item
	return true, nil
}

func (m *memoryRepo) IncrementQuantity(ctx context.Context, id string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return false, nil
	}
	item.Quantity += quantity
	item.Version++
	m.items[id] = item
	return true, nil
}

func (m *memoryRepo) DeleteItem(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return port.ErrDuplicateEmail
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// No-op CacheRepository; handler tests exercise the HTTP surface, not caching.
type noopCache struct{}

func (noopCache) GetItem(ctx context.Context, id string) (*domain.Item, error) { return nil, nil }
func (noopCache) SetItem(ctx context.Context, item domain.Item) error          { return nil }
func (noopCache) InvalidateItem(ctx context.Context, id string) error          { return nil }
func (noopCache) GetList(ctx context.Context) ([]domain.Item, error)           { return nil, nil }
func (noopCache) SetList(ctx context.Context, items []domain.Item) error       { return nil }
func (noopCache) InvalidateList(ctx context.Context) error                     { return nil }

type testServer struct {
	mux  *http.ServeMux
	repo *memoryRepo
}

func newTestServer() *testServer {
	repo := newMemoryRepo()
	catalog := service.NewCatalogService(repo, noopCache{})
	auth := service.NewAuthService(repo, "test-secret")

	h := NewHTTPHandler(catalog, auth)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &testServer{mux: mux, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) registerFor(t *testing.T, role string) string {
	t.Helper()

	email := fmt.Sprintf("%s-%d@example.com", strings.ToLower(role), time.Now().UnixNano())
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password1",
		"role":     role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp.Token
}

func (s *testServer) createItem(t *testing.T, adminToken, name, category string, price float64, quantity int) domain.Item {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/items", adminToken, map[string]any{
		"name":     name,
		"category": category,
		"price":    price,
		"quantity": quantity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item failed with status %d: %s", rec.Code, rec.Body.String())
	}

	var item domain.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	return resp.Message
}

func TestPurchaseRestockScenario(t *testing.T) {
	srv := newTestServer()
	admin := srv.registerFor(t, "ADMIN")
	user := srv.registerFor(t, "USER")

	item := srv.createItem(t, admin, "Chocolate", "Candy", 2.50, 5)

	// Purchase 2 of 5.
	rec := srv.do(t, http.MethodPost, "/api/items/"+item.ID+"/purchase", user, map[string]int{"quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var purchase struct {
		Message string      `json:"message"`
		Item    domain.Item `json:"item"`
	}
	json.Unmarshal(rec.Body.Bytes(), &purchase)
	if purchase.Item.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", purchase.Item.Quantity)
	}

	// Purchase 10 of 3 fails, quantity unchanged.
	rec = srv.do(t, http.MethodPost, "/api/items/"+item.ID+"/purchase", user, map[string]int{"quantity": 10})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Insufficient quantity" {
		t.Errorf("expected %q, got %q", "Insufficient quantity", msg)
	}

	// Restock 10 brings it to 13.
	rec = srv.do(t, http.MethodPost, "/api/items/"+item.ID+"/restock", admin, map[string]int{"quantity": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var restock struct {
		Item domain.Item `json:"item"`
	}
	json.Unmarshal(rec.Body.Bytes(), &restock)
	if restock.Item.Quantity != 13 {
		t.Errorf("expected quantity 13, got %d", restock.Item.Quantity)
	}

	// Restock -5 fails with the fixed message, quantity unchanged.
	rec = srv.do(t, http.MethodPost, "/api/items/"+item.ID+"/restock", admin, map[string]int{"quantity": -5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Restock amount must be positive" {
		t.Errorf("expected %q, got %q", "Restock amount must be positive", msg)
	}

	rec = srv.do(t, http.MethodGet, "/api/items/"+item.ID, "", nil)
	var current domain.Item
	json.Unmarshal(rec.Body.Bytes(), &current)
	if current.Quantity != 13 {
		t.Errorf("expected quantity still 13, got %d", current.Quantity)
	}
}

func TestPurchase_DefaultQuantity(t *testing.T) {
	srv := newTestServer()
	admin := srv.registerFor(t, "ADMIN")
	user := srv.registerFor(t, "USER")

	item := srv.createItem(t, admin, "Fudge", "Candy", 1.50, 5)

	// Empty body defaults quantity to 1.
	rec := srv.do(t, http.MethodPost, "/api/items/"+item.ID+"/purchase", user, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Item domain.Item `json:"item"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Item.Quantity != 4 {
		t.Errorf("expected quantity 4, got %d", resp.Item.Quantity)
	}
}

func TestPurchase_UnknownItem(t *testing.T) {
	srv := newTestServer()
	user := srv.registerFor(t, "USER")

	rec := srv.do(t, http.MethodPost, "/api/items/nope/purchase", user, map[string]int{"quantity": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Item not found" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestAuthGate(t *testing.T) {
	srv := newTestServer()
	user := srv.registerFor(t, "USER")

	body := map[string]any{"name": "Taffy", "category": "Candy", "price": 1.0}

	// No token.
	if rec := srv.do(t, http.MethodPost, "/api/items", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Garbage token.
	if rec := srv.do(t, http.MethodPost, "/api/items", "garbage", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}

	// Authenticated but not admin.
	if rec := srv.do(t, http.MethodPost, "/api/items", user, body); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rec.Code)
	}

	// Purchase requires only authentication.
	if rec := srv.do(t, http.MethodPost, "/api/items/nope/purchase", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated purchase, got %d", rec.Code)
	}

	// Restock requires admin.
	if rec := srv.do(t, http.MethodPost, "/api/items/nope/restock", user, map[string]int{"quantity": 1}); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin restock, got %d", rec.Code)
	}

	// List and search are public.
	if rec := srv.do(t, http.MethodGet, "/api/items", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for public list, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, "/api/items/search?name=x", "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for public search, got %d", rec.Code)
	}
}

func TestCreateItem_Validation(t *testing.T) {
	srv := newTestServer()
	admin := srv.registerFor(t, "ADMIN")

	rec := srv.do(t, http.MethodPost, "/api/items", admin, map[string]any{"category": "Candy", "price": 1.0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Name is required" {
		t.Errorf("unexpected message %q", msg)
	}

	srv.createItem(t, admin, "Chocolate", "Candy", 2.50, 5)
	rec = srv.do(t, http.MethodPost, "/api/items", admin, map[string]any{"name": "Chocolate", "category": "Candy", "price": 1.0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate name, got %d", rec.Code)
	}
}

func TestSearch_Filters(t *testing.T) {
	srv := newTestServer()
	admin := srv.registerFor(t, "ADMIN")

	srv.createItem(t, admin, "Chocolate Bar", "Candy", 2.50, 5)
	srv.createItem(t, admin, "Dark Chocolate", "Premium", 5.00, 2)
	srv.createItem(t, admin, "Gummy Bears", "Candy", 1.00, 10)

	rec := srv.do(t, http.MethodGet, "/api/items/search?name=chocolate&minPrice=3", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []domain.Item
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 || items[0].Name != "Dark Chocolate" {
		t.Errorf("expected only Dark Chocolate, got %+v", items)
	}

	rec = srv.do(t, http.MethodGet, "/api/items/search?minPrice=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad minPrice, got %d", rec.Code)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	srv := newTestServer()
	admin := srv.registerFor(t, "ADMIN")

	item := srv.createItem(t, admin, "Chocolate", "Candy", 2.50, 5)

	rec := srv.do(t, http.MethodPut, "/api/items/"+item.ID, admin, map[string]any{"price": 3.75})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Item
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Price != 3.75 {
		t.Errorf("expected price 3.75, got %v", updated.Price)
	}
	if updated.Name != "Chocolate" {
		t.Errorf("expected name untouched, got %q", updated.Name)
	}

	rec = srv.do(t, http.MethodPut, "/api/items/missing", admin, map[string]any{"price": 1.0})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodDelete, "/api/items/"+item.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Item deleted successfully" {
		t.Errorf("unexpected message %q", msg)
	}

	rec = srv.do(t, http.MethodDelete, "/api/items/"+item.ID, admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer()

	rec := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Token == "" {
		t.Error("expected a token")
	}
	if created.User.Role != domain.RoleUser {
		t.Errorf("expected default USER role, got %s", created.User.Role)
	}

	// Duplicate email.
	rec = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate email, got %d", rec.Code)
	}

	// Wrong password.
	rec = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if msg := messageOf(t, rec); msg != "Invalid credentials" {
		t.Errorf("unexpected message %q", msg)
	}

	// Correct password.
	rec = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password1",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer()
	wrapped := CORS([]string{"http://localhost:3000"}, srv.mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	// Unlisted origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer()

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
