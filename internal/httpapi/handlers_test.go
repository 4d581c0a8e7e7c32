package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"milstock.org/internal/auth"
	"milstock.org/internal/inventory"
	"milstock.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	tokens  *auth.Tokens
	t       *testing.T
}

func newTestAPI(t *testing.T, extra ...Option) *apiClient {
	t.Helper()

	tokens, err := auth.NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	accounts, err := auth.NewService(auth.NewInMemoryIdentities())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	opts := append([]Option{
		WithTokens(tokens),
		WithRateLimit(1000, 1000),
	}, extra...)
	api := New(accounts, inventory.NewInMemory(), stream.New(), "test", opts...)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		tokens:  tokens,
		t:       t,
	}
}

func newOpenAPI(t *testing.T) *apiClient {
	t.Helper()

	accounts, err := auth.NewService(auth.NewInMemoryIdentities())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	api := New(accounts, inventory.NewInMemory(), stream.New(), "test",
		WithRateLimit(1000, 1000))

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodGet, path, nil, headers)
}

// signup registers a fresh user and returns an authorization header for it.
func (c *apiClient) signup(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/api/auth/signup", map[string]any{
		"email":  email,
		"secret": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("signup status: %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](c.t, resp)
	if payload.Token == "" {
		c.t.Fatalf("signup issued empty token")
	}
	return map[string]string{"Authorization": "Bearer " + payload.Token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSignupLoginInventoryFlow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/signup", map[string]any{
		"email":  "ops@milstock.org",
		"secret": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/auth/login", map[string]any{
		"email":  "ops@milstock.org",
		"secret": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	login := decode[tokenResponse](t, resp)
	if login.Token == "" {
		t.Fatalf("login issued empty token")
	}
	authHeader := map[string]string{"Authorization": "Bearer " + login.Token}

	resp = api.get("/api/assets/inventory", authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("inventory status: %d", resp.StatusCode)
	}
	rows := decode[[]inventory.Snapshot](t, resp)
	if len(rows) != len(inventory.SeedSnapshots) {
		t.Fatalf("expected %d snapshot rows, got %d", len(inventory.SeedSnapshots), len(rows))
	}
	for _, row := range rows {
		if row.NetMovement != row.ClosingBalance-row.OpeningBalance {
			t.Fatalf("inconsistent net movement for %s/%s", row.Base, row.EquipmentType)
		}
	}
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	api := newTestAPI(t)
	api.signup("dup@milstock.org")

	resp := api.post("/api/auth/signup", map[string]any{
		"email":  "dup@milstock.org",
		"secret": "another",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t)
	api.signup("known@milstock.org")

	resp := api.post("/api/auth/login", map[string]any{
		"email":  "nobody@milstock.org",
		"secret": "whatever",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", resp.StatusCode)
	}

	resp = api.post("/api/auth/login", map[string]any{
		"email":  "known@milstock.org",
		"secret": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad secret: expected 401, got %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](t, resp)
	if payload.Token != "" {
		t.Fatalf("failed login must not issue a token")
	}
}

func TestProtectedPathsRequireToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{
		"/api/assets/inventory",
		"/api/assets",
		"/api/assets/purchase",
	} {
		resp := api.get(path, nil)
		body := decode[map[string]any](t, resp)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
		if body["error"] == "" {
			t.Fatalf("%s: expected error message", path)
		}
	}

	resp := api.get("/api/assets/inventory", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", resp.StatusCode)
	}
}

func TestMovementPostRequiresLogisticsRole(t *testing.T) {
	api := newTestAPI(t)

	token, _, err := api.tokens.Issue(auth.Identity{
		ID:    "viewer-1",
		Email: "viewer@milstock.org",
		Role:  "viewer",
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	viewerHeader := map[string]string{"Authorization": "Bearer " + token}

	// Reads are open to any authenticated role.
	resp := api.get("/api/assets/purchase", viewerHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("viewer read: expected 200, got %d", resp.StatusCode)
	}

	resp = api.post("/api/assets/purchase", map[string]any{"item": "rifle"}, viewerHeader)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("viewer write: expected 403, got %d", resp.StatusCode)
	}
}

func TestRecordAndListMovements(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signup("logi@milstock.org")

	resp := api.post("/api/assets/purchase", map[string]any{
		"item": "rifle",
		"qty":  10,
	}, authHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record status: %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	if created["message"] != "purchase recorded" {
		t.Fatalf("unexpected message: %v", created["message"])
	}
	data, ok := created["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data payload")
	}
	if data["item"] != "rifle" || data["qty"].(float64) != 10 {
		t.Fatalf("caller fields not echoed: %v", data)
	}
	for _, key := range []string{"id", "kind", "created_at"} {
		if v, _ := data[key].(string); v == "" {
			t.Fatalf("missing server field %s: %v", key, data)
		}
	}

	resp = api.get("/api/assets/purchase", authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %d", resp.StatusCode)
	}
	records := decode[[]map[string]any](t, resp)
	if len(records) != 1 {
		t.Fatalf("expected 1 purchase record, got %d", len(records))
	}
	if records[0]["id"] != data["id"] {
		t.Fatalf("listed record does not match created one")
	}

	// Other collections stay empty.
	resp = api.get("/api/assets/transfer", authHeader)
	transfers := decode[[]map[string]any](t, resp)
	if len(transfers) != 0 {
		t.Fatalf("expected no transfers, got %d", len(transfers))
	}
}

func TestAssetCRUD(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signup("crud@milstock.org")

	resp := api.post("/api/assets", map[string]any{
		"name":     "  M4 Carbine ",
		"type":     "rifle",
		"status":   "Operational",
		"location": "base-alpha",
	}, authHeader)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", resp.StatusCode)
	}
	created := decode[inventory.Asset](t, resp)
	if created.Name != "M4 Carbine" || created.Status != "operational" {
		t.Fatalf("input not normalised: %+v", created)
	}

	resp = api.get("/api/assets/"+created.ID, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %d", resp.StatusCode)
	}
	fetched := decode[inventory.Asset](t, resp)
	if fetched.ID != created.ID {
		t.Fatalf("fetched wrong asset: %+v", fetched)
	}

	resp = api.do(http.MethodPut, "/api/assets/"+created.ID, map[string]any{
		"status": "maintenance",
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %d", resp.StatusCode)
	}
	updated := decode[inventory.Asset](t, resp)
	if updated.Status != "maintenance" || updated.Name != "M4 Carbine" {
		t.Fatalf("partial update broke asset: %+v", updated)
	}

	resp = api.do(http.MethodPut, "/api/assets/no-such-id", map[string]any{
		"status": "deployed",
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update unknown id: expected 404, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodDelete, "/api/assets/"+created.ID, nil, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status: %d", resp.StatusCode)
	}

	resp = api.get("/api/assets/"+created.ID, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted asset still readable: %d", resp.StatusCode)
	}
}

func TestAssetValidation(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signup("valid@milstock.org")

	resp := api.post("/api/assets", map[string]any{
		"name":     "Humvee",
		"type":     "vehicle",
		"status":   "broken",
		"location": "base-bravo",
	}, authHeader)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status enum: expected 400, got %d", resp.StatusCode)
	}
}

func TestOpenModeSkipsAuth(t *testing.T) {
	api := newOpenAPI(t)

	resp := api.get("/api/assets/inventory", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open inventory: expected 200, got %d", resp.StatusCode)
	}
	rows := decode[[]inventory.Snapshot](t, resp)
	if len(rows) != len(inventory.SeedSnapshots) {
		t.Fatalf("expected seeded snapshots, got %d rows", len(rows))
	}

	// Role gates pass too.
	resp = api.post("/api/assets/expenditure", map[string]any{"qty": 3}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open write: expected 201, got %d", resp.StatusCode)
	}

	resp = api.post("/api/auth/signup", map[string]any{
		"email":  "open@milstock.org",
		"secret": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open signup: %d", resp.StatusCode)
	}
	payload := decode[tokenResponse](t, resp)
	if payload.Token != "" {
		t.Fatalf("open mode must not issue tokens")
	}
}

func TestRootAndHealth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/", nil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("root status: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "milstock") {
		t.Fatalf("unexpected root body: %q", body)
	}

	resp = api.get("/healthz", nil)
	health := decode[map[string]any](t, resp)
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz: %d %v", resp.StatusCode, health)
	}

	resp = api.get("/readyz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status: %d", resp.StatusCode)
	}

	resp = api.get("/api/unknown", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown path without token: expected 401, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	authHeader := api.signup("methods@milstock.org")

	resp := api.do(http.MethodDelete, "/api/assets/inventory", nil, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != http.MethodGet {
		t.Fatalf("unexpected Allow header: %q", allow)
	}
}

func TestSignupRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/auth/signup", map[string]any{
		"email":  "strict@milstock.org",
		"secret": "hunter2!",
		"role":   "admin",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}
