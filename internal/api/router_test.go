package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/database"
	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
	"github.com/stocktrail/stocktrail/internal/permissions"
	"github.com/stocktrail/stocktrail/internal/services"
)

type apiFixture struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	audit  *services.AuditService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "stocktrail-test"})
	require.NoError(t, err)
	sessions, err := auth.NewSessionService(db, jwtService, auth.SessionConfig{})
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	authService, err := services.NewAuthService(db, sessions, audit, services.AuthConfig{})
	require.NoError(t, err)
	users, err := services.NewUserService(db)
	require.NoError(t, err)
	categories, err := services.NewCategoryService(db)
	require.NoError(t, err)
	locations, err := services.NewLocationService(db)
	require.NoError(t, err)
	items, err := services.NewItemService(db)
	require.NoError(t, err)
	transactions, err := services.NewTransactionService(db, audit)
	require.NoError(t, err)
	tasks, err := services.NewTaskService(db, audit)
	require.NoError(t, err)
	dashboard, err := services.NewDashboardService(db, audit)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	router := NewRouter(Deps{
		DB:              db,
		JWT:             jwtService,
		Checker:         checker,
		Auth:            authService,
		Users:           users,
		Categories:      categories,
		Locations:       locations,
		Items:           items,
		Transactions:    transactions,
		Tasks:           tasks,
		Audit:           audit,
		Dashboard:       dashboard,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	})

	return &apiFixture{t: t, db: db, router: router, audit: audit}
}

func (f *apiFixture) seedRoot(t *testing.T) {
	t.Helper()
	created, err := database.EnsureRootUser(context.Background(), f.db, "root", "root@example.com", "root-password-1")
	require.NoError(t, err)
	require.True(t, created)
}

func (f *apiFixture) request(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()

	rec := f.request(http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload struct {
		Data struct {
			Session struct {
				AccessToken string `json:"access_token"`
			} `json:"session"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Data.Session.AccessToken)
	return payload.Data.Session.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.request(http.MethodGet, "/api/items", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestLoginBadCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)

	rec := f.request(http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "root",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestItemLifecycleIsAudited(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodPost, "/api/items", token, gin.H{
		"sku":      "API-1",
		"name":     "API Widget",
		"quantity": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data models.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	itemID := created.Data.ID

	rec = f.request(http.MethodPut, fmt.Sprintf("/api/items/%s", itemID), token, gin.H{
		"name": "Renamed Widget",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(http.MethodDelete, fmt.Sprintf("/api/items/%s", itemID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	logs, _, err := f.audit.List(context.Background(), services.AuditListOptions{
		Filters: services.AuditFilters{TableName: "items"},
	})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Newest first: DELETE, UPDATE, INSERT.
	require.Equal(t, models.AuditOpDelete, logs[0].Operation)
	require.Equal(t, models.AuditOpUpdate, logs[1].Operation)
	require.Equal(t, models.AuditOpInsert, logs[2].Operation)
	for _, entry := range logs {
		require.NotNil(t, entry.UserID)
		require.Equal(t, itemID, entry.RecordID)
	}
}

func TestDuplicateSKUReturnsConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	body := gin.H{"sku": "DUP-API", "name": "First"}
	rec := f.request(http.MethodPost, "/api/items", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.request(http.MethodPost, "/api/items", token, body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestViewerCannotMutate(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	rootToken := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodPost, "/api/users", rootToken, gin.H{
		"username": "viewer1",
		"email":    "viewer1@example.com",
		"password": "viewer-password-1",
		"role_ids": []string{"viewer"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	viewerToken := f.login(t, "viewer1", "viewer-password-1")

	rec = f.request(http.MethodGet, "/api/items", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodPost, "/api/items", viewerToken, gin.H{
		"sku": "NOPE-1", "name": "Forbidden",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(http.MethodGet, "/api/audit-logs", viewerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransactionFlowThroughAPI(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodPost, "/api/items", token, gin.H{
		"sku": "TX-1", "name": "Tracked", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data models.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.request(http.MethodPost, "/api/transactions", token, gin.H{
		"item_id":  created.Data.ID,
		"type":     "out",
		"quantity": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.request(http.MethodPost, "/api/transactions", token, gin.H{
		"item_id":  created.Data.ID,
		"type":     "out",
		"quantity": 100,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.request(http.MethodGet, "/api/items/"+created.Data.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, 6, created.Data.Quantity)
}

func TestAuditEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodPost, "/api/categories", token, gin.H{"name": "Audit Me"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.request(http.MethodGet, "/api/audit-logs?table=categories", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"table_name":"categories"`)

	rec = f.request(http.MethodGet, "/api/audit-logs/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "total_operations")

	rec = f.request(http.MethodGet, "/api/audit-logs/recent", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodGet, "/api/audit-logs?since=not-a-time", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardSummary(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "total_items")
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAPIFixture(t)
	f.seedRoot(t)
	token := f.login(t, "root", "root-password-1")

	rec := f.request(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodGet, "/api/auth/me", token, nil)
	// The access token is still cryptographically valid until expiry.
	require.Equal(t, http.StatusOK, rec.Code)

	logs, _, err := f.audit.List(context.Background(), services.AuditListOptions{
		Filters: services.AuditFilters{Operation: models.AuditOpLogout},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
}
