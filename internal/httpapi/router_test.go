package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genrocorp/genroproxy/internal/auth"
	"github.com/genrocorp/genroproxy/internal/dbadapter"
	"github.com/genrocorp/genroproxy/internal/dbmanager"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/logging"
	"github.com/genrocorp/genroproxy/internal/registry"
	"github.com/genrocorp/genroproxy/internal/schema"
	"github.com/genrocorp/genroproxy/internal/table"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, adminToken string) (*Server, *dbmanager.Manager) {
	t.Helper()
	adapter, err := dbadapter.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Shutdown() })
	db := dbmanager.New(adapter)

	tbl := table.New(table.Config{
		Name:             "widgets",
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyAutoincrement,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "name", Type: schema.TypeString},
		},
	}, db, nil)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{tbl}))

	b := endpoint.New("widgets", tbl, db, nil, endpoint.Defaults{API: true})
	b.RegisterDefaultCRUD()

	reg := registry.New()
	reg.Register(registry.Entity{Name: "widgets"})

	gate := auth.New(adminToken, nil)
	log := logging.New(true, slog.LevelError)

	s := New(reg, map[string]*endpoint.Base{"widgets": b}, db, gate, AdminOnly{}, log, adapter)
	return s, db
}

// newTestServerWithTenants builds a server whose "widgets" entity is
// admin-only and whose gate resolves tenant tokens against a real tenants
// table, for exercising the admin-only-gate-vs-tenant-token rule.
func newTestServerWithTenants(t *testing.T, adminToken string) (*Server, string) {
	t.Helper()
	adapter, err := dbadapter.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Shutdown() })
	db := dbmanager.New(adapter)

	widgets := table.New(table.Config{
		Name:             "widgets",
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyAutoincrement,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "name", Type: schema.TypeString},
		},
	}, db, nil)
	tenants := table.New(table.Config{
		Name:             "tenants",
		PrimaryKey:       "id",
		PrimaryKeyPolicy: schema.PKPolicyUUID,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeString},
			{Name: "api_key_hash", Type: schema.TypeString},
			{Name: "key_expires_at", Type: schema.TypeTimestamp, Nullable: true},
		},
	}, db, nil)
	require.NoError(t, db.CheckStructure(context.Background(), []schema.TableSchema{widgets, tenants}))

	tenantToken := "tenant-secret"
	require.NoError(t, db.Connection(context.Background(), func(ctx context.Context) error {
		return db.Insert(ctx, "tenants", map[string]interface{}{
			"id":           "t1",
			"api_key_hash": auth.HashTokenHex(tenantToken),
		})
	}))

	b := endpoint.New("widgets", widgets, db, nil, endpoint.Defaults{API: true})
	b.RegisterDefaultCRUD()

	reg := registry.New()
	reg.Register(registry.Entity{Name: "widgets"})

	gate := auth.New(adminToken, tenants)
	log := logging.New(true, slog.LevelError)

	s := New(reg, map[string]*endpoint.Base{"widgets": b}, db, gate, AdminOnly{"widgets": true}, log, adapter)
	return s, tenantToken
}

func TestHealthReportsOKWhenDBReachable(t *testing.T) {
	s, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.NotContains(t, body, "db")
}

func TestAddThenListRoundTripsThroughHTTP(t *testing.T) {
	s, _ := newTestServer(t, "")

	addReq := httptest.NewRequest(http.MethodPost, "/api/widgets/add", bytes.NewBufferString(`{"name":"gadget"}`))
	addRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(addRec, addReq)
	require.Equal(t, http.StatusOK, addRec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/widgets/list", nil)
	listRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &body))
	rows, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
}

func TestMissingTokenRejectedWhenAdminTokenConfigured(t *testing.T) {
	s, _ := newTestServer(t, "admin-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/widgets/list", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationFailureReturnsStructuredErrors(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/widgets/add", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errs, ok := body["error"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, errs)
}

func TestMalformedBodyReturnsValidationError(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/widgets/add", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminOnlyGateRejectsLiveTenantTokenAsForbidden(t *testing.T) {
	s, tenantToken := newTestServerWithTenants(t, "admin-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/widgets/list", nil)
	req.Header.Set("X-API-Token", tenantToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOnInvokedHookFiresWithResult(t *testing.T) {
	s, _ := newTestServer(t, "")

	var gotEntity, gotMethod string
	s.OnInvoked = func(entityName, methodName string, params map[string]interface{}, result interface{}, err error) {
		gotEntity = entityName
		gotMethod = methodName
	}

	req := httptest.NewRequest(http.MethodPost, "/api/widgets/add", bytes.NewBufferString(`{"name":"gadget"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "widgets", gotEntity)
	require.Equal(t, "add", gotMethod)
}
